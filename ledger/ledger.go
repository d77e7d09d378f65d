package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/contract"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

// BridgeLedger is one side of the bridge as seen by a settlement.
type BridgeLedger interface {
	ID() entity.LedgerID
	ChainID() string
	BridgeAddress() common.Address
	// Token is the bridged token contract on this ledger.
	Token() common.Address
	// ClaimsWithCertificate reports whether claims on this ledger carry a certified log.
	// Otherwise the ledger verifies origin finality itself and claims by request id and origin block.
	ClaimsWithCertificate() bool
	// Signer is the account that sends deposits and claims, zero for a read-only ledger.
	Signer() common.Address

	Deposit(ctx context.Context, asset entity.Asset, amount *big.Int, recipient common.Address) (*types.Receipt, error)
	Claim(ctx context.Context, req *entity.BridgeRequest, log *entity.CertifiedLog) (*types.Receipt, error)
	Balance(ctx context.Context, kind entity.AssetKind, account common.Address) (*big.Int, error)
	FinalizedBlock(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	VerifiableLogs(ctx context.Context, q ethereum.FilterQuery) ([]entity.VerifiableLog, error)
}

type baseLedger struct {
	id     entity.LedgerID
	client ethclient.Client
	bridge *contract.BridgeContract
	token  *contract.TokenContract
}

func (l *baseLedger) ID() entity.LedgerID {
	return l.id
}

func (l *baseLedger) ChainID() string {
	return l.client.ChainID()
}

func (l *baseLedger) BridgeAddress() common.Address {
	return l.bridge.Address()
}

func (l *baseLedger) Signer() common.Address {
	return l.client.Sender()
}

func (l *baseLedger) Token() common.Address {
	return l.token.Address()
}

func (l *baseLedger) Deposit(ctx context.Context, asset entity.Asset, amount *big.Int, recipient common.Address) (*types.Receipt, error) {
	if asset.IsNative() {
		return l.bridge.DepositNative(ctx, recipient, amount)
	}
	return l.bridge.DepositToken(ctx, asset.Token, amount, recipient)
}

func (l *baseLedger) Balance(ctx context.Context, kind entity.AssetKind, account common.Address) (*big.Int, error) {
	if kind == entity.AssetNative {
		balance, err := l.client.BalanceAt(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("%w: can't get native balance: %w", entity.ErrChain, err)
		}
		return balance, nil
	}
	return l.token.BalanceOf(ctx, account)
}

func (l *baseLedger) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := l.client.FilterLogsSafe(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrChain, err)
	}
	return logs, nil
}

func (l *baseLedger) VerifiableLogs(ctx context.Context, q ethereum.FilterQuery) ([]entity.VerifiableLog, error) {
	logs, err := l.client.VerifiableLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrChain, err)
	}
	return logs, nil
}

func newBaseLedger(id entity.LedgerID, client ethclient.Client, side *config.BridgeSideConfig, bridge *contract.BridgeContract) baseLedger {
	return baseLedger{
		id:     id,
		client: client,
		bridge: bridge,
		token:  contract.NewTokenContract(client, side.TokenAddress),
	}
}
