package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/contract"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

// SourceLedger is the EVM chain whose bridge accepts claims backed by committee certificates.
type SourceLedger struct {
	baseLedger
}

var _ BridgeLedger = (*SourceLedger)(nil)

func NewSourceLedger(client ethclient.Client, side *config.BridgeSideConfig) *SourceLedger {
	bridge := contract.NewSourceBridgeContract(client, side.BridgeAddress)
	return &SourceLedger{newBaseLedger(entity.LedgerSource, client, side, bridge)}
}

func (l *SourceLedger) ClaimsWithCertificate() bool {
	return true
}

func (l *SourceLedger) Claim(ctx context.Context, req *entity.BridgeRequest, log *entity.CertifiedLog) (*types.Receipt, error) {
	if log == nil {
		return nil, fmt.Errorf("%w: claim on %s requires a certified log", entity.ErrMalformedCertificate, l.id)
	}
	return l.bridge.ClaimWithCertificate(ctx, req.Asset, log)
}

// FinalizedBlock reads the head of the "finalized" block tag.
func (l *SourceLedger) FinalizedBlock(ctx context.Context) (uint64, error) {
	header, err := l.client.HeaderByTag(ctx, rpc.FinalizedBlockNumber)
	if err != nil {
		return 0, fmt.Errorf("%w: can't get finalized header: %w", entity.ErrChain, err)
	}
	return header.Number.Uint64(), nil
}
