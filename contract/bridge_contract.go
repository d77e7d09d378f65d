package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/podnetwork/pod-sdk-sub000/contract/bridgeabi"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

type BridgeContract struct {
	*Contract
}

// NewSourceBridgeContract binds the bridge that claims with certified logs.
func NewSourceBridgeContract(client ethclient.Client, addr common.Address) *BridgeContract {
	return &BridgeContract{NewContract(client, addr, bridgeabi.SourceBridgeABI)}
}

// NewSettlementBridgeContract binds the bridge that claims by request id and origin block.
func NewSettlementBridgeContract(client ethclient.Client, addr common.Address) *BridgeContract {
	return &BridgeContract{NewContract(client, addr, bridgeabi.SettlementBridgeABI)}
}

func (c *BridgeContract) DepositNative(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return c.Transact(ctx, amount, "depositNative", to)
}

func (c *BridgeContract) DepositToken(ctx context.Context, token common.Address, amount *big.Int, to common.Address) (*types.Receipt, error) {
	return c.Transact(ctx, nil, "deposit", token, amount, to)
}

// ClaimWithCertificate submits claim(CertifiedLog) or claimNative(CertifiedLog).
func (c *BridgeContract) ClaimWithCertificate(ctx context.Context, asset entity.Asset, log *entity.CertifiedLog) (*types.Receipt, error) {
	method := "claim"
	if asset.IsNative() {
		method = "claimNative"
	}
	return c.Transact(ctx, nil, method, newCertifiedLogArg(log))
}

// ClaimByBlock submits claim(id, token, blockNumber) or claimNative(id, blockNumber).
func (c *BridgeContract) ClaimByBlock(ctx context.Context, id common.Hash, asset entity.Asset, blockNumber uint64) (*types.Receipt, error) {
	idArg := new(big.Int).SetBytes(id.Bytes())
	blockArg := new(big.Int).SetUint64(blockNumber)
	if asset.IsNative() {
		return c.Transact(ctx, nil, "claimNative", idArg, blockArg)
	}
	return c.Transact(ctx, nil, "claim", idArg, asset.Token, blockArg)
}

type certifiedLogArg struct {
	Log         logArg
	LogIndex    *big.Int
	Certificate certificateArg
}

type logArg struct {
	Addr   common.Address
	Topics [][32]byte
	Data   []byte
}

type certificateArg struct {
	CertifiedReceipt certifiedReceiptArg
	Leaf             [32]byte
	Proof            proofArg
}

type certifiedReceiptArg struct {
	ReceiptRoot                 [32]byte
	AggregateSignature          []byte
	SortedAttestationTimestamps []*big.Int
}

type proofArg struct {
	Path [][32]byte
}

func newCertifiedLogArg(log *entity.CertifiedLog) certifiedLogArg {
	cert := log.Certificate
	timestamps := make([]*big.Int, len(cert.CertifiedReceipt.SortedAttestationTimestamps))
	for i, ts := range cert.CertifiedReceipt.SortedAttestationTimestamps {
		timestamps[i] = new(big.Int).SetUint64(ts)
	}
	return certifiedLogArg{
		Log: logArg{
			Addr:   log.Log.Address,
			Topics: toBytes32(log.Log.Topics),
			Data:   log.Log.Data,
		},
		LogIndex: new(big.Int).SetUint64(log.LogIndex),
		Certificate: certificateArg{
			CertifiedReceipt: certifiedReceiptArg{
				ReceiptRoot:                 cert.CertifiedReceipt.ReceiptRoot,
				AggregateSignature:          cert.CertifiedReceipt.AggregateSignature,
				SortedAttestationTimestamps: timestamps,
			},
			Leaf:  cert.Leaf,
			Proof: proofArg{Path: toBytes32(cert.Proof.Path)},
		},
	}
}

func toBytes32(hashes []common.Hash) [][32]byte {
	res := make([][32]byte, len(hashes))
	for i, h := range hashes {
		res[i] = h
	}
	return res
}
