package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/contract"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

// SettlementLedger is the pod network side. Its bridge checks source chain finality natively,
// and its committee attests every log, so anything it reports is already final.
type SettlementLedger struct {
	baseLedger
}

var _ BridgeLedger = (*SettlementLedger)(nil)

func NewSettlementLedger(client ethclient.Client, side *config.BridgeSideConfig) *SettlementLedger {
	bridge := contract.NewSettlementBridgeContract(client, side.BridgeAddress)
	return &SettlementLedger{newBaseLedger(entity.LedgerSettlement, client, side, bridge)}
}

func (l *SettlementLedger) ClaimsWithCertificate() bool {
	return false
}

// Claim ignores the certificate, the bridge proves the deposit from the origin block itself.
func (l *SettlementLedger) Claim(ctx context.Context, req *entity.BridgeRequest, _ *entity.CertifiedLog) (*types.Receipt, error) {
	return l.bridge.ClaimByBlock(ctx, req.ID, req.Asset, req.OriginBlock)
}

func (l *SettlementLedger) FinalizedBlock(ctx context.Context) (uint64, error) {
	n, err := l.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: can't get block number: %w", entity.ErrChain, err)
	}
	return n, nil
}
