package settlement

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/podnetwork/pod-sdk-sub000/contract/bridgeabi"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/evidence"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
	"github.com/podnetwork/pod-sdk-sub000/logging"
)

// ExpectedLogCount is the number of logs a successful deposit or claim receipt carries:
// the bridge event alone for native transfers, plus the token transfer for tokens.
func ExpectedLogCount(asset entity.Asset) int {
	if asset.IsNative() {
		return 1
	}
	return 2
}

// Initiator submits deposits on the origin ledger.
type Initiator struct {
	logger logging.Logger
	origin ledger.BridgeLedger
}

func NewInitiator(logger logging.Logger, origin ledger.BridgeLedger) *Initiator {
	return &Initiator{
		logger: logger,
		origin: origin,
	}
}

// Deposit locks amount on the origin ledger and returns the request identified by the emitted deposit event.
// Token deposits expect the bridge to be approved beforehand.
func (i *Initiator) Deposit(ctx context.Context, recipient common.Address, asset entity.Asset, amount *big.Int) (*entity.BridgeRequest, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive, got %v", entity.ErrFatalMisuse, amount)
	}
	receipt, err := i.origin.Deposit(ctx, asset, amount, recipient)
	if err != nil {
		return nil, fmt.Errorf("can't deposit %s on %s: %w", asset, i.origin.ID(), err)
	}

	depositLog, err := i.findDepositLog(receipt, asset)
	if err != nil {
		return nil, err
	}
	if err = checkDepositEvent(depositLog, amount, recipient); err != nil {
		return nil, err
	}

	req := &entity.BridgeRequest{
		ID:            depositLog.Topics[1],
		Asset:         asset,
		Amount:        new(big.Int).Set(amount),
		Origin:        i.origin.ID(),
		Destination:   i.origin.ID().Opposite(),
		Recipient:     recipient,
		OriginBlock:   receipt.BlockNumber.Uint64(),
		Status:        entity.StatusDeposited,
		DepositTxHash: receipt.TxHash,
	}
	if !asset.IsNative() {
		req.Asset.Token = common.BytesToAddress(depositLog.Topics[2].Bytes())
	}
	i.logger.WithFields(logrus.Fields{
		"request_id":   req.ID,
		"asset":        req.Asset,
		"amount":       req.Amount,
		"block_number": req.OriginBlock,
		"tx_hash":      req.DepositTxHash,
	}).Info("deposited")
	return req, nil
}

func (i *Initiator) findDepositLog(receipt *types.Receipt, asset entity.Asset) (*types.Log, error) {
	if n := len(receipt.Logs); n != ExpectedLogCount(asset) {
		return nil, fmt.Errorf("%w: deposit receipt %s has %d logs, expected %d",
			entity.ErrProtocolInvariant, receipt.TxHash, n, ExpectedLogCount(asset))
	}
	sig := evidence.DepositEventSignature(asset)
	var found *types.Log
	for _, log := range receipt.Logs {
		if log.Address != i.origin.BridgeAddress() || len(log.Topics) == 0 || log.Topics[0] != sig {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: deposit receipt %s has several deposit events", entity.ErrProtocolInvariant, receipt.TxHash)
		}
		found = log
	}
	if found == nil {
		return nil, fmt.Errorf("%w: deposit receipt %s has no deposit event", entity.ErrProtocolInvariant, receipt.TxHash)
	}
	minTopics := 2
	if !asset.IsNative() {
		minTopics = 3
	}
	if len(found.Topics) < minTopics {
		return nil, fmt.Errorf("%w: deposit event has %d topics", entity.ErrProtocolInvariant, len(found.Topics))
	}
	return found, nil
}

// checkDepositEvent compares the decoded deposit event with what was requested.
// Both bridges emit the same deposit events.
func checkDepositEvent(log *types.Log, amount *big.Int, recipient common.Address) error {
	event, values, err := bridgeabi.SourceBridgeABI.ParseLog(log)
	if err != nil || event == "" {
		return fmt.Errorf("%w: can't decode deposit event: %v", entity.ErrProtocolInvariant, err)
	}
	if got, ok := values["amount"].(*big.Int); !ok || got.Cmp(amount) != 0 {
		return fmt.Errorf("%w: deposit event amount %v, expected %s", entity.ErrProtocolInvariant, values["amount"], amount)
	}
	if got, ok := values["to"].(common.Address); !ok || got != recipient {
		return fmt.Errorf("%w: deposit event recipient %v, expected %s", entity.ErrProtocolInvariant, values["to"], recipient)
	}
	return nil
}
