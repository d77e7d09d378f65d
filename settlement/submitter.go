package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/evidence"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
	"github.com/podnetwork/pod-sdk-sub000/logging"
)

// Submitter checks claim evidence and submits it to the destination ledger.
type Submitter struct {
	logger       logging.Logger
	originBridge common.Address
	verifyProofs bool
}

func NewSubmitter(logger logging.Logger, originBridge common.Address, verifyProofs bool) *Submitter {
	return &Submitter{
		logger:       logger,
		originBridge: originBridge,
		verifyProofs: verifyProofs,
	}
}

// ClaimFee is the native amount the claim transaction charged its sender.
func ClaimFee(receipt *types.Receipt) *big.Int {
	if receipt.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
}

// Claim moves the request to Claimed. A request the destination already processed counts as claimed,
// nothing is sent when the evidence is malformed.
func (s *Submitter) Claim(ctx context.Context, destination ledger.BridgeLedger, req *entity.BridgeRequest, log *entity.CertifiedLog) error {
	logger := s.logger.WithFields(logrus.Fields{
		"request_id":  req.ID,
		"destination": destination.ID(),
		"chain_id":    destination.ChainID(),
	})

	if err := evidence.ValidateLogShape(log, s.originBridge, req); err != nil {
		return err
	}
	if destination.ClaimsWithCertificate() {
		if err := evidence.ValidateCertificate(log, s.verifyProofs); err != nil {
			return err
		}
	}

	receipt, err := destination.Claim(ctx, req, log)
	if err != nil {
		if errors.Is(err, entity.ErrAlreadyProcessed) {
			logger.WithError(err).Warn("request was already claimed")
			req.Status = entity.StatusClaimed
			return nil
		}
		return fmt.Errorf("can't claim request %s on %s: %w", req.ID, destination.ID(), err)
	}
	if n := len(receipt.Logs); n != ExpectedLogCount(req.Asset) {
		return fmt.Errorf("%w: claim receipt %s has %d logs, expected %d",
			entity.ErrProtocolInvariant, receipt.TxHash, n, ExpectedLogCount(req.Asset))
	}

	req.Status = entity.StatusClaimed
	req.ClaimTxHash = receipt.TxHash
	if req.Asset.IsNative() && destination.Signer() == req.Recipient {
		req.ClaimFee = ClaimFee(receipt)
	}
	logger.WithFields(logrus.Fields{
		"tx_hash":      receipt.TxHash,
		"block_number": receipt.BlockNumber,
		"claim_fee":    req.ClaimFee,
	}).Info("claimed")
	return nil
}
