package evidence

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
	"github.com/podnetwork/pod-sdk-sub000/logging"
	"github.com/podnetwork/pod-sdk-sub000/utils"
)

// Service produces the claim evidence for a deposit found on the origin ledger.
type Service interface {
	Certify(ctx context.Context, req *entity.BridgeRequest) (*entity.CertifiedLog, error)
}

// NewService picks the evidence kind the destination ledger expects.
func NewService(logger logging.Logger, origin, destination ledger.BridgeLedger, backoff *utils.Backoff, verifyProofs bool) Service {
	if destination.ClaimsWithCertificate() {
		return NewAttestedService(logger, origin, backoff, verifyProofs)
	}
	return NewFinalizedLogService(logger, origin, backoff)
}

// AttestedService reads committee attested logs of the settlement chain.
type AttestedService struct {
	logger       logging.Logger
	origin       ledger.BridgeLedger
	backoff      *utils.Backoff
	verifyProofs bool
	prover       ReceiptProver
}

func NewAttestedService(logger logging.Logger, origin ledger.BridgeLedger, backoff *utils.Backoff, verifyProofs bool) *AttestedService {
	return &AttestedService{
		logger:       logger,
		origin:       origin,
		backoff:      backoff,
		verifyProofs: verifyProofs,
		prover:       ReceiptTreeProver{},
	}
}

// WithProver replaces the receipt tree prover.
func (s *AttestedService) WithProver(prover ReceiptProver) *AttestedService {
	s.prover = prover
	return s
}

func (s *AttestedService) Certify(ctx context.Context, req *entity.BridgeRequest) (*entity.CertifiedLog, error) {
	q := DepositFilter(s.origin.BridgeAddress(), req)
	var found *entity.VerifiableLog
	err := retryExactlyOne(ctx, s.logger, s.backoff, req, func(ctx context.Context) (int, error) {
		logs, err := s.origin.VerifiableLogs(ctx, q)
		if err != nil {
			return 0, err
		}
		if len(logs) == 1 {
			found = &logs[0]
		}
		return len(logs), nil
	})
	if err != nil {
		return nil, err
	}

	certified, err := AssembleCertifiedLog(found, s.prover)
	if err != nil {
		return nil, err
	}
	if err = ValidateLogShape(certified, s.origin.BridgeAddress(), req); err != nil {
		return nil, err
	}
	if err = ValidateCertificate(certified, s.verifyProofs); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"request_id":   req.ID,
		"block_number": certified.BlockNumber,
		"tx_hash":      certified.TxHash,
		"attestations": len(certified.Certificate.CertifiedReceipt.SortedAttestationTimestamps),
	}).Info("assembled certified log")
	return certified, nil
}

// FinalizedLogService reads the deposit log of the source chain. The settlement chain checks
// source finality by itself, so no certificate is attached.
type FinalizedLogService struct {
	logger  logging.Logger
	origin  ledger.BridgeLedger
	backoff *utils.Backoff
}

func NewFinalizedLogService(logger logging.Logger, origin ledger.BridgeLedger, backoff *utils.Backoff) *FinalizedLogService {
	return &FinalizedLogService{
		logger:  logger,
		origin:  origin,
		backoff: backoff,
	}
}

func (s *FinalizedLogService) Certify(ctx context.Context, req *entity.BridgeRequest) (*entity.CertifiedLog, error) {
	q := DepositFilter(s.origin.BridgeAddress(), req)
	q.FromBlock = new(big.Int).SetUint64(req.OriginBlock)
	q.ToBlock = new(big.Int).SetUint64(req.OriginBlock)

	var found *entity.VerifiableLog
	err := retryExactlyOne(ctx, s.logger, s.backoff, req, func(ctx context.Context) (int, error) {
		logs, err := s.origin.FilterLogs(ctx, q)
		if err != nil {
			return 0, err
		}
		if len(logs) == 1 {
			found = &entity.VerifiableLog{Log: logs[0]}
		}
		return len(logs), nil
	})
	if err != nil {
		return nil, err
	}

	res := UncertifiedLog(found)
	if err = ValidateLogShape(res, s.origin.BridgeAddress(), req); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"request_id":   req.ID,
		"block_number": res.BlockNumber,
		"tx_hash":      res.TxHash,
	}).Info("found finalized deposit log")
	return res, nil
}

// retryExactlyOne retries fetch while it finds no logs. Chain errors are retried as well,
// more than one matching log is never retried.
func retryExactlyOne(ctx context.Context, logger logging.Logger, backoff *utils.Backoff, req *entity.BridgeRequest, fetch func(ctx context.Context) (int, error)) error {
	var lastErr error
	attempts, err := backoff.Retry(ctx, func(ctx context.Context) (bool, error) {
		n, err := fetch(ctx)
		switch {
		case err != nil && errors.Is(err, entity.ErrChain):
			lastErr = err
			logger.WithError(err).WithField("request_id", req.ID).Warn("failed to fetch deposit log, retrying")
			return false, nil
		case err != nil:
			return false, err
		case n > 1:
			return false, fmt.Errorf("%w: %d deposit logs match request %s", entity.ErrProtocolInvariant, n, req.ID)
		case n == 0:
			logger.WithField("request_id", req.ID).Debug("deposit log is not available yet")
			return false, nil
		default:
			return true, nil
		}
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, utils.ErrRetriesExhausted) || errors.Is(err, utils.ErrPollTimeout) {
		if lastErr != nil {
			err = fmt.Errorf("%w, last error: %w", err, lastErr)
		}
		return &entity.TimeoutError{
			Stage:  entity.StageEvidence,
			Status: entity.StatusAwaitingFinality,
			Err:    fmt.Errorf("after %d attempts: %w", attempts, err),
		}
	}
	return err
}
