package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/evidence"
	"github.com/podnetwork/pod-sdk-sub000/finality"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
	"github.com/podnetwork/pod-sdk-sub000/logging"
	"github.com/podnetwork/pod-sdk-sub000/utils"
)

var ErrJournalDisabled = errors.New("settlement journal is disabled")

// Orchestrator drives bridge requests from origin to destination through
// Deposited, AwaitingFinality, EvidenceReady, Claimed and Confirmed.
// It holds no per-request state, so one instance serves concurrent runs.
type Orchestrator struct {
	logger      logging.Logger
	origin      ledger.BridgeLedger
	destination ledger.BridgeLedger
	cfg         *config.SettlementConfig
	journal     entity.SettlementsRepo
	sleep       utils.SleepFunc

	initiator *Initiator
	tracker   *finality.Tracker
	evidence  evidence.Service
	submitter *Submitter
	confirmer *Confirmer
}

type Option func(o *Orchestrator)

// WithJournal records every transition of a request in repo.
func WithJournal(repo entity.SettlementsRepo) Option {
	return func(o *Orchestrator) {
		o.journal = repo
	}
}

// WithSleep replaces the wait used by every polling and retry loop.
func WithSleep(sleep utils.SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

func NewOrchestrator(logger logging.Logger, origin, destination ledger.BridgeLedger, cfg *config.SettlementConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: logger.WithFields(logrus.Fields{
			"origin":      origin.ID(),
			"destination": destination.ID(),
		}),
		origin:      origin,
		destination: destination,
		cfg:         cfg,
		sleep:       utils.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}

	backoff := utils.NewBackoff(cfg.EvidenceInitialDelay, cfg.EvidenceMaxDelay, cfg.EvidenceMaxAttempts)
	backoff.Sleep = o.sleep

	o.initiator = NewInitiator(o.logger, origin)
	o.tracker = finality.NewTracker(o.logger, cfg.FinalityPollInterval).WithSleep(o.sleep)
	o.evidence = evidence.NewService(o.logger, origin, destination, backoff, cfg.VerifyProofs)
	o.submitter = NewSubmitter(o.logger, origin.BridgeAddress(), cfg.VerifyProofs)
	o.confirmer = NewConfirmer(o.logger, cfg.ConfirmationPollInterval, cfg.ConfirmationTimeout).WithSleep(o.sleep)
	return o
}

func (o *Orchestrator) Origin() entity.LedgerID {
	return o.origin.ID()
}

func (o *Orchestrator) Destination() entity.LedgerID {
	return o.destination.ID()
}

// Start deposits amount for recipient and settles the request. The returned request is non-nil
// once the deposit is mined, even when a later stage fails.
func (o *Orchestrator) Start(ctx context.Context, asset entity.Asset, amount *big.Int, recipient common.Address) (*entity.BridgeRequest, error) {
	prior, err := o.destination.Balance(ctx, asset.Kind, recipient)
	if err != nil {
		return nil, fmt.Errorf("can't read prior balance on %s: %w", o.destination.ID(), err)
	}

	stop := o.observeStage(entity.StageDeposit)
	req, err := o.initiator.Deposit(ctx, recipient, asset, amount)
	stop()
	if err != nil {
		Results.WithLabelValues(string(o.origin.ID()), string(o.destination.ID()), string(asset.Kind), "deposit_failed").Inc()
		return nil, err
	}
	req.PriorBalance = prior
	o.record(ctx, req, nil)

	return req, o.run(ctx, req)
}

// Resume continues a request from its recorded status without depositing again.
// Every later stage is idempotent, so a timed out request restarts from finality, or from confirmation once claimed.
func (o *Orchestrator) Resume(ctx context.Context, req *entity.BridgeRequest) error {
	if req.Origin != o.origin.ID() || req.Destination != o.destination.ID() {
		return fmt.Errorf("%w: request %s goes from %s to %s, orchestrator from %s to %s", entity.ErrFatalMisuse,
			req.ID, req.Origin, req.Destination, o.origin.ID(), o.destination.ID())
	}
	switch req.Status {
	case entity.StatusConfirmed:
		return nil
	case entity.StatusRejected:
		return fmt.Errorf("%w: request %s was rejected", entity.ErrFatalMisuse, req.ID)
	case entity.StatusTimedOut:
		if req.ClaimTxHash != (common.Hash{}) {
			req.Status = entity.StatusClaimed
		} else {
			req.Status = entity.StatusAwaitingFinality
		}
	}
	o.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"status":     req.Status,
	}).Info("resuming request")
	return o.run(ctx, req)
}

// ResumeByID loads the request from the journal and resumes it.
func (o *Orchestrator) ResumeByID(ctx context.Context, id common.Hash) (*entity.BridgeRequest, error) {
	if o.journal == nil {
		return nil, ErrJournalDisabled
	}
	row, err := o.journal.GetByRequestID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("can't load request %s: %w", id, err)
	}
	req, err := row.BridgeRequest()
	if err != nil {
		return nil, fmt.Errorf("can't restore request %s: %w", id, err)
	}
	return req, o.Resume(ctx, req)
}

// ResumePending resumes every unfinished journal request of this direction concurrently.
func (o *Orchestrator) ResumePending(ctx context.Context) error {
	if o.journal == nil {
		return ErrJournalDisabled
	}
	rows, err := o.journal.FindByStatus(ctx,
		entity.StatusDeposited,
		entity.StatusAwaitingFinality,
		entity.StatusEvidenceReady,
		entity.StatusClaimed,
		entity.StatusTimedOut,
	)
	if err != nil {
		return fmt.Errorf("can't find pending requests: %w", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, row := range rows {
		if row.Origin != o.origin.ID() || row.Destination != o.destination.ID() {
			continue
		}
		req, err := row.BridgeRequest()
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("can't restore request %s: %w", row.RequestID, err))
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.Resume(ctx, req); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("request %s: %w", req.ID, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (o *Orchestrator) run(ctx context.Context, req *entity.BridgeRequest) error {
	logger := o.logger.WithField("request_id", req.ID)

	var certified *entity.CertifiedLog
	for !req.Status.IsTerminal() {
		var err error
		switch req.Status {
		case entity.StatusDeposited:
			req.Status = entity.StatusAwaitingFinality
		case entity.StatusAwaitingFinality:
			stop := o.observeStage(entity.StageFinality)
			err = o.tracker.AwaitFinality(ctx, o.origin, req.OriginBlock, o.cfg.FinalityTimeout)
			stop()
			if err == nil {
				certified, err = o.certify(ctx, req)
			}
			if err == nil {
				req.Status = entity.StatusEvidenceReady
			}
		case entity.StatusEvidenceReady:
			if certified == nil {
				certified, err = o.certify(ctx, req)
			}
			if err == nil {
				stop := o.observeStage(entity.StageClaim)
				err = o.submitter.Claim(ctx, o.destination, req, certified)
				stop()
			}
		case entity.StatusClaimed:
			stop := o.observeStage(entity.StageConfirmation)
			err = o.confirmer.Confirm(ctx, o.destination, req)
			stop()
		default:
			err = fmt.Errorf("%w: unknown status %q", entity.ErrFatalMisuse, req.Status)
		}
		if err != nil {
			return o.fail(ctx, req, err)
		}
		logger.WithField("status", req.Status).Debug("request advanced")
		o.record(ctx, req, nil)
	}
	Results.WithLabelValues(string(req.Origin), string(req.Destination), string(req.Asset.Kind), string(req.Status)).Inc()
	return nil
}

func (o *Orchestrator) certify(ctx context.Context, req *entity.BridgeRequest) (*entity.CertifiedLog, error) {
	defer o.observeStage(entity.StageEvidence)()
	return o.evidence.Certify(ctx, req)
}

// fail moves the request into a terminal status when the error can't be fixed by resuming.
// Chain errors, limit rejections and cancellation keep the last status.
func (o *Orchestrator) fail(ctx context.Context, req *entity.BridgeRequest, err error) error {
	var timeoutErr *entity.TimeoutError
	switch {
	case errors.As(err, &timeoutErr):
		req.Status = entity.StatusTimedOut
	case errors.Is(err, entity.ErrProtocolInvariant),
		errors.Is(err, entity.ErrMalformedCertificate),
		errors.Is(err, entity.ErrFatalMisuse):
		req.Status = entity.StatusRejected
	}
	o.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": req.ID,
		"status":     req.Status,
	}).Error("settlement stopped")
	Results.WithLabelValues(string(req.Origin), string(req.Destination), string(req.Asset.Kind), string(req.Status)).Inc()
	o.record(ctx, req, err)
	return err
}

func (o *Orchestrator) record(ctx context.Context, req *entity.BridgeRequest, lastErr error) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Ensure(context.WithoutCancel(ctx), entity.NewSettlement(req, lastErr)); err != nil {
		JournalErrors.Inc()
		o.logger.WithError(err).WithField("request_id", req.ID).Error("can't record settlement")
	}
}

func (o *Orchestrator) observeStage(stage entity.Stage) func() {
	timer := prometheus.NewTimer(StageDurations.WithLabelValues(string(o.origin.ID()), string(o.destination.ID()), string(stage)))
	return func() {
		timer.ObserveDuration()
	}
}
