package finality

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/logging"
	"github.com/podnetwork/pod-sdk-sub000/utils"
)

type FinalizedBlockReader interface {
	ID() entity.LedgerID
	FinalizedBlock(ctx context.Context) (uint64, error)
}

type Tracker struct {
	logger       logging.Logger
	pollInterval time.Duration
	sleep        utils.SleepFunc
}

func NewTracker(logger logging.Logger, pollInterval time.Duration) *Tracker {
	return &Tracker{
		logger:       logger,
		pollInterval: pollInterval,
		sleep:        utils.Sleep,
	}
}

// WithSleep replaces the wait between polls.
func (t *Tracker) WithSleep(sleep utils.SleepFunc) *Tracker {
	t.sleep = sleep
	return t
}

// AwaitFinality blocks until the finalized head of the ledger reaches blockNumber.
// Failed head queries are retried on the next tick.
func (t *Tracker) AwaitFinality(ctx context.Context, ledger FinalizedBlockReader, blockNumber uint64, timeout time.Duration) error {
	logger := t.logger.WithFields(logrus.Fields{
		"ledger":       ledger.ID(),
		"block_number": blockNumber,
	})
	poller := &utils.Poller{
		Interval: t.pollInterval,
		Timeout:  timeout,
		Sleep:    t.sleep,
	}
	polls, err := poller.Until(ctx, func(ctx context.Context) (bool, error) {
		finalized, err := ledger.FinalizedBlock(ctx)
		if err != nil {
			logger.WithError(err).Warn("can't get finalized block, will retry")
			return false, nil
		}
		logger.WithField("finalized_block", finalized).Trace("checked finalized block")
		return finalized >= blockNumber, nil
	})
	if err != nil {
		if errors.Is(err, utils.ErrPollTimeout) {
			return &entity.TimeoutError{
				Stage:  entity.StageFinality,
				Status: entity.StatusAwaitingFinality,
				Err:    err,
			}
		}
		return err
	}
	logger.WithField("polls", polls).Debug("block is finalized")
	return nil
}
