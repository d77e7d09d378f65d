package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
	"github.com/podnetwork/pod-sdk-sub000/logging"
	"github.com/podnetwork/pod-sdk-sub000/utils"
)

// Confirmer observes the destination balance of a claimed request.
type Confirmer struct {
	logger   logging.Logger
	interval time.Duration
	timeout  time.Duration
	sleep    utils.SleepFunc
}

func NewConfirmer(logger logging.Logger, interval, timeout time.Duration) *Confirmer {
	return &Confirmer{
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		sleep:    utils.Sleep,
	}
}

// WithSleep replaces the wait between polls.
func (c *Confirmer) WithSleep(sleep utils.SleepFunc) *Confirmer {
	c.sleep = sleep
	return c
}

// Confirm polls until the recipient balance reaches the expected balance of the request.
// Balance read errors are logged and retried on the next tick.
func (c *Confirmer) Confirm(ctx context.Context, destination ledger.BridgeLedger, req *entity.BridgeRequest) error {
	expected := req.ExpectedBalance()
	logger := c.logger.WithFields(logrus.Fields{
		"request_id":       req.ID,
		"recipient":        req.Recipient,
		"expected_balance": expected,
	})
	poller := &utils.Poller{
		Interval: c.interval,
		Timeout:  c.timeout,
		Sleep:    c.sleep,
	}
	polls, err := poller.Until(ctx, func(ctx context.Context) (bool, error) {
		balance, err := destination.Balance(ctx, req.Asset.Kind, req.Recipient)
		if err != nil {
			logger.WithError(err).Warn("can't get destination balance, will retry")
			return false, nil
		}
		return balance.Cmp(expected) >= 0, nil
	})
	if err != nil {
		if errors.Is(err, utils.ErrPollTimeout) {
			return &entity.TimeoutError{
				Stage:  entity.StageConfirmation,
				Status: entity.StatusClaimed,
				Err:    err,
			}
		}
		return err
	}
	req.Status = entity.StatusConfirmed
	logger.WithField("polls", polls).Info("confirmed")
	return nil
}
