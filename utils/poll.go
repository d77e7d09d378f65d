package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrPollTimeout       = errors.New("poll timeout")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrInvalidPollConfig = errors.New("invalid poll config")
)

// SleepFunc waits for d and reports false if ctx was done first.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// CheckFunc reports whether the awaited condition holds. A non-nil error aborts polling.
type CheckFunc func(ctx context.Context) (bool, error)

// Sleep is the real SleepFunc, it stops the timer early when ctx is done.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}

// Poller runs a check every Interval until it succeeds or Timeout elapses.
// Elapsed time is accounted in slept intervals, so a fake SleepFunc gives a deterministic number of checks.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	Sleep    SleepFunc
}

func NewPoller(interval, timeout time.Duration) *Poller {
	return &Poller{
		Interval: interval,
		Timeout:  timeout,
		Sleep:    Sleep,
	}
}

// Until returns the number of performed checks.
func (p *Poller) Until(ctx context.Context, check CheckFunc) (int, error) {
	if p.Interval <= 0 || p.Timeout <= 0 {
		return 0, fmt.Errorf("interval %s, timeout %s: %w", p.Interval, p.Timeout, ErrInvalidPollConfig)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var elapsed time.Duration
	for polls := 1; ; polls++ {
		if ctx.Err() != nil {
			return polls - 1, fmt.Errorf("%w after %d checks: %v", ErrPollTimeout, polls-1, ctx.Err())
		}
		ok, err := check(ctx)
		if err != nil {
			return polls, err
		}
		if ok {
			return polls, nil
		}
		if elapsed+p.Interval > p.Timeout {
			return polls, fmt.Errorf("%w after %d checks (%s)", ErrPollTimeout, polls, p.Timeout)
		}
		if !sleep(ctx, p.Interval) {
			return polls, fmt.Errorf("%w after %d checks: %v", ErrPollTimeout, polls, ctx.Err())
		}
		elapsed += p.Interval
	}
}

// Backoff retries an attempt with exponentially growing delays, capped at MaxDelay.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Sleep        SleepFunc
}

func NewBackoff(initial, maxDelay time.Duration, attempts int) *Backoff {
	return &Backoff{
		InitialDelay: initial,
		MaxDelay:     maxDelay,
		MaxAttempts:  attempts,
		Sleep:        Sleep,
	}
}

// Delay returns the wait before the given retry, counting from zero.
func (b *Backoff) Delay(retry int) time.Duration {
	d := b.InitialDelay
	for i := 0; i < retry; i++ {
		d *= 2
		if d >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if d > b.MaxDelay {
		return b.MaxDelay
	}
	return d
}

// Retry waits InitialDelay before the first attempt, as the awaited data usually lags the trigger.
// An attempt returning false without error is retried until MaxAttempts is reached.
func (b *Backoff) Retry(ctx context.Context, attempt CheckFunc) (int, error) {
	if b.MaxAttempts <= 0 {
		return 0, fmt.Errorf("max attempts %d: %w", b.MaxAttempts, ErrInvalidPollConfig)
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	for i := 0; i < b.MaxAttempts; i++ {
		if !sleep(ctx, b.Delay(i)) {
			return i, fmt.Errorf("%w after %d attempts: %v", ErrPollTimeout, i, ctx.Err())
		}
		ok, err := attempt(ctx)
		if err != nil {
			return i + 1, err
		}
		if ok {
			return i + 1, nil
		}
	}
	return b.MaxAttempts, fmt.Errorf("%w: %d attempts", ErrRetriesExhausted, b.MaxAttempts)
}
