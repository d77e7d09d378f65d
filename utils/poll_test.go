package utils_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/podnetwork/pod-sdk-sub000/utils"
)

type fakeSleep struct {
	calls []time.Duration
}

func (f *fakeSleep) Sleep(ctx context.Context, d time.Duration) bool {
	f.calls = append(f.calls, d)
	return ctx.Err() == nil
}

func TestPoller_Until(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name       string
		SucceedAt  int
		Interval   time.Duration
		Timeout    time.Duration
		ExpPolls   int
		ExpTimeout bool
	}{
		{"first check", 1, 2 * time.Second, time.Minute, 1, false},
		{"fifth check", 5, 2 * time.Second, time.Minute, 5, false},
		{"exact bound", 4, 2 * time.Second, 6 * time.Second, 4, false},
		{"too late", 5, 2 * time.Second, 6 * time.Second, 4, true},
		{"never", 0, time.Second, 10 * time.Second, 11, true},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()

			sleeper := &fakeSleep{}
			poller := &utils.Poller{Interval: test.Interval, Timeout: test.Timeout, Sleep: sleeper.Sleep}
			checks := 0
			polls, err := poller.Until(context.Background(), func(context.Context) (bool, error) {
				checks++
				return checks == test.SucceedAt, nil
			})
			require.Equal(t, test.ExpPolls, polls)
			require.Equal(t, test.ExpPolls, checks)
			if test.ExpTimeout {
				require.ErrorIs(t, err, utils.ErrPollTimeout)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, sleeper.calls, polls-1)
		})
	}
}

func TestPoller_UntilError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	poller := &utils.Poller{Interval: time.Second, Timeout: time.Minute, Sleep: (&fakeSleep{}).Sleep}
	polls, err := poller.Until(context.Background(), func(context.Context) (bool, error) {
		return false, errBoom
	})
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, 1, polls)
}

func TestPoller_UntilCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	poller := utils.NewPoller(time.Hour, 2*time.Hour)
	checks := 0
	_, err := poller.Until(ctx, func(context.Context) (bool, error) {
		checks++
		cancel()
		return false, nil
	})
	require.ErrorIs(t, err, utils.ErrPollTimeout)
	require.Equal(t, 1, checks)
}

func TestPoller_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := utils.NewPoller(0, time.Second).Until(context.Background(), func(context.Context) (bool, error) {
		return true, nil
	})
	require.ErrorIs(t, err, utils.ErrInvalidPollConfig)
}

func TestBackoff_Delay(t *testing.T) {
	t.Parallel()

	b := utils.NewBackoff(200*time.Millisecond, time.Second, 8)
	require.Equal(t, 200*time.Millisecond, b.Delay(0))
	require.Equal(t, 400*time.Millisecond, b.Delay(1))
	require.Equal(t, 800*time.Millisecond, b.Delay(2))
	require.Equal(t, time.Second, b.Delay(3))
	require.Equal(t, time.Second, b.Delay(7))
}

func TestBackoff_Retry(t *testing.T) {
	t.Parallel()

	sleeper := &fakeSleep{}
	b := &utils.Backoff{
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		MaxAttempts:  5,
		Sleep:        sleeper.Sleep,
	}
	attempts, err := b.Retry(context.Background(), func(context.Context) (bool, error) {
		return len(sleeper.calls) == 3, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}, sleeper.calls)

	sleeper.calls = nil
	attempts, err = b.Retry(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, utils.ErrRetriesExhausted)
	require.Equal(t, 5, attempts)
	require.Len(t, sleeper.calls, 5)
}
