package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketgate/internal/errs"
)

// newTestRetrier replaces the real sleep with a recorder so tests run
// instantly and can assert on the backoff schedule.
func newTestRetrier(config RetryConfig) (*Retrier, *[]time.Duration) {
	r := NewRetrier(config, zerolog.Nop())
	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return r, &slept
}

func TestRetrier_SuccessFirstAttempt(t *testing.T) {
	r, slept := newTestRetrier(DefaultRetryConfig())

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestRetrier_RetriesTransientThenSucceeds(t *testing.T) {
	r, slept := newTestRetrier(RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        time.Minute,
		ExponentialBase: 2,
	})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.KindProviderTransient, "upstream 503")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestRetrier_NonRetryablePropagatesImmediately(t *testing.T) {
	r, slept := newTestRetrier(DefaultRetryConfig())

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.New(errs.KindRateLimit, "quota exhausted")
	})

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindRateLimit))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	r, _ := newTestRetrier(RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        time.Minute,
		ExponentialBase: 2,
	})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.New(errs.KindTimeout, "deadline exceeded")
	})

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindTimeout))
	assert.Equal(t, 3, calls)
}

func TestRetrier_CancellationStopsRetrying(t *testing.T) {
	r := NewRetrier(DefaultRetryConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := r.Execute(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errs.New(errs.KindProviderTransient, "upstream 503")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetrier_DelaySchedule(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxAttempts:     5,
		BaseDelay:       time.Second,
		MaxDelay:        4 * time.Second,
		ExponentialBase: 2,
	}, zerolog.Nop())

	assert.Equal(t, time.Second, r.Delay(0))
	assert.Equal(t, 2*time.Second, r.Delay(1))
	assert.Equal(t, 4*time.Second, r.Delay(2))

	// Capped at MaxDelay from there on
	assert.Equal(t, 4*time.Second, r.Delay(3))
	assert.Equal(t, 4*time.Second, r.Delay(10))
}

func TestRetrier_JitterStaysWithinTenPercent(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        time.Minute,
		ExponentialBase: 2,
		Jitter:          true,
	}, zerolog.Nop())

	for i := 0; i < 100; i++ {
		d := r.Delay(1)
		assert.GreaterOrEqual(t, d, 1800*time.Millisecond)
		assert.LessOrEqual(t, d, 2200*time.Millisecond)
	}
}
