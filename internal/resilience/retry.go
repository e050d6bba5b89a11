package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/marketgate/internal/errs"
)

// RetryConfig defines exponential-backoff retry behavior
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base"`
	Jitter          bool          `yaml:"jitter"`
}

// DefaultRetryConfig returns the standard backoff parameters
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2,
		Jitter:          true,
	}
}

// Retrier re-runs failed calls with exponential backoff. Which failures
// are worth retrying is decided by errs.Retryable: transient upstream
// faults and timeouts retry, rate limits and fatal errors propagate on the
// first attempt.
type Retrier struct {
	config RetryConfig
	logger zerolog.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retry engine with the given config
func NewRetrier(config RetryConfig, logger zerolog.Logger) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 60 * time.Second
	}
	if config.ExponentialBase <= 1 {
		config.ExponentialBase = 2
	}
	return &Retrier{
		config: config,
		logger: logger.With().Str("component", "retry").Logger(),
		sleep:  sleepCtx,
	}
}

// Execute runs fn up to MaxAttempts times. Non-retryable failures and
// context cancellation propagate immediately.
func (r *Retrier) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !errs.Retryable(lastErr) {
			return lastErr
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		delay := r.Delay(attempt)
		r.logger.Debug().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(lastErr).
			Msg("retrying after failure")

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// Delay computes the backoff for attempt k (0-indexed):
// min(maxDelay, base·expBase^k), with ±10% uniform jitter when enabled.
func (r *Retrier) Delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(r.config.ExponentialBase, float64(attempt))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		d += (rand.Float64()*2 - 1) * 0.1 * d
		if d < 0 {
			d = 0
		}
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
