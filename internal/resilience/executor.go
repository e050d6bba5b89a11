package resilience

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sawpanic/marketgate/internal/errs"
	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/provider"
)

// Executor composes the resilience layers around a provider call:
// breaker.Call(retry.Execute(provider.GetData)). The retry engine sits
// inside the breaker so a retry storm cannot re-open a tripped breaker,
// while a breaker rejection never consumes retry attempts.
type Executor struct {
	breakers *BreakerRegistry
	retrier  *Retrier
	limiters *provider.LimiterSet
	logger   zerolog.Logger
}

// NewExecutor creates the composition glue
func NewExecutor(breakers *BreakerRegistry, retrier *Retrier, limiters *provider.LimiterSet, logger zerolog.Logger) *Executor {
	return &Executor{
		breakers: breakers,
		retrier:  retrier,
		limiters: limiters,
		logger:   logger.With().Str("component", "executor").Logger(),
	}
}

// Execute fetches data from the provider under breaker, retry and
// rate-limit protection.
func (e *Executor) Execute(ctx context.Context, p provider.Provider, query models.DataQuery) (*models.DataResponse, error) {
	var resp *models.DataResponse

	breaker := e.breakers.Get(p.Name())
	err := breaker.Call(ctx, func(ctx context.Context) error {
		return e.retrier.Execute(ctx, func(ctx context.Context) error {
			if e.limiters != nil {
				if err := e.limiters.Wait(ctx, p); err != nil {
					return classify(p.Name(), err)
				}
			}
			r, err := p.GetData(ctx, query)
			if err != nil {
				return classify(p.Name(), err)
			}
			resp = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Quote fetches a realtime quote under breaker protection. Quotes never
// queue behind the rate limit: an exhausted budget fails fast so the
// caller can fall back to cached or delayed data.
func (e *Executor) Quote(ctx context.Context, p provider.Provider, symbol string, market models.Market) (map[string]interface{}, error) {
	if e.limiters != nil && !e.limiters.Allow(p) {
		return nil, errs.New(errs.KindRateLimit, "realtime budget exhausted for %q", symbol).WithProvider(p.Name())
	}

	var quote map[string]interface{}
	err := e.breakers.Get(p.Name()).Call(ctx, func(ctx context.Context) error {
		q, err := p.RealtimeQuote(ctx, symbol, market)
		if err != nil {
			return classify(p.Name(), err)
		}
		quote = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// Breakers exposes the breaker registry for operator tooling
func (e *Executor) Breakers() *BreakerRegistry {
	return e.breakers
}

// classify maps raw deadline expiries onto the timeout kind so the retry
// and breaker policies treat them as transient. Already-classified errors
// and plain cancellations pass through untouched.
func classify(name string, err error) error {
	var de *errs.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.KindTimeout, err, "call deadline exceeded").WithProvider(name)
	}
	return err
}
