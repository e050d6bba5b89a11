package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/marketgate/internal/cache/store"
	"github.com/sawpanic/marketgate/internal/models"
)

// TieredCache orchestrates the in-memory L1 and persistent L2 tiers.
// Reads go L1 → L2 with L1 write-back; writes go L2-first so a crash
// between the two writes leaves L2 authoritative. L2 faults trip a
// gobreaker so a broken store degrades the cache to L1-only instead of
// stalling the query path.
type TieredCache struct {
	l1      *L1Cache
	l2      store.Store
	policy  TTLPolicy
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewTieredCache creates the two-tier cache
func NewTieredCache(l1 *L1Cache, l2 store.Store, policy TTLPolicy, logger zerolog.Logger) *TieredCache {
	logger = logger.With().Str("component", "cache").Logger()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cache-l2",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("L2 store breaker state change")
		},
	})

	return &TieredCache{
		l1:      l1,
		l2:      l2,
		policy:  policy,
		breaker: breaker,
		logger:  logger,
	}
}

// Get looks up the cached response for a query. An L2 hit is written back
// to L1 with the shorter L1 TTL.
func (tc *TieredCache) Get(ctx context.Context, query models.DataQuery) (*models.DataResponse, bool) {
	key := Key(query)

	if raw, ok := tc.l1.Get(key); ok {
		if resp := decodeResponse(raw, tc.logger); resp != nil {
			return resp, true
		}
	}

	raw, ok := tc.l2Get(ctx, key)
	if !ok {
		return nil, false
	}
	resp := decodeResponse(raw, tc.logger)
	if resp == nil {
		return nil, false
	}

	tc.l1.Set(key, raw, tc.policy.L1For(query.Timeframe))
	return resp, true
}

// Set stores the response in both tiers, L2 first with the full TTL and
// then L1 with the shorter one. An L2 write failure is non-fatal: the
// entry still lands in L1 and the error is reported to the caller as a
// warning candidate.
func (tc *TieredCache) Set(ctx context.Context, query models.DataQuery, resp *models.DataResponse) error {
	key := Key(query)

	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	l2Err := tc.l2Set(ctx, key, raw, tc.policy.For(query.Timeframe))
	tc.l1.Set(key, raw, tc.policy.L1For(query.Timeframe))
	return l2Err
}

// Invalidate removes the entry for one query from both tiers
func (tc *TieredCache) Invalidate(ctx context.Context, query models.DataQuery) error {
	key := Key(query)
	tc.l1.Delete(key)

	_, err := tc.breaker.Execute(func() (interface{}, error) {
		return nil, tc.l2.Delete(ctx, key)
	})
	return err
}

// Clear drops everything from both tiers
func (tc *TieredCache) Clear(ctx context.Context) error {
	tc.l1.Clear()
	_, err := tc.breaker.Execute(func() (interface{}, error) {
		return nil, tc.l2.Clear(ctx)
	})
	return err
}

// CleanupExpired sweeps expired L2 rows, returning the count removed
func (tc *TieredCache) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := tc.breaker.Execute(func() (interface{}, error) {
		return tc.l2.CleanupExpired(ctx)
	})
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

// L1 exposes the in-memory tier for stats and tests
func (tc *TieredCache) L1() *L1Cache {
	return tc.l1
}

func (tc *TieredCache) l2Get(ctx context.Context, key string) ([]byte, bool) {
	result, err := tc.breaker.Execute(func() (interface{}, error) {
		raw, ok, err := tc.l2.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return raw, nil
	})
	if err != nil {
		tc.logger.Warn().Err(err).Str("key", key).Msg("L2 read failed, treating as miss")
		return nil, false
	}
	if result == nil {
		return nil, false
	}
	return result.([]byte), true
}

func (tc *TieredCache) l2Set(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	_, err := tc.breaker.Execute(func() (interface{}, error) {
		return nil, tc.l2.Set(ctx, key, raw, ttl)
	})
	if err != nil {
		tc.logger.Warn().Err(err).Str("key", key).Msg("L2 write failed, entry is L1-only")
	}
	return err
}

func decodeResponse(raw []byte, logger zerolog.Logger) *models.DataResponse {
	var resp models.DataResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.Warn().Err(err).Msg("corrupt cache entry, treating as miss")
		return nil
	}
	return &resp
}
