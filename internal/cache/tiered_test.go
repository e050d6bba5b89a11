package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketgate/internal/cache/store"
	"github.com/sawpanic/marketgate/internal/models"
)

func newTestTiered(t *testing.T, l2 store.Store) *TieredCache {
	t.Helper()
	l1, err := NewL1Cache(100)
	require.NoError(t, err)
	return NewTieredCache(l1, l2, DefaultTTLPolicy(), zerolog.Nop())
}

func testQuery() models.DataQuery {
	return models.DataQuery{
		AssetKind: models.AssetStock,
		Market:    models.MarketUS,
		Symbols:   []string{"AAPL"},
		Timeframe: models.Timeframe1d,
	}
}

func testResponse(query models.DataQuery) *models.DataResponse {
	return &models.DataResponse{
		Data: []models.DataPoint{{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Open:      decimal.NewFromFloat(100),
			High:      decimal.NewFromFloat(105),
			Low:       decimal.NewFromFloat(98),
			Close:     decimal.NewFromFloat(103),
			Volume:    decimal.NewFromInt(1000),
		}},
		Metadata: models.ResponseMetadata{RecordCount: 1, Warnings: []string{}},
		Query:    query,
	}
}

func TestTieredCache_SetThenGet(t *testing.T) {
	tc := newTestTiered(t, store.NewMemoryStore())
	ctx := context.Background()
	query := testQuery()

	_, ok := tc.Get(ctx, query)
	assert.False(t, ok)

	require.NoError(t, tc.Set(ctx, query, testResponse(query)))

	resp, ok := tc.Get(ctx, query)
	require.True(t, ok)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "AAPL", resp.Data[0].Symbol)
	assert.True(t, resp.Data[0].Close.Equal(decimal.NewFromFloat(103)))
}

func TestTieredCache_L2HitWritesBackToL1(t *testing.T) {
	l2 := store.NewMemoryStore()
	tc := newTestTiered(t, l2)
	ctx := context.Background()
	query := testQuery()

	require.NoError(t, tc.Set(ctx, query, testResponse(query)))

	// Drop L1 so the next read has to come from L2
	tc.L1().Clear()
	assert.False(t, tc.L1().Contains(Key(query)))

	_, ok := tc.Get(ctx, query)
	require.True(t, ok)

	// The L2 hit is promoted back into L1
	assert.True(t, tc.L1().Contains(Key(query)))
}

func TestTieredCache_Invalidate(t *testing.T) {
	tc := newTestTiered(t, store.NewMemoryStore())
	ctx := context.Background()
	query := testQuery()

	require.NoError(t, tc.Set(ctx, query, testResponse(query)))
	require.NoError(t, tc.Invalidate(ctx, query))

	_, ok := tc.Get(ctx, query)
	assert.False(t, ok)
}

func TestTieredCache_L2FailureDegradesToL1(t *testing.T) {
	tc := newTestTiered(t, &failingStore{})
	ctx := context.Background()
	query := testQuery()

	// The L2 write fails but the entry still lands in L1
	err := tc.Set(ctx, query, testResponse(query))
	assert.Error(t, err)

	resp, ok := tc.Get(ctx, query)
	require.True(t, ok)
	assert.Equal(t, "AAPL", resp.Data[0].Symbol)
}

func TestTieredCache_L2BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	l2 := &failingStore{}
	tc := newTestTiered(t, l2)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		query := testQuery()
		query.Symbols = []string{string(rune('A' + i))}
		tc.Set(ctx, query, testResponse(query))
	}

	// After the breaker opens the store stops being called
	callsAtTrip := l2.calls
	query := testQuery()
	query.Symbols = []string{"ZZZ"}
	tc.Set(ctx, query, testResponse(query))
	assert.Equal(t, callsAtTrip, l2.calls, "open breaker should short-circuit L2 calls")
}

func TestTieredCache_CleanupExpired(t *testing.T) {
	l2 := store.NewMemoryStore()
	tc := newTestTiered(t, l2)
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, "stale", []byte("x"), -time.Second))
	require.NoError(t, l2.Set(ctx, "fresh", []byte("y"), time.Hour))

	removed, err := tc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

// failingStore errors on every operation, simulating a broken L2 backend
type failingStore struct {
	calls int
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.calls++
	return nil, false, errors.New("store down")
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.calls++
	return errors.New("store down")
}

func (s *failingStore) Delete(ctx context.Context, key string) error {
	s.calls++
	return errors.New("store down")
}

func (s *failingStore) Clear(ctx context.Context) error {
	s.calls++
	return errors.New("store down")
}

func (s *failingStore) CleanupExpired(ctx context.Context) (int64, error) {
	s.calls++
	return 0, errors.New("store down")
}
