package provider

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketgate/internal/models"
)

func stockCapability() Capability {
	return Capability{
		AssetKinds:           []models.AssetKind{models.AssetStock},
		Markets:              []models.Market{models.MarketUS},
		Timeframes:           []models.Timeframe{models.Timeframe1d},
		MaxSymbolsPerRequest: 10,
		SupportsHistorical:   true,
	}
}

func stockQuery() models.DataQuery {
	return models.DataQuery{
		AssetKind: models.AssetStock,
		Market:    models.MarketUS,
		Symbols:   []string{"AAPL"},
		Timeframe: models.Timeframe1d,
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	require.NoError(t, r.Register(NewSimProvider("alpha", stockCapability())))
	err := r.Register(NewSimProvider("alpha", stockCapability()))
	assert.Error(t, err)
}

func TestRegistry_OrderPreserved(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, r.Register(NewSimProvider(name, stockCapability())))
	}

	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, r.Names())
}

func TestRegistry_FindCapable(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	require.NoError(t, r.Register(NewSimProvider("stocks", stockCapability())))
	require.NoError(t, r.Register(NewSimProvider("crypto", Capability{
		AssetKinds: []models.AssetKind{models.AssetCrypto},
		Markets:    []models.Market{models.MarketCrypto},
		Timeframes: []models.Timeframe{models.Timeframe1h},
	})))

	capable := r.FindCapable(stockQuery())
	require.Len(t, capable, 1)
	assert.Equal(t, "stocks", capable[0].Name())
}

func TestRegistry_FindCapableHonorsPin(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	require.NoError(t, r.Register(NewSimProvider("first", stockCapability())))
	require.NoError(t, r.Register(NewSimProvider("second", stockCapability())))

	query := stockQuery()
	query.Provider = "second"

	capable := r.FindCapable(query)
	require.Len(t, capable, 1)
	assert.Equal(t, "second", capable[0].Name())

	// Pinning a provider that cannot serve the query yields nothing
	query.Provider = "second"
	query.AssetKind = models.AssetCrypto
	assert.Empty(t, r.FindCapable(query))
}

func TestRegistry_FindCapableExcludesUnhealthy(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	require.NoError(t, r.Register(NewSimProvider("sick", stockCapability())))
	require.NoError(t, r.Register(NewSimProvider("well", stockCapability())))

	for i := 0; i < 3; i++ {
		r.RecordProbe("sick", false, 3, 2)
	}

	capable := r.FindCapable(stockQuery())
	require.Len(t, capable, 1)
	assert.Equal(t, "well", capable[0].Name())
}

func TestRegistry_ProbeHysteresis(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	require.NoError(t, r.Register(NewSimProvider("p", stockCapability())))

	// Starts healthy
	h, ok := r.Health("p")
	require.True(t, ok)
	assert.Equal(t, HealthHealthy, h.Status)

	// Two failures stay healthy, the third flips
	assert.Equal(t, HealthHealthy, r.RecordProbe("p", false, 3, 2))
	assert.Equal(t, HealthHealthy, r.RecordProbe("p", false, 3, 2))
	assert.Equal(t, HealthUnhealthy, r.RecordProbe("p", false, 3, 2))

	// One success is not enough to recover, two are
	assert.Equal(t, HealthUnhealthy, r.RecordProbe("p", true, 3, 2))
	assert.Equal(t, HealthHealthy, r.RecordProbe("p", true, 3, 2))

	h, _ = r.Health("p")
	assert.Equal(t, int64(5), h.TotalProbes)
	assert.Equal(t, int64(3), h.TotalFailures)
}

func TestCapability_Accepts(t *testing.T) {
	cap := stockCapability()

	assert.True(t, cap.Accepts(stockQuery()))

	wrongKind := stockQuery()
	wrongKind.AssetKind = models.AssetCrypto
	assert.False(t, cap.Accepts(wrongKind))

	wrongMarket := stockQuery()
	wrongMarket.Market = models.MarketHK
	assert.False(t, cap.Accepts(wrongMarket))

	wrongTimeframe := stockQuery()
	wrongTimeframe.Timeframe = models.Timeframe1m
	assert.False(t, cap.Accepts(wrongTimeframe))

	tooMany := stockQuery()
	tooMany.Symbols = make([]string, 11)
	assert.False(t, cap.Accepts(tooMany))

	// Absent market and timeframe are unconstrained
	open := models.DataQuery{AssetKind: models.AssetStock, Symbols: []string{"AAPL"}}
	assert.True(t, cap.Accepts(open))
}
