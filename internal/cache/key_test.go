package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/marketgate/internal/models"
)

func TestKey_Format(t *testing.T) {
	key := Key(models.DataQuery{AssetKind: models.AssetStock, Symbols: []string{"AAPL"}})
	assert.Len(t, key, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", key)
}

func TestKey_Deterministic(t *testing.T) {
	q := models.DataQuery{
		AssetKind: models.AssetStock,
		Market:    models.MarketUS,
		Symbols:   []string{"AAPL", "MSFT"},
		Timeframe: models.Timeframe1d,
	}
	assert.Equal(t, Key(q), Key(q))
}

func TestKey_SymbolOrderShared(t *testing.T) {
	a := models.DataQuery{AssetKind: models.AssetStock, Symbols: []string{"AAPL", "MSFT"}}
	b := models.DataQuery{AssetKind: models.AssetStock, Symbols: []string{"MSFT", "AAPL"}}
	assert.Equal(t, Key(a), Key(b))
}

func TestKey_DistinctQueries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base := models.DataQuery{AssetKind: models.AssetStock, Symbols: []string{"AAPL"}, Timeframe: models.Timeframe1d}

	other := base
	other.Timeframe = models.Timeframe1h
	assert.NotEqual(t, Key(base), Key(other))

	ranged := base
	ranged.Start = &start
	assert.NotEqual(t, Key(base), Key(ranged))
}
