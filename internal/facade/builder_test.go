package facade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketgate/internal/models"
)

func TestBuilder_FullQuery(t *testing.T) {
	query, err := NewQuery("stock").
		Market("us").
		Symbols("AAPL", "MSFT").
		Timeframe("1d").
		Range("2024-01-01", "2024-06-30").
		Provider("sim-fast").
		Limit(100).
		Fields("open", "close").
		Filter("adjust", "qfq").
		Build()
	require.NoError(t, err)

	assert.Equal(t, models.AssetStock, query.AssetKind)
	assert.Equal(t, models.MarketUS, query.Market)
	assert.Equal(t, []string{"AAPL", "MSFT"}, query.Symbols)
	assert.Equal(t, models.Timeframe1d, query.Timeframe)
	require.NotNil(t, query.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *query.Start)
	assert.Equal(t, "sim-fast", query.Provider)
	assert.Equal(t, 100, query.Limit)
	assert.Equal(t, "qfq", query.Filters["adjust"])
}

func TestBuilder_RFC3339Range(t *testing.T) {
	query, err := NewQuery("crypto").
		Symbols("BTC").
		Range("2024-03-01T09:30:00Z", "2024-03-01T16:00:00Z").
		Build()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), *query.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC), *query.End)
}

func TestBuilder_InvalidEnums(t *testing.T) {
	_, err := NewQuery("bond").Symbols("X").Build()
	assert.Error(t, err)

	_, err = NewQuery("stock").Market("jp").Symbols("X").Build()
	assert.Error(t, err)

	_, err = NewQuery("stock").Timeframe("2h").Symbols("X").Build()
	assert.Error(t, err)
}

func TestBuilder_InvalidDates(t *testing.T) {
	_, err := NewQuery("stock").Range("03/01/2024", "").Build()
	assert.Error(t, err)
}

func TestBuilder_StartAfterEnd(t *testing.T) {
	_, err := NewQuery("stock").Range("2024-06-30", "2024-01-01").Build()
	assert.Error(t, err)
}

func TestBuilder_EmptyRangeOk(t *testing.T) {
	query, err := NewQuery("stock").Symbols("AAPL").Build()
	require.NoError(t, err)
	assert.Nil(t, query.Start)
	assert.Nil(t, query.End)
}
