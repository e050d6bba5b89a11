package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
)

func TestSaveRealtimeQuote(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db, time.Second)

	mock.ExpectExec(`INSERT INTO real_time_quotes`).
		WithArgs("AAPL", models.MarketUS, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "sim").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveRealtimeQuote(context.Background(), persistence.RealtimeQuote{
		Symbol:    "AAPL",
		Market:    models.MarketUS,
		Price:     decimal.NewFromFloat(187.42),
		Volume:    decimal.NewFromInt(250),
		Timestamp: time.Now().UTC(),
		Provider:  "sim",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRealtimeQuote_Absent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db, time.Second)

	mock.ExpectQuery(`SELECT .+ FROM real_time_quotes`).
		WithArgs("AAPL", models.MarketUS).
		WillReturnRows(sqlmock.NewRows([]string{"symbol", "market", "price", "volume", "timestamp", "provider"}))

	quote, err := repo.GetRealtimeQuote(context.Background(), "AAPL", models.MarketUS)
	require.NoError(t, err)
	assert.Nil(t, quote)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestPrice_PrefersRealtimeQuote(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db, time.Second)

	mock.ExpectQuery(`SELECT .+ FROM real_time_quotes`).
		WithArgs("AAPL", models.MarketUS).
		WillReturnRows(sqlmock.NewRows([]string{"symbol", "market", "price", "volume", "timestamp", "provider"}).
			AddRow("AAPL", "us", "187.42", "250", time.Now().UTC(), "sim"))

	price, err := repo.GetLatestPrice(context.Background(), "AAPL", models.MarketUS)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromFloat(187.42)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestPrice_FallsBackToDailyClose(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db, time.Second)

	mock.ExpectQuery(`SELECT .+ FROM real_time_quotes`).
		WithArgs("AAPL", models.MarketUS).
		WillReturnRows(sqlmock.NewRows([]string{"symbol", "market", "price", "volume", "timestamp", "provider"}))

	mock.ExpectQuery(`SELECT close\s+FROM daily_ohlcv`).
		WithArgs("AAPL", models.MarketUS).
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow("185.10"))

	price, err := repo.GetLatestPrice(context.Background(), "AAPL", models.MarketUS)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromFloat(185.10)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestPrice_NoData(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepo(db, time.Second)

	mock.ExpectQuery(`SELECT .+ FROM real_time_quotes`).
		WithArgs("AAPL", models.MarketUS).
		WillReturnRows(sqlmock.NewRows([]string{"symbol", "market", "price", "volume", "timestamp", "provider"}))

	mock.ExpectQuery(`SELECT close\s+FROM daily_ohlcv`).
		WithArgs("AAPL", models.MarketUS).
		WillReturnRows(sqlmock.NewRows([]string{"close"}))

	_, err := repo.GetLatestPrice(context.Background(), "AAPL", models.MarketUS)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
