package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
)

// quoteRepo implements QuoteRepo for PostgreSQL
type quoteRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewQuoteRepo creates a PostgreSQL realtime-quote repository
func NewQuoteRepo(db *sqlx.DB, timeout time.Duration) persistence.QuoteRepo {
	return &quoteRepo{db: db, timeout: timeout}
}

// SaveRealtimeQuote upserts the latest quote keyed (symbol, market)
func (r *quoteRepo) SaveRealtimeQuote(ctx context.Context, quote persistence.RealtimeQuote) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO real_time_quotes (symbol, market, price, volume, timestamp, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, market) DO UPDATE SET
			price = EXCLUDED.price,
			volume = EXCLUDED.volume,
			timestamp = EXCLUDED.timestamp,
			provider = EXCLUDED.provider`

	_, err := r.db.ExecContext(ctx, query,
		quote.Symbol, quote.Market, quote.Price, quote.Volume, quote.Timestamp, quote.Provider)
	if err != nil {
		return fmt.Errorf("failed to save realtime quote: %w", err)
	}
	return nil
}

// GetRealtimeQuote selects the latest quote, nil when absent
func (r *quoteRepo) GetRealtimeQuote(ctx context.Context, symbol string, market models.Market) (*persistence.RealtimeQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, market, price, volume, timestamp, provider
		FROM real_time_quotes
		WHERE symbol = $1 AND market = $2`

	var quote persistence.RealtimeQuote
	err := r.db.QueryRowxContext(ctx, query, symbol, market).Scan(
		&quote.Symbol, &quote.Market, &quote.Price, &quote.Volume,
		&quote.Timestamp, &quote.Provider)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get realtime quote: %w", err)
	}
	return &quote, nil
}

// GetLatestPrice prefers the realtime quote and falls back to the most
// recent daily close.
func (r *quoteRepo) GetLatestPrice(ctx context.Context, symbol string, market models.Market) (decimal.Decimal, error) {
	quote, err := r.GetRealtimeQuote(ctx, symbol, market)
	if err != nil {
		return decimal.Zero, err
	}
	if quote != nil {
		return quote.Price, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT close
		FROM daily_ohlcv
		WHERE symbol = $1 AND market = $2
		ORDER BY trade_date DESC
		LIMIT 1`

	var price decimal.Decimal
	err = r.db.QueryRowxContext(ctx, query, symbol, market).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("no price data for %s/%s", symbol, market)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get latest daily close: %w", err)
	}
	return price, nil
}
