package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
)

// ohlcvRepo implements OHLCVRepo for PostgreSQL
type ohlcvRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOHLCVRepo creates a PostgreSQL OHLCV repository
func NewOHLCVRepo(db *sqlx.DB, timeout time.Duration) persistence.OHLCVRepo {
	return &ohlcvRepo{db: db, timeout: timeout}
}

// SaveOHLCV upserts a batch, routing each record by its timeframe: daily
// and larger bars to daily_ohlcv, everything smaller to intraday_ohlcv.
// The timeframe field decides the target table; wall-clock time-of-day
// never does.
func (r *ohlcvRepo) SaveOHLCV(ctx context.Context, records []persistence.DataRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(records)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dailyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_ohlcv (symbol, market, trade_date, asset_kind, open, high, low, close, volume, amount, provider, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (symbol, market, trade_date) DO UPDATE SET
			asset_kind = EXCLUDED.asset_kind,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount,
			provider = EXCLUDED.provider,
			metadata = EXCLUDED.metadata`)
	if err != nil {
		return fmt.Errorf("failed to prepare daily upsert: %w", err)
	}
	defer dailyStmt.Close()

	intradayStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO intraday_ohlcv (symbol, market, timeframe, timestamp, asset_kind, open, high, low, close, volume, amount, provider, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (symbol, market, timeframe, timestamp) DO UPDATE SET
			asset_kind = EXCLUDED.asset_kind,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount,
			provider = EXCLUDED.provider,
			metadata = EXCLUDED.metadata`)
	if err != nil {
		return fmt.Errorf("failed to prepare intraday upsert: %w", err)
	}
	defer intradayStmt.Close()

	for _, rec := range records {
		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal record metadata: %w", err)
		}

		if rec.Timeframe.Intraday() {
			_, err = intradayStmt.ExecContext(ctx,
				rec.Symbol, rec.Market, rec.Timeframe, rec.Timestamp, rec.AssetKind,
				rec.Open, rec.High, rec.Low, rec.Close, rec.Volume, rec.Amount,
				rec.Provider, metadataJSON)
		} else {
			_, err = dailyStmt.ExecContext(ctx,
				rec.Symbol, rec.Market, rec.Timestamp, rec.AssetKind,
				rec.Open, rec.High, rec.Low, rec.Close, rec.Volume, rec.Amount,
				rec.Provider, metadataJSON)
		}
		if err != nil {
			return fmt.Errorf("failed to upsert OHLCV record %s@%s: %w",
				rec.Symbol, rec.Timestamp.Format(time.RFC3339), err)
		}
	}

	return tx.Commit()
}

// GetOHLCV range-scans ascending by time, choosing the table by timeframe
func (r *ohlcvRepo) GetOHLCV(ctx context.Context, symbol string, market models.Market, start, end time.Time, timeframe models.Timeframe) ([]persistence.DataRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if timeframe.Intraday() {
		return r.getIntraday(ctx, symbol, market, start, end, timeframe)
	}
	return r.getDaily(ctx, symbol, market, start, end, timeframe)
}

func (r *ohlcvRepo) getDaily(ctx context.Context, symbol string, market models.Market, start, end time.Time, timeframe models.Timeframe) ([]persistence.DataRecord, error) {
	query := `
		SELECT symbol, market, trade_date, asset_kind, open, high, low, close, volume, amount, provider, metadata
		FROM daily_ohlcv
		WHERE symbol = $1 AND market = $2 AND trade_date >= $3 AND trade_date <= $4
		ORDER BY trade_date ASC`

	rows, err := r.db.QueryxContext(ctx, query, symbol, market, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily OHLCV: %w", err)
	}
	defer rows.Close()

	var records []persistence.DataRecord
	for rows.Next() {
		var rec persistence.DataRecord
		var metadataJSON []byte
		if err := rows.Scan(&rec.Symbol, &rec.Market, &rec.Timestamp, &rec.AssetKind,
			&rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume, &rec.Amount,
			&rec.Provider, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan daily OHLCV row: %w", err)
		}
		rec.Timeframe = timeframe
		if err := unmarshalMetadata(metadataJSON, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily OHLCV rows: %w", err)
	}
	return records, nil
}

func (r *ohlcvRepo) getIntraday(ctx context.Context, symbol string, market models.Market, start, end time.Time, timeframe models.Timeframe) ([]persistence.DataRecord, error) {
	query := `
		SELECT symbol, market, timeframe, timestamp, asset_kind, open, high, low, close, volume, amount, provider, metadata
		FROM intraday_ohlcv
		WHERE symbol = $1 AND market = $2 AND timeframe = $3 AND timestamp >= $4 AND timestamp <= $5
		ORDER BY timestamp ASC`

	rows, err := r.db.QueryxContext(ctx, query, symbol, market, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query intraday OHLCV: %w", err)
	}
	defer rows.Close()

	var records []persistence.DataRecord
	for rows.Next() {
		var rec persistence.DataRecord
		var metadataJSON []byte
		if err := rows.Scan(&rec.Symbol, &rec.Market, &rec.Timeframe, &rec.Timestamp, &rec.AssetKind,
			&rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume, &rec.Amount,
			&rec.Provider, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan intraday OHLCV row: %w", err)
		}
		if err := unmarshalMetadata(metadataJSON, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intraday OHLCV rows: %w", err)
	}
	return records, nil
}

// SaveRawDaily upserts ingestion rows into the raw landing table
func (r *ohlcvRepo) SaveRawDaily(ctx context.Context, records []persistence.RawDailyRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(records)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_ohlcv_daily (symbol, market, trade_date, open, high, low, close, volume, source_system, origin, batch_id, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (symbol, market, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			source_system = EXCLUDED.source_system,
			origin = EXCLUDED.origin,
			batch_id = EXCLUDED.batch_id,
			loaded_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to prepare raw daily upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err = stmt.ExecContext(ctx,
			rec.Symbol, rec.Market, rec.TradeDate,
			rec.Open, rec.High, rec.Low, rec.Close, rec.Volume,
			rec.SourceSystem, rec.Origin, rec.BatchID)
		if err != nil {
			return fmt.Errorf("failed to upsert raw daily row %s@%s: %w",
				rec.Symbol, rec.TradeDate.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

func unmarshalMetadata(metadataJSON []byte, rec *persistence.DataRecord) error {
	if len(metadataJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
		return fmt.Errorf("failed to unmarshal record metadata: %w", err)
	}
	return nil
}
