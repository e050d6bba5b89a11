package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements creates every table and index the repository needs.
// Statements are idempotent so Migrate can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS asset_info (
		symbol     TEXT NOT NULL,
		market     TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		asset_kind TEXT NOT NULL,
		currency   TEXT NOT NULL DEFAULT '',
		exchange   TEXT NOT NULL DEFAULT '',
		sector     TEXT NOT NULL DEFAULT '',
		industry   TEXT NOT NULL DEFAULT '',
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		metadata   JSONB,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, market)
	)`,

	`CREATE TABLE IF NOT EXISTS daily_ohlcv (
		symbol     TEXT NOT NULL,
		market     TEXT NOT NULL,
		trade_date DATE NOT NULL,
		asset_kind TEXT NOT NULL DEFAULT '',
		open       DECIMAL(18,6) NOT NULL,
		high       DECIMAL(18,6) NOT NULL,
		low        DECIMAL(18,6) NOT NULL,
		close      DECIMAL(18,6) NOT NULL,
		volume     DECIMAL(20,2) NOT NULL DEFAULT 0,
		amount     DECIMAL(20,2) NOT NULL DEFAULT 0,
		provider   TEXT NOT NULL DEFAULT '',
		metadata   JSONB,
		PRIMARY KEY (symbol, market, trade_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_symbol_date ON daily_ohlcv (symbol, trade_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_market_date ON daily_ohlcv (market, trade_date DESC)`,

	`CREATE TABLE IF NOT EXISTS intraday_ohlcv (
		symbol     TEXT NOT NULL,
		market     TEXT NOT NULL,
		timeframe  TEXT NOT NULL,
		timestamp  TIMESTAMPTZ NOT NULL,
		asset_kind TEXT NOT NULL DEFAULT '',
		open       DECIMAL(18,6) NOT NULL,
		high       DECIMAL(18,6) NOT NULL,
		low        DECIMAL(18,6) NOT NULL,
		close      DECIMAL(18,6) NOT NULL,
		volume     DECIMAL(20,2) NOT NULL DEFAULT 0,
		amount     DECIMAL(20,2) NOT NULL DEFAULT 0,
		provider   TEXT NOT NULL DEFAULT '',
		metadata   JSONB,
		PRIMARY KEY (symbol, market, timeframe, timestamp)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_intraday_symbol_tf_ts ON intraday_ohlcv (symbol, timeframe, timestamp DESC)`,

	`CREATE TABLE IF NOT EXISTS real_time_quotes (
		symbol    TEXT NOT NULL,
		market    TEXT NOT NULL,
		price     DECIMAL(18,6) NOT NULL,
		volume    DECIMAL(20,2) NOT NULL DEFAULT 0,
		timestamp TIMESTAMPTZ NOT NULL,
		provider  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (symbol, market)
	)`,

	`CREATE TABLE IF NOT EXISTS cache_entries (
		key     TEXT PRIMARY KEY,
		value   JSONB NOT NULL,
		expiry  DOUBLE PRECISION NOT NULL,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_expiry ON cache_entries (expiry)`,

	`CREATE TABLE IF NOT EXISTS data_quality (
		symbol           TEXT NOT NULL,
		market           TEXT NOT NULL,
		date_range_start TIMESTAMPTZ NOT NULL,
		date_range_end   TIMESTAMPTZ NOT NULL,
		completeness     DOUBLE PRECISION NOT NULL,
		accuracy         DOUBLE PRECISION NOT NULL,
		timeliness       DOUBLE PRECISION NOT NULL,
		consistency      DOUBLE PRECISION NOT NULL,
		overall          DOUBLE PRECISION NOT NULL,
		level            TEXT NOT NULL,
		row_count        INTEGER NOT NULL DEFAULT 0,
		source           TEXT NOT NULL DEFAULT '',
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, market, date_range_start, date_range_end)
	)`,

	`CREATE TABLE IF NOT EXISTS provider_status (
		provider       TEXT PRIMARY KEY,
		status         TEXT NOT NULL,
		last_probe     TIMESTAMPTZ NOT NULL,
		latency_ms     DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_probes   BIGINT NOT NULL DEFAULT 0,
		total_failures BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS raw_ohlcv_daily (
		symbol        TEXT NOT NULL,
		market        TEXT NOT NULL,
		trade_date    DATE NOT NULL,
		open          DECIMAL(18,6),
		high          DECIMAL(18,6),
		low           DECIMAL(18,6),
		close         DECIMAL(18,6),
		volume        DECIMAL(20,2),
		source_system TEXT NOT NULL DEFAULT '',
		origin        TEXT NOT NULL DEFAULT '',
		batch_id      TEXT NOT NULL DEFAULT '',
		loaded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, market, trade_date)
	)`,
}

// Migrate applies the schema. Safe to run repeatedly.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
