// Package persistence defines the repository contracts over the columnar
// store. Implementations live in subpackages; postgres is the production
// backend. All writes are idempotent upserts on the table's primary key.
package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/marketgate/internal/models"
)

// DataRecord is one persisted OHLCV row. The timeframe decides which table
// the row lands in; daily bars go to daily_ohlcv, everything smaller to
// intraday_ohlcv.
type DataRecord struct {
	Symbol    string                 `json:"symbol" db:"symbol"`
	AssetKind models.AssetKind       `json:"asset_kind" db:"asset_kind"`
	Market    models.Market          `json:"market" db:"market"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Open      decimal.Decimal        `json:"open" db:"open"`
	High      decimal.Decimal        `json:"high" db:"high"`
	Low       decimal.Decimal        `json:"low" db:"low"`
	Close     decimal.Decimal        `json:"close" db:"close"`
	Volume    decimal.Decimal        `json:"volume" db:"volume"`
	Amount    decimal.Decimal        `json:"amount" db:"amount"`
	Timeframe models.Timeframe       `json:"timeframe" db:"timeframe"`
	Provider  string                 `json:"provider" db:"provider"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RealtimeQuote is the latest observed quote for one symbol
type RealtimeQuote struct {
	Symbol    string          `json:"symbol" db:"symbol"`
	Market    models.Market   `json:"market" db:"market"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Volume    decimal.Decimal `json:"volume" db:"volume"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	Provider  string          `json:"provider" db:"provider"`
}

// QualityMetrics is one persisted data_quality row, keyed by symbol,
// market and the scored date range.
type QualityMetrics struct {
	Symbol         string        `json:"symbol" db:"symbol"`
	Market         models.Market `json:"market" db:"market"`
	DateRangeStart time.Time     `json:"date_range_start" db:"date_range_start"`
	DateRangeEnd   time.Time     `json:"date_range_end" db:"date_range_end"`
	Completeness   float64       `json:"completeness" db:"completeness"`
	Accuracy       float64       `json:"accuracy" db:"accuracy"`
	Timeliness     float64       `json:"timeliness" db:"timeliness"`
	Consistency    float64       `json:"consistency" db:"consistency"`
	Overall        float64       `json:"overall" db:"overall"`
	Level          string        `json:"level" db:"level"`
	RowCount       int           `json:"row_count" db:"row_count"`
	Source         string        `json:"source" db:"source"`
}

// QualityKey identifies one data_quality row
type QualityKey struct {
	Symbol         string
	Market         models.Market
	DateRangeStart time.Time
	DateRangeEnd   time.Time
}

// ProviderStatus is one persisted provider_status row written by the
// health checker after each probe round.
type ProviderStatus struct {
	Provider      string    `json:"provider" db:"provider"`
	Status        string    `json:"status" db:"status"`
	LastProbe     time.Time `json:"last_probe" db:"last_probe"`
	LatencyMs     float64   `json:"latency_ms" db:"latency_ms"`
	TotalProbes   int64     `json:"total_probes" db:"total_probes"`
	TotalFailures int64     `json:"total_failures" db:"total_failures"`
}

// RawDailyRecord is one row of the raw_ohlcv_daily landing table fed by
// the ingestion pipeline.
type RawDailyRecord struct {
	Symbol       string          `json:"symbol" db:"symbol"`
	Market       models.Market   `json:"market" db:"market"`
	TradeDate    time.Time       `json:"trade_date" db:"trade_date"`
	Open         decimal.Decimal `json:"open" db:"open"`
	High         decimal.Decimal `json:"high" db:"high"`
	Low          decimal.Decimal `json:"low" db:"low"`
	Close        decimal.Decimal `json:"close" db:"close"`
	Volume       decimal.Decimal `json:"volume" db:"volume"`
	SourceSystem string          `json:"source_system" db:"source_system"`
	Origin       string          `json:"origin" db:"origin"`
	BatchID      string          `json:"batch_id" db:"batch_id"`
}

// AssetRepo manages the asset_info reference table
type AssetRepo interface {
	SaveAssetInfo(ctx context.Context, asset models.Asset) error
	GetAssetInfo(ctx context.Context, symbol string, market models.Market) (*models.Asset, error)
	GetSymbolsByMarket(ctx context.Context, market models.Market) ([]string, error)
}

// OHLCVRepo manages the daily and intraday bar tables
type OHLCVRepo interface {
	// SaveOHLCV routes each record to the daily or intraday table by its
	// timeframe and upserts on the primary key
	SaveOHLCV(ctx context.Context, records []DataRecord) error

	// GetOHLCV range-scans ascending by time, choosing the table by timeframe
	GetOHLCV(ctx context.Context, symbol string, market models.Market, start, end time.Time, timeframe models.Timeframe) ([]DataRecord, error)

	// SaveRawDaily lands validated ingestion rows in raw_ohlcv_daily
	SaveRawDaily(ctx context.Context, records []RawDailyRecord) error
}

// QuoteRepo manages the real_time_quotes table
type QuoteRepo interface {
	SaveRealtimeQuote(ctx context.Context, quote RealtimeQuote) error
	GetRealtimeQuote(ctx context.Context, symbol string, market models.Market) (*RealtimeQuote, error)

	// GetLatestPrice prefers the realtime quote and falls back to the most
	// recent daily close
	GetLatestPrice(ctx context.Context, symbol string, market models.Market) (decimal.Decimal, error)
}

// QualityRepo manages the data_quality table
type QualityRepo interface {
	SaveQuality(ctx context.Context, metrics QualityMetrics) error
	GetQuality(ctx context.Context, key QualityKey) (*QualityMetrics, error)
}

// StatusRepo manages the provider_status table
type StatusRepo interface {
	SaveProviderStatus(ctx context.Context, status ProviderStatus) error
	GetProviderStatus(ctx context.Context, provider string) (*ProviderStatus, error)
}

// Repository bundles the per-table repos behind one handle
type Repository struct {
	Assets  AssetRepo
	OHLCV   OHLCVRepo
	Quotes  QuoteRepo
	Quality QualityRepo
	Status  StatusRepo
}
