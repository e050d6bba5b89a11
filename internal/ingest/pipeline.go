package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
)

// IngestionResult reports one batch's outcome. A rejected batch writes
// nothing and carries the full issue list.
type IngestionResult struct {
	WrittenRows  int               `json:"written_rows"`
	RejectedRows int               `json:"rejected_rows"`
	BatchID      string            `json:"batch_id"`
	DurationMs   float64           `json:"duration_ms"`
	Issues       []ValidationIssue `json:"issues,omitempty"`
}

// Pipeline validates raw batches, scores them and persists the survivors.
// Rejection is all-or-nothing: one bad row fails the whole batch and no
// quality row is emitted for it.
type Pipeline struct {
	ohlcv   persistence.OHLCVRepo
	quality persistence.QualityRepo
	scorer  *Scorer
	logger  zerolog.Logger
}

// NewPipeline creates an ingestion pipeline over the repositories
func NewPipeline(ohlcv persistence.OHLCVRepo, quality persistence.QualityRepo, scorer *Scorer, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		ohlcv:   ohlcv,
		quality: quality,
		scorer:  scorer,
		logger:  logger.With().Str("component", "ingest").Logger(),
	}
}

// Ingest validates and commits one batch. Pass batchID == "" to have one
// generated. Re-running the same batch is idempotent: the landing table
// and quality rows upsert on their primary keys.
func (p *Pipeline) Ingest(ctx context.Context, records []RawRecord, batchID string) (*IngestionResult, error) {
	start := time.Now()
	if batchID == "" {
		batchID = uuid.NewString()
	}

	result := &IngestionResult{BatchID: batchID}

	issues := Validate(records)
	if len(issues) > 0 {
		result.RejectedRows = len(records)
		result.Issues = issues
		result.DurationMs = float64(time.Since(start).Microseconds()) / 1000
		p.logger.Warn().
			Str("batch_id", batchID).
			Int("rows", len(records)).
			Int("issues", len(issues)).
			Msg("batch rejected by validation")
		return result, nil
	}

	rows := make([]persistence.RawDailyRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, persistence.RawDailyRecord{
			Symbol:       rec.Symbol,
			Market:       rec.Market,
			TradeDate:    rec.Timestamp.UTC().Truncate(24 * time.Hour),
			Open:         deref(rec.Open),
			High:         deref(rec.High),
			Low:          deref(rec.Low),
			Close:        deref(rec.Close),
			Volume:       deref(rec.Volume),
			SourceSystem: rec.SourceSystem,
			Origin:       rec.Origin,
			BatchID:      batchID,
		})
	}

	if err := p.ohlcv.SaveRawDaily(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to persist batch %s: %w", batchID, err)
	}

	for key, group := range groupBySymbolMarket(records) {
		score := p.scorer.Score(group)
		metrics := qualityRow(key, group, score)
		if err := p.quality.SaveQuality(ctx, metrics); err != nil {
			// Quality bookkeeping failure does not undo a committed batch
			p.logger.Error().Err(err).
				Str("batch_id", batchID).
				Str("symbol", key.symbol).
				Msg("failed to save quality row")
		}
	}

	result.WrittenRows = len(records)
	result.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	p.logger.Info().
		Str("batch_id", batchID).
		Int("rows", len(records)).
		Float64("duration_ms", result.DurationMs).
		Msg("batch ingested")
	return result, nil
}

type groupKey struct {
	symbol string
	market models.Market
}

func groupBySymbolMarket(records []RawRecord) map[groupKey][]RawRecord {
	groups := make(map[groupKey][]RawRecord)
	for _, rec := range records {
		key := groupKey{symbol: rec.Symbol, market: rec.Market}
		groups[key] = append(groups[key], rec)
	}
	return groups
}

func qualityRow(key groupKey, group []RawRecord, score QualityScore) persistence.QualityMetrics {
	rangeStart, rangeEnd := group[0].Timestamp, group[0].Timestamp
	source := group[0].SourceSystem
	for _, rec := range group[1:] {
		if rec.Timestamp.Before(rangeStart) {
			rangeStart = rec.Timestamp
		}
		if rec.Timestamp.After(rangeEnd) {
			rangeEnd = rec.Timestamp
		}
	}

	return persistence.QualityMetrics{
		Symbol:         key.symbol,
		Market:         key.market,
		DateRangeStart: rangeStart.UTC().Truncate(24 * time.Hour),
		DateRangeEnd:   rangeEnd.UTC().Truncate(24 * time.Hour),
		Completeness:   derefScore(score.Completeness),
		Accuracy:       derefScore(score.Accuracy),
		Timeliness:     derefScore(score.Timeliness),
		Consistency:    derefScore(score.Consistency),
		Overall:        score.Overall,
		Level:          string(score.Level),
		RowCount:       len(group),
		Source:         source,
	}
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func derefScore(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
