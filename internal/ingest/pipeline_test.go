package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/persistence"
)

// fakeOHLCVRepo captures saved rows in memory
type fakeOHLCVRepo struct {
	raw     []persistence.RawDailyRecord
	saveErr error
}

func (r *fakeOHLCVRepo) SaveOHLCV(ctx context.Context, records []persistence.DataRecord) error {
	return nil
}

func (r *fakeOHLCVRepo) GetOHLCV(ctx context.Context, symbol string, market models.Market, start, end time.Time, timeframe models.Timeframe) ([]persistence.DataRecord, error) {
	return nil, nil
}

func (r *fakeOHLCVRepo) SaveRawDaily(ctx context.Context, records []persistence.RawDailyRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.raw = append(r.raw, records...)
	return nil
}

// fakeQualityRepo captures quality rows in memory
type fakeQualityRepo struct {
	rows []persistence.QualityMetrics
}

func (r *fakeQualityRepo) SaveQuality(ctx context.Context, metrics persistence.QualityMetrics) error {
	r.rows = append(r.rows, metrics)
	return nil
}

func (r *fakeQualityRepo) GetQuality(ctx context.Context, key persistence.QualityKey) (*persistence.QualityMetrics, error) {
	return nil, nil
}

func newTestPipeline(ohlcv *fakeOHLCVRepo, quality *fakeQualityRepo) *Pipeline {
	return NewPipeline(ohlcv, quality, NewScorer(DefaultScoreWeights()), zerolog.Nop())
}

func TestPipeline_CleanBatchCommits(t *testing.T) {
	ohlcv := &fakeOHLCVRepo{}
	quality := &fakeQualityRepo{}
	p := newTestPipeline(ohlcv, quality)

	records := []RawRecord{
		rawRow("AAPL", 1, 100, 105, 98, 103),
		rawRow("AAPL", 2, 103, 108, 101, 107),
		rawRow("MSFT", 1, 200, 210, 195, 205),
	}

	result, err := p.Ingest(context.Background(), records, "batch-1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.WrittenRows)
	assert.Equal(t, 0, result.RejectedRows)
	assert.Equal(t, "batch-1", result.BatchID)
	assert.Empty(t, result.Issues)

	require.Len(t, ohlcv.raw, 3)
	for _, row := range ohlcv.raw {
		assert.Equal(t, "batch-1", row.BatchID)
		assert.Equal(t, "feed-a", row.SourceSystem)
	}

	// One quality row per (symbol, market) group
	require.Len(t, quality.rows, 2)
}

func TestPipeline_BadBatchWritesNothing(t *testing.T) {
	ohlcv := &fakeOHLCVRepo{}
	quality := &fakeQualityRepo{}
	p := newTestPipeline(ohlcv, quality)

	records := []RawRecord{
		rawRow("AAPL", 1, 100, 105, 98, 103),
		rawRow("AAPL", 1, 100, 105, 98, 103), // duplicate poisons the batch
		rawRow("MSFT", 1, 200, 210, 195, 205),
	}

	result, err := p.Ingest(context.Background(), records, "batch-2")
	require.NoError(t, err)

	assert.Equal(t, 0, result.WrittenRows)
	assert.Equal(t, 3, result.RejectedRows, "rejection is all-or-nothing")
	assert.NotEmpty(t, result.Issues)

	assert.Empty(t, ohlcv.raw, "rejected batch must not touch the landing table")
	assert.Empty(t, quality.rows, "rejected batch must not emit quality rows")
}

func TestPipeline_GeneratesBatchID(t *testing.T) {
	p := newTestPipeline(&fakeOHLCVRepo{}, &fakeQualityRepo{})

	result, err := p.Ingest(context.Background(), []RawRecord{
		rawRow("AAPL", 1, 100, 105, 98, 103),
	}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
}

func TestPipeline_StorageFailurePropagates(t *testing.T) {
	ohlcv := &fakeOHLCVRepo{saveErr: errors.New("disk full")}
	p := newTestPipeline(ohlcv, &fakeQualityRepo{})

	_, err := p.Ingest(context.Background(), []RawRecord{
		rawRow("AAPL", 1, 100, 105, 98, 103),
	}, "batch-3")
	require.Error(t, err)
}

func TestPipeline_QualityRowCoversGroupRange(t *testing.T) {
	quality := &fakeQualityRepo{}
	p := newTestPipeline(&fakeOHLCVRepo{}, quality)

	_, err := p.Ingest(context.Background(), []RawRecord{
		rawRow("AAPL", 3, 100, 105, 98, 103),
		rawRow("AAPL", 7, 103, 108, 101, 107),
		rawRow("AAPL", 12, 107, 112, 105, 110),
	}, "batch-4")
	require.NoError(t, err)

	require.Len(t, quality.rows, 1)
	row := quality.rows[0]
	assert.Equal(t, "AAPL", row.Symbol)
	assert.Equal(t, 3, row.RowCount)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), row.DateRangeStart)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), row.DateRangeEnd)
	assert.Equal(t, string(LevelExcellent), row.Level)
}
