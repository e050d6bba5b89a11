package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/marketgate/internal/persistence"
)

// qualityRepo implements QualityRepo for PostgreSQL
type qualityRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewQualityRepo creates a PostgreSQL data-quality repository
func NewQualityRepo(db *sqlx.DB, timeout time.Duration) persistence.QualityRepo {
	return &qualityRepo{db: db, timeout: timeout}
}

// SaveQuality upserts one metrics row keyed (symbol, market, range)
func (r *qualityRepo) SaveQuality(ctx context.Context, metrics persistence.QualityMetrics) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO data_quality (symbol, market, date_range_start, date_range_end,
			completeness, accuracy, timeliness, consistency, overall, level, row_count, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (symbol, market, date_range_start, date_range_end) DO UPDATE SET
			completeness = EXCLUDED.completeness,
			accuracy = EXCLUDED.accuracy,
			timeliness = EXCLUDED.timeliness,
			consistency = EXCLUDED.consistency,
			overall = EXCLUDED.overall,
			level = EXCLUDED.level,
			row_count = EXCLUDED.row_count,
			source = EXCLUDED.source,
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		metrics.Symbol, metrics.Market, metrics.DateRangeStart, metrics.DateRangeEnd,
		metrics.Completeness, metrics.Accuracy, metrics.Timeliness, metrics.Consistency,
		metrics.Overall, metrics.Level, metrics.RowCount, metrics.Source)
	if err != nil {
		return fmt.Errorf("failed to save quality metrics: %w", err)
	}
	return nil
}

// GetQuality selects one metrics row, nil when absent
func (r *qualityRepo) GetQuality(ctx context.Context, key persistence.QualityKey) (*persistence.QualityMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, market, date_range_start, date_range_end,
			completeness, accuracy, timeliness, consistency, overall, level, row_count, source
		FROM data_quality
		WHERE symbol = $1 AND market = $2 AND date_range_start = $3 AND date_range_end = $4`

	var m persistence.QualityMetrics
	err := r.db.QueryRowxContext(ctx, query,
		key.Symbol, key.Market, key.DateRangeStart, key.DateRangeEnd).Scan(
		&m.Symbol, &m.Market, &m.DateRangeStart, &m.DateRangeEnd,
		&m.Completeness, &m.Accuracy, &m.Timeliness, &m.Consistency,
		&m.Overall, &m.Level, &m.RowCount, &m.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quality metrics: %w", err)
	}
	return &m, nil
}
