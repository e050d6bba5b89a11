package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/marketgate/internal/persistence"
)

// statusRepo implements StatusRepo for PostgreSQL
type statusRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewStatusRepo creates a PostgreSQL provider-status repository
func NewStatusRepo(db *sqlx.DB, timeout time.Duration) persistence.StatusRepo {
	return &statusRepo{db: db, timeout: timeout}
}

// SaveProviderStatus upserts the latest probe outcome for a provider
func (r *statusRepo) SaveProviderStatus(ctx context.Context, status persistence.ProviderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO provider_status (provider, status, last_probe, latency_ms, total_probes, total_failures)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider) DO UPDATE SET
			status = EXCLUDED.status,
			last_probe = EXCLUDED.last_probe,
			latency_ms = EXCLUDED.latency_ms,
			total_probes = EXCLUDED.total_probes,
			total_failures = EXCLUDED.total_failures`

	_, err := r.db.ExecContext(ctx, query,
		status.Provider, status.Status, status.LastProbe,
		status.LatencyMs, status.TotalProbes, status.TotalFailures)
	if err != nil {
		return fmt.Errorf("failed to save provider status: %w", err)
	}
	return nil
}

// GetProviderStatus selects the latest status row, nil when absent
func (r *statusRepo) GetProviderStatus(ctx context.Context, provider string) (*persistence.ProviderStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT provider, status, last_probe, latency_ms, total_probes, total_failures
		FROM provider_status
		WHERE provider = $1`

	var s persistence.ProviderStatus
	err := r.db.QueryRowxContext(ctx, query, provider).Scan(
		&s.Provider, &s.Status, &s.LastProbe, &s.LatencyMs,
		&s.TotalProbes, &s.TotalFailures)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider status: %w", err)
	}
	return &s, nil
}
