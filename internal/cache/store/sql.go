package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore persists cache entries in the cache_entries table alongside the
// OHLCV data. Expiry is stored as a unix-seconds float so the sweep is a
// single indexed comparison.
type SQLStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSQLStore creates an L2 store over an existing database handle
func NewSQLStore(db *sqlx.DB, timeout time.Duration) *SQLStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SQLStore{db: db, timeout: timeout}
}

// Get returns the value for key iff its expiry is still in the future
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT value
		FROM cache_entries
		WHERE key = $1 AND expiry > $2`

	var value []byte
	err := s.db.QueryRowxContext(ctx, query, key, unixNow()).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return value, true, nil
}

// Set upserts the entry with expiry = now + ttl
func (s *SQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO cache_entries (key, value, expiry, created)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expiry = EXCLUDED.expiry,
			created = NOW()`

	expiry := unixNow() + ttl.Seconds()
	if _, err := s.db.ExecContext(ctx, query, key, value, expiry); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry if present
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear drops every cache entry
func (s *SQLStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	return nil
}

// CleanupExpired removes rows whose expiry has passed
func (s *SQLStore) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expiry <= $1`, unixNow())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept cache entries: %w", err)
	}
	return n, nil
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
