// Package store provides the persistent (L2) cache backends. Both backends
// implement the same Store contract: get returns unexpired values only,
// set upserts with a TTL, and expired rows are swept lazily by an explicit
// CleanupExpired call rather than a background timer.
package store

import (
	"context"
	"time"
)

// Store is the L2 key-value contract
type Store interface {
	// Get returns the value for key iff it has not expired
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set upserts key with expiry = now + ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key if present
	Delete(ctx context.Context, key string) error

	// Clear drops all entries
	Clear(ctx context.Context) error

	// CleanupExpired sweeps rows whose expiry has passed, returning the
	// number removed
	CleanupExpired(ctx context.Context) (int64, error)
}
