package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sawpanic/marketgate/internal/models"
)

// Key derives the cache key for a query: SHA-256 of the canonical form,
// truncated to 16 hex chars. Stable across process restarts; two queries
// with the same canonical form always share one entry.
func Key(query models.DataQuery) string {
	sum := sha256.Sum256([]byte(query.Canonical()))
	return hex.EncodeToString(sum[:])[:16]
}
