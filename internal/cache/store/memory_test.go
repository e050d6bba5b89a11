package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("v1"), time.Hour))

	value, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, s.Delete(ctx, "k1"))
	_, ok, _ = s.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryStore_ExpiryAndSweep(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "stale", []byte("x"), -time.Second))
	require.NoError(t, s.Set(ctx, "fresh", []byte("y"), time.Hour))

	// Expired entries miss lazily
	_, ok, err := s.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, _ = s.Get(ctx, "fresh")
	assert.True(t, ok)
}
