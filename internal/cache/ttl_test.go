package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/marketgate/internal/models"
)

func TestTTLPolicyFor(t *testing.T) {
	p := DefaultTTLPolicy()

	assert.Equal(t, 5*time.Second, p.For(models.TimeframeTick))
	assert.Equal(t, 60*time.Second, p.For(models.Timeframe1m))
	assert.Equal(t, 300*time.Second, p.For(models.Timeframe5m))
	assert.Equal(t, 300*time.Second, p.For(models.Timeframe15m))
	assert.Equal(t, 300*time.Second, p.For(models.Timeframe30m))
	assert.Equal(t, 300*time.Second, p.For(models.Timeframe1h))
	assert.Equal(t, 3600*time.Second, p.For(models.Timeframe1d))
	assert.Equal(t, 86400*time.Second, p.For(models.Timeframe1w))
	assert.Equal(t, 86400*time.Second, p.For(models.Timeframe1M))

	// Unset timeframe falls back to the default
	assert.Equal(t, 3600*time.Second, p.For(""))
}

func TestTTLPolicyL1For(t *testing.T) {
	p := DefaultTTLPolicy()

	// L1 runs at half the L2 TTL, capped at five minutes
	assert.Equal(t, 2500*time.Millisecond, p.L1For(models.TimeframeTick))
	assert.Equal(t, 30*time.Second, p.L1For(models.Timeframe1m))
	assert.Equal(t, 150*time.Second, p.L1For(models.Timeframe1h))
	assert.Equal(t, 300*time.Second, p.L1For(models.Timeframe1d))
	assert.Equal(t, 300*time.Second, p.L1For(models.Timeframe1w))
}
