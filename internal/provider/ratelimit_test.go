package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketgate/internal/models"
)

func TestLimiterSet_BurstThenThrottle(t *testing.T) {
	ls := NewLimiterSet()
	p := NewSimProvider("limited", Capability{
		AssetKinds: []models.AssetKind{models.AssetStock},
		RateLimit:  RateLimitSpec{RequestsPerSecond: 1, Burst: 2},
	})

	assert.True(t, ls.Allow(p))
	assert.True(t, ls.Allow(p))
	assert.False(t, ls.Allow(p), "third immediate request exceeds the burst")
}

func TestLimiterSet_PerProviderBudgets(t *testing.T) {
	ls := NewLimiterSet()
	a := NewSimProvider("a", Capability{RateLimit: RateLimitSpec{RequestsPerSecond: 1, Burst: 1}})
	b := NewSimProvider("b", Capability{RateLimit: RateLimitSpec{RequestsPerSecond: 1, Burst: 1}})

	assert.True(t, ls.Allow(a))
	assert.False(t, ls.Allow(a))
	assert.True(t, ls.Allow(b), "draining one provider's budget must not affect another")
}

func TestLimiterSet_WaitHonorsCancellation(t *testing.T) {
	ls := NewLimiterSet()
	p := NewSimProvider("slow", Capability{RateLimit: RateLimitSpec{RequestsPerSecond: 0.001, Burst: 1}})

	require.NoError(t, ls.Wait(context.Background(), p))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ls.Wait(ctx, p)
	assert.Error(t, err, "second request needs ~1000s of budget and must fail the deadline")
}
