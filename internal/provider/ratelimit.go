package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// LimiterSet provides per-provider token-bucket rate limiting built from
// each provider's declared rate descriptor.
type LimiterSet struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewLimiterSet creates an empty limiter set
func NewLimiterSet() *LimiterSet {
	return &LimiterSet{limiters: make(map[string]*rate.Limiter)}
}

// limiterFor returns or creates the limiter for a provider
func (ls *LimiterSet) limiterFor(name string, spec RateLimitSpec) *rate.Limiter {
	ls.mu.RLock()
	limiter, exists := ls.limiters[name]
	ls.mu.RUnlock()
	if exists {
		return limiter
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := ls.limiters[name]; exists {
		return limiter
	}

	rps := spec.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := spec.Burst
	if burst <= 0 {
		burst = int(rps) * 2
	}

	limiter = rate.NewLimiter(rate.Limit(rps), burst)
	ls.limiters[name] = limiter
	return limiter
}

// Wait blocks until the provider's budget admits one request or the
// context is cancelled.
func (ls *LimiterSet) Wait(ctx context.Context, p Provider) error {
	return ls.limiterFor(p.Name(), p.Capability().RateLimit).Wait(ctx)
}

// Allow reports whether one request fits the provider's budget right now
func (ls *LimiterSet) Allow(p Provider) bool {
	return ls.limiterFor(p.Name(), p.Capability().RateLimit).Allow()
}
