package cache

import (
	"time"

	"github.com/sawpanic/marketgate/internal/models"
)

// TTLPolicy maps timeframes to persistent-tier lifetimes. The in-memory
// tier deliberately runs shorter so L2 acts as the stabilizer under load.
type TTLPolicy struct {
	Tick     time.Duration `yaml:"tick"`
	Minute   time.Duration `yaml:"minute"`
	Intraday time.Duration `yaml:"intraday"`
	Daily    time.Duration `yaml:"daily"`
	Weekly   time.Duration `yaml:"weekly"`
	Default  time.Duration `yaml:"default"`
}

// DefaultTTLPolicy returns the standard timeframe → TTL table
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Tick:     5 * time.Second,
		Minute:   60 * time.Second,
		Intraday: 300 * time.Second,
		Daily:    3600 * time.Second,
		Weekly:   86400 * time.Second,
		Default:  3600 * time.Second,
	}
}

// For returns the L2 TTL for a timeframe
func (p TTLPolicy) For(tf models.Timeframe) time.Duration {
	switch tf {
	case models.TimeframeTick:
		return p.Tick
	case models.Timeframe1m:
		return p.Minute
	case models.Timeframe5m, models.Timeframe15m, models.Timeframe30m, models.Timeframe1h:
		return p.Intraday
	case models.Timeframe1d:
		return p.Daily
	case models.Timeframe1w, models.Timeframe1M:
		return p.Weekly
	default:
		return p.Default
	}
}

const l1TTLCap = 300 * time.Second

// L1For returns the in-memory TTL: min(L2 TTL / 2, 5 minutes)
func (p TTLPolicy) L1For(tf models.Timeframe) time.Duration {
	ttl := p.For(tf) / 2
	if ttl > l1TTLCap {
		ttl = l1TTLCap
	}
	return ttl
}
