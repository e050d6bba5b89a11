package provider

import (
	"context"
	"time"

	"github.com/sawpanic/marketgate/internal/errs"
	"github.com/sawpanic/marketgate/internal/models"
)

// Provider is the contract every upstream data source reduces to.
// Implementations are stateless with respect to queries; all cross-query
// state (health, scores, circuits) lives outside the provider.
type Provider interface {
	// Name returns the unique registration name
	Name() string

	// Capability returns the static descriptor of what this provider serves
	Capability() Capability

	// Authenticate verifies upstream credentials. Idempotent; a no-op for
	// public feeds. Doubles as the health-probe call.
	Authenticate(ctx context.Context) (bool, error)

	// CanHandle reports whether the capability admits the query
	CanHandle(query models.DataQuery) bool

	// GetData fetches bars for the query
	GetData(ctx context.Context, query models.DataQuery) (*models.DataResponse, error)

	// StreamData yields the same points GetData would return, lazily.
	// The sequence is finite; cancel ctx to stop early.
	StreamData(ctx context.Context, query models.DataQuery) (<-chan models.DataPoint, error)

	// RealtimeQuote returns a latest-quote map, or nil when unsupported
	RealtimeQuote(ctx context.Context, symbol string, market models.Market) (map[string]interface{}, error)
}

// RateLimitSpec describes the upstream's declared request budget
type RateLimitSpec struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// Capability declares the subset of queries a provider accepts
type Capability struct {
	AssetKinds           []models.AssetKind `json:"asset_kinds"`
	Markets              []models.Market    `json:"markets"`
	Timeframes           []models.Timeframe `json:"timeframes"`
	MaxSymbolsPerRequest int                `json:"max_symbols_per_request"`
	SupportsRealtime     bool               `json:"supports_realtime"`
	SupportsHistorical   bool               `json:"supports_historical"`
	DataDelaySeconds     int                `json:"data_delay_seconds"`
	RateLimit            RateLimitSpec      `json:"rate_limit"`
}

// Accepts reports whether the capability admits the query: asset kind,
// market and timeframe must all be declared, and the symbol list must fit
// within MaxSymbolsPerRequest.
func (c Capability) Accepts(query models.DataQuery) bool {
	if !containsAssetKind(c.AssetKinds, query.AssetKind) {
		return false
	}
	if query.Market != "" && !containsMarket(c.Markets, query.Market) {
		return false
	}
	if query.Timeframe != "" && !containsTimeframe(c.Timeframes, query.Timeframe) {
		return false
	}
	if c.MaxSymbolsPerRequest > 0 && len(query.Symbols) > c.MaxSymbolsPerRequest {
		return false
	}
	return true
}

func containsAssetKind(kinds []models.AssetKind, k models.AssetKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func containsMarket(markets []models.Market, m models.Market) bool {
	for _, v := range markets {
		if v == m {
			return true
		}
	}
	return false
}

func containsTimeframe(tfs []models.Timeframe, tf models.Timeframe) bool {
	for _, v := range tfs {
		if v == tf {
			return true
		}
	}
	return false
}

// HealthStatus is the registry's view of a provider's availability
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Health tracks probe outcomes for one provider. Mutated only by the
// health checker through the registry.
type Health struct {
	Status               HealthStatus `json:"status"`
	LastProbe            time.Time    `json:"last_probe"`
	ConsecutiveSuccesses int          `json:"consecutive_successes"`
	ConsecutiveFailures  int          `json:"consecutive_failures"`
	TotalProbes          int64        `json:"total_probes"`
	TotalFailures        int64        `json:"total_failures"`
}

// CapabilityError builds the violation error a provider returns when asked
// to serve a query outside its declared capability.
func CapabilityError(name string, query models.DataQuery) error {
	return errs.New(errs.KindCapabilityViolation,
		"query %s not within capability", query.Canonical()).WithProvider(name)
}
