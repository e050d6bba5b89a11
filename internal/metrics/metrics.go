// Package metrics exports the prometheus instrumentation for the data
// path: cache performance, provider calls, breaker states, health probes
// and batch execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all prometheus metrics for marketgate
type Registry struct {
	// Cache performance
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Provider call path
	ProviderRequests *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec

	// Resilience
	BreakerState *prometheus.GaugeVec
	HealthStatus *prometheus.GaugeVec
	ProbeLatency *prometheus.HistogramVec

	// Batch execution
	BatchDuration prometheus.Histogram
	BatchQueries  *prometheus.CounterVec
}

// NewRegistry creates all collectors. Call Register to attach them to a
// prometheus registerer.
func NewRegistry() *Registry {
	return &Registry{
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketgate_cache_hits_total",
				Help: "Cache hits by tier",
			},
			[]string{"tier"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketgate_cache_misses_total",
				Help: "Cache misses by tier",
			},
			[]string{"tier"},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketgate_provider_requests_total",
				Help: "Provider calls by provider name",
			},
			[]string{"provider"},
		),
		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketgate_provider_failures_total",
				Help: "Failed provider calls by provider and error kind",
			},
			[]string{"provider", "kind"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketgate_provider_latency_seconds",
				Help:    "Provider call latency in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"provider"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketgate_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half-open)",
			},
			[]string{"provider"},
		),
		HealthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketgate_provider_healthy",
				Help: "Provider health per registry (1=healthy, 0=unhealthy, -1=unknown)",
			},
			[]string{"provider"},
		),
		ProbeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketgate_probe_latency_seconds",
				Help:    "Health probe latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"provider"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketgate_batch_duration_seconds",
				Help:    "Wall-clock duration of batch execution",
				Buckets: []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
		),
		BatchQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketgate_batch_queries_total",
				Help: "Batch queries by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register attaches every collector to the given registerer
func (r *Registry) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.CacheHits, r.CacheMisses,
		r.ProviderRequests, r.ProviderFailures, r.ProviderLatency,
		r.BreakerState, r.HealthStatus, r.ProbeLatency,
		r.BatchDuration, r.BatchQueries,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHealth maps a health status string onto the gauge encoding
func (r *Registry) ObserveHealth(provider, status string) {
	var v float64
	switch status {
	case "healthy":
		v = 1
	case "unhealthy":
		v = 0
	default:
		v = -1
	}
	r.HealthStatus.WithLabelValues(provider).Set(v)
}
