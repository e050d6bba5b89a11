package provider

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/marketgate/internal/models"
)

// Metadata records registry bookkeeping per provider
type Metadata struct {
	RegisteredAt time.Time `json:"registered_at"`
	LastProbe    time.Time `json:"last_probe"`
	ProbeCount   int64     `json:"probe_count"`
	FailureCount int64     `json:"failure_count"`
}

// Registry holds the named providers plus their health and metadata.
// Registration order is preserved so router tie-breaks stay deterministic.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	health    map[string]*Health
	metadata  map[string]*Metadata
	order     []string
	logger    zerolog.Logger
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		health:    make(map[string]*Health),
		metadata:  make(map[string]*Metadata),
		logger:    logger.With().Str("component", "registry").Logger(),
	}
}

// Register adds a provider under its name. Fails only when the name is
// already present. Health starts at healthy.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}

	r.providers[name] = p
	r.health[name] = &Health{Status: HealthHealthy}
	r.metadata[name] = &Metadata{RegisteredAt: time.Now()}
	r.order = append(r.order, name)

	r.logger.Info().Str("provider", name).Msg("provider registered")
	return nil
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns provider names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// All returns providers in registration order
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// FindCapable returns, in registration order, every provider whose
// capability admits the query and whose health is not unhealthy. When the
// query names a provider explicitly, only that provider is considered.
func (r *Registry) FindCapable(query models.DataQuery) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	for _, name := range r.order {
		if query.Provider != "" && query.Provider != name {
			continue
		}
		if h := r.health[name]; h != nil && h.Status == HealthUnhealthy {
			continue
		}
		p := r.providers[name]
		if p.CanHandle(query) {
			out = append(out, p)
		}
	}
	return out
}

// Health returns a snapshot of the provider's health state
func (r *Registry) Health(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.health[name]
	if !ok {
		return Health{}, false
	}
	return *h, true
}

// HealthSnapshot returns health for all providers keyed by name
func (r *Registry) HealthSnapshot() map[string]Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Health, len(r.health))
	for name, h := range r.health {
		out[name] = *h
	}
	return out
}

// RecordProbe applies one probe outcome with hysteresis: failureThreshold
// consecutive failures mark the provider unhealthy, successThreshold
// consecutive successes bring it back. Returns the resulting status.
func (r *Registry) RecordProbe(name string, success bool, failureThreshold, successThreshold int) HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.health[name]
	if !ok {
		return HealthUnknown
	}
	m := r.metadata[name]

	now := time.Now()
	h.LastProbe = now
	h.TotalProbes++
	m.LastProbe = now
	m.ProbeCount++

	if success {
		h.ConsecutiveSuccesses++
		h.ConsecutiveFailures = 0
		if h.Status != HealthHealthy && h.ConsecutiveSuccesses >= successThreshold {
			h.Status = HealthHealthy
			r.logger.Info().Str("provider", name).Msg("provider recovered")
		}
	} else {
		h.ConsecutiveFailures++
		h.ConsecutiveSuccesses = 0
		h.TotalFailures++
		m.FailureCount++
		if h.Status != HealthUnhealthy && h.ConsecutiveFailures >= failureThreshold {
			h.Status = HealthUnhealthy
			r.logger.Warn().Str("provider", name).
				Int("consecutive_failures", h.ConsecutiveFailures).
				Msg("provider marked unhealthy")
		}
	}

	return h.Status
}

// Metadata returns a snapshot of the registry bookkeeping for name
func (r *Registry) Metadata(name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metadata[name]
	if !ok {
		return Metadata{}, false
	}
	return *m, true
}
