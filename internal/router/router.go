// Package router selects the provider that should serve a query. Candidates
// come from the registry's capability-and-health filter; survivors are
// ranked by a multi-factor score that blends call history, declared data
// delay and how much of the provider's symbol budget the query consumes.
package router

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/sawpanic/marketgate/internal/errs"
	"github.com/sawpanic/marketgate/internal/models"
	"github.com/sawpanic/marketgate/internal/provider"
)

const (
	historyInitial = 1.0
	historyMin     = 0.1
	historyMax     = 2.0

	weightHistory    = 0.4
	weightDelay      = 0.3
	weightSymbolLoad = 0.2
	weightBase       = 0.1
)

// Router ranks capable providers and keeps a sticky per-provider history
// score that rewards fast successes and penalizes failures.
type Router struct {
	registry *provider.Registry
	logger   zerolog.Logger

	mu      sync.RWMutex
	history map[string]float64
}

// New creates a router over the given registry
func New(registry *provider.Registry, logger zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger.With().Str("component", "router").Logger(),
		history:  make(map[string]float64),
	}
}

// Route returns the best capable, non-unhealthy provider for the query.
// Fails with NO_CAPABLE_PROVIDER when the registry filter comes back empty.
// Ties break by registration order so routing stays deterministic.
func (r *Router) Route(query models.DataQuery) (provider.Provider, error) {
	candidates := r.registry.FindCapable(query)
	if len(candidates) == 0 {
		return nil, errs.New(errs.KindNoCapableProvider,
			"no capable provider for query %s", query.Canonical())
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	best := candidates[0]
	bestScore := r.Score(best, query)
	for _, p := range candidates[1:] {
		if s := r.Score(p, query); s > bestScore {
			best, bestScore = p, s
		}
	}

	r.logger.Debug().
		Str("provider", best.Name()).
		Float64("score", bestScore).
		Int("candidates", len(candidates)).
		Msg("routed query")
	return best, nil
}

// Score computes the ranking value for one candidate:
//
//	0.4·history + 0.3·(1 − delay/100) + 0.2·(1 − 0.5·symbolLoad) + 0.1
//
// where delay is capped at 100 seconds and symbolLoad is the fraction of
// the provider's per-request symbol budget the query consumes.
func (r *Router) Score(p provider.Provider, query models.DataQuery) float64 {
	cap := p.Capability()

	delay := float64(cap.DataDelaySeconds)
	if delay > 100 {
		delay = 100
	}

	symbolLoad := 0.0
	if cap.MaxSymbolsPerRequest > 0 {
		symbolLoad = float64(len(query.Symbols)) / float64(cap.MaxSymbolsPerRequest)
	}

	return weightHistory*r.History(p.Name()) +
		weightDelay*(1-delay/100) +
		weightSymbolLoad*(1-0.5*symbolLoad) +
		weightBase
}

// History returns the sticky score for a provider, defaulting to 1.0
func (r *Router) History(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.history[name]; ok {
		return h
	}
	return historyInitial
}

// RecordSuccess rewards the provider: faster calls earn a larger bump
func (r *Router) RecordSuccess(name string, latencyMs float64) {
	bonus := 0.1 - latencyMs/1000
	if bonus < 0 {
		bonus = 0
	}
	r.adjust(name, 0.05+bonus)
}

// RecordFailure penalizes the provider by a fixed step
func (r *Router) RecordFailure(name string) {
	r.adjust(name, -0.2)
}

// adjust moves the history score, clamped to [0.1, 2.0] so a persistently
// bad provider stays available as a last resort. Removal from rotation is
// the health checker's job, not the router's.
func (r *Router) adjust(name string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.history[name]
	if !ok {
		h = historyInitial
	}
	h += delta
	if h < historyMin {
		h = historyMin
	}
	if h > historyMax {
		h = historyMax
	}
	r.history[name] = h
}
