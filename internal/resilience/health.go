package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/marketgate/internal/provider"
)

// HealthConfig controls the probe loop
type HealthConfig struct {
	Interval         time.Duration `yaml:"interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// DefaultHealthConfig returns the standard probe cadence and hysteresis
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Interval:         300 * time.Second,
		ProbeTimeout:     5 * time.Second,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	}
}

// ProbeObserver receives each probe outcome; used to export health metrics
// and to persist provider status rows.
type ProbeObserver func(name string, success bool, status provider.HealthStatus, latency time.Duration)

// HealthChecker periodically probes every registered provider and applies
// hysteresis through the registry. Probes run concurrently per provider and
// never block query serving.
type HealthChecker struct {
	registry  *provider.Registry
	config    HealthConfig
	logger    zerolog.Logger
	observers []ProbeObserver

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewHealthChecker creates a checker over the registry
func NewHealthChecker(registry *provider.Registry, config HealthConfig, logger zerolog.Logger) *HealthChecker {
	if config.Interval <= 0 {
		config.Interval = 300 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	return &HealthChecker{
		registry: registry,
		config:   config,
		logger:   logger.With().Str("component", "health").Logger(),
	}
}

// Observe registers a probe observer. Must be called before Start.
func (hc *HealthChecker) Observe(obs ProbeObserver) {
	hc.observers = append(hc.observers, obs)
}

// Start launches the probe loop. Idempotent; a second Start is a no-op
// until Stop is called.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	hc.cancel = cancel
	hc.done = make(chan struct{})
	hc.running = true

	go hc.loop(ctx)
}

// Stop halts the probe loop and waits for in-flight probes to finish
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	if !hc.running {
		hc.mu.Unlock()
		return
	}
	cancel, done := hc.cancel, hc.done
	hc.running = false
	hc.mu.Unlock()

	cancel()
	<-done
}

func (hc *HealthChecker) loop(ctx context.Context) {
	defer close(hc.done)

	ticker := time.NewTicker(hc.config.Interval)
	defer ticker.Stop()

	// Probe once at startup so unhealthy providers are excluded early
	hc.ProbeAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.ProbeAll(ctx)
		}
	}
}

// ProbeAll probes every provider once, concurrently. State transitions for
// one provider are serialized by its own probe goroutine.
func (hc *HealthChecker) ProbeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range hc.registry.All() {
		wg.Add(1)
		go func(p provider.Provider) {
			defer wg.Done()
			hc.probe(ctx, p)
		}(p)
	}
	wg.Wait()
}

// probe runs one health check against a provider with the probe timeout.
// A truthy Authenticate within the deadline is a success; anything else,
// including a timeout, is a failure.
func (hc *HealthChecker) probe(ctx context.Context, p provider.Provider) {
	probeCtx, cancel := context.WithTimeout(ctx, hc.config.ProbeTimeout)
	defer cancel()

	start := time.Now()
	ok, err := p.Authenticate(probeCtx)
	latency := time.Since(start)
	success := err == nil && ok

	status := hc.registry.RecordProbe(p.Name(), success,
		hc.config.FailureThreshold, hc.config.SuccessThreshold)

	if !success {
		hc.logger.Warn().
			Str("provider", p.Name()).
			Err(err).
			Dur("latency", latency).
			Str("status", string(status)).
			Msg("health probe failed")
	}

	for _, obs := range hc.observers {
		obs(p.Name(), success, status, latency)
	}
}
