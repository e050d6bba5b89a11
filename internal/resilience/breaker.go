package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sawpanic/marketgate/internal/errs"
)

// CircuitState represents the current state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig defines circuit breaker behavior
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
}

// DefaultBreakerConfig returns the standard thresholds
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker guards one named endpoint. Closed forwards calls and
// counts consecutive failures; open rejects immediately until the recovery
// timeout has elapsed; half-open admits a limited number of probe calls and
// closes only after all of them succeed.
type CircuitBreaker struct {
	name   string
	config BreakerConfig

	mu               sync.Mutex
	state            CircuitState
	failureCount     int
	successCount     int
	halfOpenInFlight int
	lastFailureTime  time.Time
}

// NewCircuitBreaker creates a breaker in the closed state
func NewCircuitBreaker(name string, config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  CircuitClosed,
	}
}

// Call runs fn under breaker protection. Rejected calls fail with
// CIRCUIT_OPEN without invoking fn.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

// admit decides whether a call may proceed and performs the open→half-open
// transition when the recovery timeout has elapsed.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.config.RecoveryTimeout {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
			cb.halfOpenInFlight = 1
			return nil
		}
		return cb.rejection()
	case CircuitHalfOpen:
		// Half-open admits at most HalfOpenMaxCalls concurrent probes
		if cb.halfOpenInFlight >= cb.config.HalfOpenMaxCalls {
			return cb.rejection()
		}
		cb.halfOpenInFlight++
		return nil
	default:
		return errs.New(errs.KindInternal, "breaker %s in unknown state", cb.name)
	}
}

// record updates the state machine after a forwarded call completes
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}

	if err != nil {
		if !errs.CountsForBreaker(err) {
			return
		}
		cb.onFailure()
		return
	}
	cb.onSuccess()
}

func (cb *CircuitBreaker) onFailure() {
	switch cb.state {
	case CircuitClosed:
		cb.failureCount++
		cb.lastFailureTime = time.Now()
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		// Any probe failure re-opens the circuit
		cb.state = CircuitOpen
		cb.lastFailureTime = time.Now()
		cb.successCount = 0
		cb.halfOpenInFlight = 0
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.HalfOpenMaxCalls {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.successCount = 0
			cb.halfOpenInFlight = 0
		}
	}
}

func (cb *CircuitBreaker) rejection() error {
	return errs.New(errs.KindCircuitOpen, "circuit breaker %s is %s", cb.name, cb.state).
		WithProvider(cb.name)
}

// State returns the current breaker state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset force-closes the breaker. Operator action, never the data path.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenInFlight = 0
}

// BreakerStats is a point-in-time snapshot of one breaker
type BreakerStats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	FailureCount    int       `json:"failure_count"`
	SuccessCount    int       `json:"success_count"`
	LastFailureTime time.Time `json:"last_failure_time"`
}

// Stats returns a snapshot of the breaker's counters
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		Name:            cb.name,
		State:           cb.state.String(),
		FailureCount:    cb.failureCount,
		SuccessCount:    cb.successCount,
		LastFailureTime: cb.lastFailureTime,
	}
}

// BreakerRegistry maps endpoint names to breakers with lazy creation
type BreakerRegistry struct {
	mu       sync.RWMutex
	config   BreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates a registry that builds breakers on demand
// with the given config.
func NewBreakerRegistry(config BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it on first use
func (br *BreakerRegistry) Get(name string) *CircuitBreaker {
	br.mu.RLock()
	if cb, exists := br.breakers[name]; exists {
		br.mu.RUnlock()
		return cb
	}
	br.mu.RUnlock()

	br.mu.Lock()
	defer br.mu.Unlock()

	// Double-check after acquiring write lock
	if cb, exists := br.breakers[name]; exists {
		return cb
	}

	cb := NewCircuitBreaker(name, br.config)
	br.breakers[name] = cb
	return cb
}

// Reset force-closes the named breaker if it exists
func (br *BreakerRegistry) Reset(name string) {
	br.mu.RLock()
	cb, exists := br.breakers[name]
	br.mu.RUnlock()
	if exists {
		cb.Reset()
	}
}

// Stats returns snapshots for all breakers keyed by name
func (br *BreakerRegistry) Stats() map[string]BreakerStats {
	br.mu.RLock()
	defer br.mu.RUnlock()
	out := make(map[string]BreakerStats, len(br.breakers))
	for name, cb := range br.breakers {
		out[name] = cb.Stats()
	}
	return out
}
