package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/sawpanic/marketgate/internal/errs"
)

func transientErr() error {
	return errs.New(errs.KindProviderTransient, "upstream 503")
}

func TestBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", DefaultBreakerConfig())

	if cb.State() != CircuitClosed {
		t.Errorf("breaker should start closed, got %s", cb.State())
	}

	err := cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	if err != nil {
		t.Errorf("successful call should not error: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("breaker should remain closed after success, got %s", cb.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		HalfOpenMaxCalls: 2,
	})

	for i := 0; i < 3; i++ {
		cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("breaker should be open after %d failures, got %s", 3, cb.State())
	}

	// Open breaker rejects without running the function
	ran := false
	err := cb.Call(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if ran {
		t.Error("open breaker must not invoke the function")
	}
	if !errs.IsKind(err, errs.KindCircuitOpen) {
		t.Errorf("rejection should carry CIRCUIT_OPEN, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		HalfOpenMaxCalls: 2,
	})

	cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })
	cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })
	cb.Call(context.Background(), func(ctx context.Context) error { return nil })
	cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })

	if cb.State() != CircuitClosed {
		t.Errorf("non-consecutive failures should not open the breaker, got %s", cb.State())
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  20 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	})

	for i := 0; i < 2; i++ {
		cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })
	}
	if cb.State() != CircuitOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(30 * time.Millisecond)

	// First probe transitions to half-open
	if err := cb.Call(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("probe call should be admitted: %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("breaker should be half-open after first probe, got %s", cb.State())
	}

	// Second success closes
	if err := cb.Call(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("second probe should be admitted: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("breaker should close after %d probe successes, got %s", 2, cb.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  20 * time.Millisecond,
		HalfOpenMaxCalls: 3,
	})

	for i := 0; i < 2; i++ {
		cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })
	}
	time.Sleep(30 * time.Millisecond)

	cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })

	if cb.State() != CircuitOpen {
		t.Errorf("probe failure should re-open the breaker, got %s", cb.State())
	}
}

func TestBreaker_NonCountingErrorsIgnored(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
		HalfOpenMaxCalls: 2,
	})

	// Capability misses never advance the failure count
	for i := 0; i < 5; i++ {
		cb.Call(context.Background(), func(ctx context.Context) error {
			return errs.New(errs.KindCapabilityViolation, "not served")
		})
	}
	if cb.State() != CircuitClosed {
		t.Errorf("capability violations must not trip the breaker, got %s", cb.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		HalfOpenMaxCalls: 2,
	})

	cb.Call(context.Background(), func(ctx context.Context) error { return transientErr() })
	if cb.State() != CircuitOpen {
		t.Fatal("breaker should be open")
	}

	cb.Reset()
	if cb.State() != CircuitClosed {
		t.Errorf("reset should force the breaker closed, got %s", cb.State())
	}

	if err := cb.Call(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("call after reset should be admitted: %v", err)
	}
}

func TestBreakerRegistry_LazyAndIsolated(t *testing.T) {
	reg := NewBreakerRegistry(BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		HalfOpenMaxCalls: 2,
	})

	a := reg.Get("provider-a")
	if a != reg.Get("provider-a") {
		t.Error("registry should return the same breaker per name")
	}

	a.Call(context.Background(), func(ctx context.Context) error { return transientErr() })

	if reg.Get("provider-a").State() != CircuitOpen {
		t.Error("provider-a breaker should be open")
	}
	if reg.Get("provider-b").State() != CircuitClosed {
		t.Error("provider-b breaker must be unaffected")
	}

	reg.Reset("provider-a")
	if reg.Get("provider-a").State() != CircuitClosed {
		t.Error("registry reset should close the named breaker")
	}
}
