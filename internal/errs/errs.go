// Package errs defines the error taxonomy shared by the router, retry
// engine and circuit breaker. Policy code matches on Kind rather than on
// concrete types, so every fallible layer wraps upstream failures into an
// *Error with the kind that drives its handling.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and circuit-breaker policy
type Kind string

const (
	// KindCapabilityViolation: the query does not fit the chosen provider's
	// declared capability. Surfaced to the caller, never retried.
	KindCapabilityViolation Kind = "CAPABILITY_VIOLATION"

	// KindNoCapableProvider: no healthy provider admits the query
	KindNoCapableProvider Kind = "NO_CAPABLE_PROVIDER"

	// KindRateLimit: upstream declared a rate limit. Not retried.
	KindRateLimit Kind = "RATE_LIMIT"

	// KindProviderTransient: connection errors, timeouts upstream, 5xx.
	// Retried and counted by the breaker.
	KindProviderTransient Kind = "PROVIDER_TRANSIENT"

	// KindProviderFatal: 4xx, malformed payloads. Counted by the breaker,
	// never retried.
	KindProviderFatal Kind = "PROVIDER_FATAL"

	// KindCircuitOpen: the breaker rejected the call without running it
	KindCircuitOpen Kind = "CIRCUIT_OPEN"

	// KindValidation: raw-row validation rejected an ingestion batch
	KindValidation Kind = "VALIDATION"

	// KindTimeout: call deadline exceeded. Transient for accounting unless
	// the cancellation came from the caller.
	KindTimeout Kind = "TIMEOUT"

	// KindStorage: cache or repository I/O fault. Downgraded to warnings
	// on the read path.
	KindStorage Kind = "STORAGE"

	// KindInternal: invariant violation. Never masked as success.
	KindInternal Kind = "INTERNAL"
)

// Error is the domain error carried across component boundaries
type Error struct {
	Kind     Kind   `json:"kind"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message"`
	Cause    error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a domain error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an upstream cause
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithProvider tags the error with the provider it came from
func (e *Error) WithProvider(name string) *Error {
	e.Provider = name
	return e
}

// KindOf extracts the kind from any error in the chain.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the retry engine should attempt the call again.
// Only transient upstream failures and timeouts qualify.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindProviderTransient, KindTimeout:
		return true
	}
	return false
}

// CountsForBreaker reports whether the failure should advance the circuit
// breaker's failure count. Breaker rejections and capability misses do not
// re-penalize the endpoint.
func CountsForBreaker(err error) bool {
	switch KindOf(err) {
	case KindCircuitOpen, KindCapabilityViolation, KindNoCapableProvider:
		return false
	}
	return true
}
