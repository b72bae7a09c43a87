// Package breaker implements a circuit breaker that trips after a run of
// consecutive remote failures and probes for recovery after a timeout.
package breaker

import (
	"sync"
	"time"

	"github.com/lumadocs/driveline/internal/domain"
)

const (
	// DefaultFailureThreshold is the consecutive failure count that opens
	// the circuit.
	DefaultFailureThreshold = 5

	// DefaultRecoveryTimeout is how long the circuit stays open before a
	// probe request is allowed through.
	DefaultRecoveryTimeout = 60 * time.Second
)

// CircuitBreaker tracks consecutive failures against a remote dependency.
// All methods are safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration

	state         domain.BreakerState
	failures      int
	lastFailureAt time.Time

	now func() time.Time // injectable clock for tests
}

// Option configures a CircuitBreaker
type Option func(*CircuitBreaker)

// WithClock overrides the breaker's time source
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// New creates a circuit breaker in the closed state.
// Non-positive arguments fall back to the defaults.
func New(failureThreshold int, recoveryTimeout time.Duration, opts ...Option) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}

	cb := &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            domain.BreakerClosed,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// CanExecute reports whether a request may proceed. When the circuit is
// open and the recovery timeout has elapsed, the breaker moves to
// half-open and lets the request through as a probe.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case domain.BreakerClosed, domain.BreakerHalfOpen:
		return true
	case domain.BreakerOpen:
		if cb.now().Sub(cb.lastFailureAt) >= cb.recoveryTimeout {
			cb.state = domain.BreakerHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the failure count and closes the circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = domain.BreakerClosed
}

// RecordFailure increments the failure count. Reaching the threshold, or
// failing while half-open, opens the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureAt = cb.now()

	if cb.state == domain.BreakerHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = domain.BreakerOpen
	}
}

// Reset forces the breaker back to closed with zero failures
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = domain.BreakerClosed
	cb.lastFailureAt = time.Time{}
}

// Snapshot returns the current observable state
func (cb *CircuitBreaker) Snapshot() domain.BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return domain.BreakerSnapshot{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		LastFailureAt:       cb.lastFailureAt,
	}
}
