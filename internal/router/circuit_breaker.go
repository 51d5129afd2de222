package router

import (
	"sync"
	"time"
)

// CircuitState is one of the three states a per-provider breaker can be in.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker trips after failureThreshold consecutive failures, then
// rejects calls until recoveryTimeout elapses, at which point it allows
// a single half-open probe. Any half-open failure re-opens the circuit
// with the next backoff step; a half-open success closes it. Grounded on
// the teacher's infrastructure/llm.CircuitBreaker, extended with
// exponential backoff on repeated half-open failures per spec §4.2.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            CircuitState
	failureCount     int
	successThreshold int
	successCount     int
	failureThreshold int
	baseRecovery     time.Duration
	recoveryTimeout  time.Duration
	maxRecovery      time.Duration
	lastFailureTime  time.Time
}

// NewCircuitBreaker creates a breaker with the given consecutive-failure
// threshold and base recovery timeout (spec default: 5 failures, 30s).
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: 1,
		baseRecovery:     recoveryTimeout,
		recoveryTimeout:  recoveryTimeout,
		maxRecovery:      10 * recoveryTimeout,
	}
}

// Allow reports whether a call should proceed against this provider.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.recoveryTimeout {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	}
	return false
}

// RecordSuccess resets the failure streak and, if probing from
// half-open, closes the circuit and resets the backoff.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	if cb.state == CircuitHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = CircuitClosed
			cb.recoveryTimeout = cb.baseRecovery
		}
	}
}

// RecordFailure records a failed call, tripping the circuit once the
// threshold is hit and doubling the recovery backoff on repeated
// half-open failures (capped at maxRecovery).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		cb.recoveryTimeout *= 2
		if cb.recoveryTimeout > cb.maxRecovery {
			cb.recoveryTimeout = cb.maxRecovery
		}
		return
	}

	if cb.failureCount >= cb.failureThreshold {
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker back to closed with its base backoff.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.recoveryTimeout = cb.baseRecovery
}
