package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen is a state where a limited number of trial requests are allowed to test the system's recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards an unreliable downstream call. It trips to Open after
// a run of consecutive failures and probes with trial requests after the
// cool-off timeout.
type CircuitBreaker struct {
	failureThreshold uint32        // Number of failures to trip the circuit.
	successThreshold uint32        // Number of successes in HalfOpen state to close the circuit.
	timeout          time.Duration // Duration to wait in Open state before transitioning to HalfOpen.

	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	lastErrorTime        time.Time
	state                State
	mutex                sync.Mutex
}

// New creates a CircuitBreaker with the given thresholds and cool-off timeout.
func New(failureThreshold, successThreshold uint32, timeout time.Duration) *CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 3
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
	}
}

// Execute runs req if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Execute(req func() error) error {
	cb.mutex.Lock()
	if cb.state == Open {
		if time.Since(cb.lastErrorTime) < cb.timeout {
			cb.mutex.Unlock()
			return ErrCircuitOpen
		}
		cb.state = HalfOpen
		cb.consecutiveSuccesses = 0
	}
	cb.mutex.Unlock()

	err := req()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	if err != nil {
		cb.consecutiveFailures++
		cb.consecutiveSuccesses = 0
		if cb.state == HalfOpen || cb.consecutiveFailures >= cb.failureThreshold {
			cb.state = Open
			cb.lastErrorTime = time.Now()
		}
		return err
	}

	cb.consecutiveFailures = 0
	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			cb.state = Closed
		}
	default:
		cb.state = Closed
	}
	return nil
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}
