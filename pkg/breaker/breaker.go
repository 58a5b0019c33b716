package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow and Do while the circuit rejects calls.
var ErrOpen = errors.New("breaker: circuit open")

// State represents the position of the circuit.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker.
// The zero value is usable; unset fields fall back to defaults.
type Config struct {
	// Name identifies the guarded dependency in logs and state-change hooks.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the
	// circuit (default: 5).
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before allowing a
	// trial call (default: 60s).
	RecoveryTimeout time.Duration

	// OnStateChange is invoked synchronously under the breaker lock whenever
	// the state changes. Keep it cheap; spawn a goroutine for slow work.
	OnStateChange func(name string, from, to State)

	// now overrides the clock in tests.
	now func() time.Time
}

// CircuitBreaker guards calls to a single dependency.
// Safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg      Config
	state    State
	failures int
	openedAt time.Time
	probing  bool
	lastErr  error
}

// New creates a circuit breaker in the closed state.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a call may proceed. It returns ErrOpen while the
// circuit is open, and while a half-open trial call is already in flight.
// Callers that receive nil must report the outcome via RecordSuccess or
// RecordFailure; Do handles this bookkeeping automatically.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.cfg.now().Sub(cb.openedAt) >= cb.cfg.RecoveryTimeout {
			cb.transitionTo(StateHalfOpen)
			cb.probing = true
			return nil
		}
		return ErrOpen
	case StateHalfOpen:
		// One trial call at a time.
		if cb.probing {
			return ErrOpen
		}
		cb.probing = true
		return nil
	}
	return nil
}

// RecordSuccess reports a successful call. In the half-open state the trial
// success closes the circuit; in the closed state it resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.transitionTo(StateClosed)
	}
}

// RecordFailure reports a failed call. Reaching the failure threshold opens
// the circuit; a failed half-open trial reopens it immediately.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastErr = err

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		// A failed trial counts like any other failure.
		cb.failures++
		cb.transitionTo(StateOpen)
	}
}

// Do runs fn under the breaker, recording the outcome. A context cancellation
// from fn counts as a failure like any other error.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		cb.RecordFailure(err)
		return err
	}
	cb.RecordSuccess()
	return nil
}

// State returns the current circuit position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count since the last success.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// LastError returns the most recent failure recorded, if any.
func (cb *CircuitBreaker) LastError() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastErr
}

// Name returns the configured dependency name.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// transitionTo changes the state and resets counters. Caller must hold mu.
func (cb *CircuitBreaker) transitionTo(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.probing = false
	case StateOpen:
		cb.openedAt = cb.cfg.now()
		cb.probing = false
	case StateHalfOpen:
		cb.probing = false
	}

	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
