package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow while the breaker is open. Callers fail
// fast on it instead of consuming retry budget against a known-bad dependency.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState is the current position of the circuit breaker state machine.
type BreakerState int32

const (
	// BreakerClosed passes all calls through and counts consecutive failures.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects all calls until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen admits exactly one probe call to test recovery.
	BreakerHalfOpen
)

// String returns the canonical name of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker from closed to open. Values below 1 are treated as 1.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before admitting a probe.
	Cooldown time.Duration
}

// CircuitBreaker isolates a persistently failing operator.
//
// State machine: closed -> open after FailureThreshold consecutive failures;
// open rejects calls for Cooldown, then half-open admits one probe; probe
// success closes the breaker, probe failure re-opens it with a fresh cooldown.
type CircuitBreaker struct {
	mu            sync.Mutex
	cfg           BreakerConfig
	state         BreakerState
	consecutive   int
	openedAt      time.Time
	probeInFlight bool

	// now is swappable for tests.
	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker with the given configuration.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a call may proceed right now. While open it returns
// ErrCircuitOpen (wrapped with the remaining cooldown); once the cooldown has
// elapsed it transitions to half-open and admits a single probe, rejecting
// concurrent callers until the probe reports its outcome.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.cfg.Cooldown {
			return fmt.Errorf("%w (cooldown %s remaining)", ErrCircuitOpen, b.cfg.Cooldown-elapsed)
		}
		b.state = BreakerHalfOpen
		b.probeInFlight = true
		return nil
	default: // BreakerHalfOpen
		if b.probeInFlight {
			return fmt.Errorf("%w (probe in flight)", ErrCircuitOpen)
		}
		b.probeInFlight = true
		return nil
	}
}

// RecordSuccess reports a successful call. In half-open state it closes the
// breaker; in closed state it resets the consecutive-failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutive = 0
	b.probeInFlight = false
	b.state = BreakerClosed
}

// RecordFailure reports a failed call. A half-open probe failure re-opens the
// breaker with a fresh cooldown; in closed state the failure counts toward the
// threshold.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = b.now()
		b.probeInFlight = false
		return
	}

	b.consecutive++
	if b.state == BreakerClosed && b.consecutive >= b.cfg.FailureThreshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
