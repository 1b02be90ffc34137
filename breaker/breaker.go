// Package breaker implements the circuit breaker guarding every storage
// call. It is a generic call guard with no knowledge of ontology semantics:
// repeated transient failures trip it open, open calls fail fast, and after
// a cooldown a single trial probes recovery.
package breaker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/logger"
	"github.com/cairnstack/ontograph/metrics"
)

// State is the breaker's position in its lifecycle.
type State string

const (
	// Closed passes calls through and counts transient failures.
	Closed State = "CLOSED"
	// Open rejects calls immediately without attempting them.
	Open State = "OPEN"
	// HalfOpen admits exactly one trial call to probe recovery.
	HalfOpen State = "HALF_OPEN"
)

// Config tunes the breaker.
type Config struct {
	// FailureThreshold is the number of consecutive transient failures,
	// within Window, that trips the breaker open.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before admitting a
	// trial call.
	ResetTimeout time.Duration
	// Window is the rolling window for the consecutive-failure count. A
	// failure older than Window no longer chains with new ones.
	Window time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		Window:           time.Minute,
	}
}

// Snapshot is an observable view of breaker state.
type Snapshot struct {
	Status              State     `json:"status"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
}

// Breaker is a thread-safe circuit breaker. State updates run under a
// short-held lock; the guarded call itself executes outside the lock so a
// slow backend never serializes unrelated callers.
type Breaker struct {
	mu  sync.Mutex
	cfg Config

	state         State
	failures      int
	lastFailure   time.Time
	openedAt      time.Time
	trialInFlight bool

	sink metrics.Sink
	log  *zap.SugaredLogger
	now  func() time.Time
}

// New creates a closed breaker. A nil sink disables metrics emission.
func New(cfg Config, sink metrics.Sink) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Breaker{
		cfg:   cfg,
		state: Closed,
		sink:  sink,
		log:   logger.Logger.Named("breaker"),
		now:   time.Now,
	}
}

// WithClock overrides the breaker's time source. Tests only.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// Do runs fn under the breaker. If the breaker is open the call is rejected
// with errors.ErrBreakerOpen without being attempted. Permanent and
// validation failures pass through without counting toward the threshold.
func (b *Breaker) Do(op string, fn func() error) error {
	trial, err := b.allow()
	if err != nil {
		b.sink.Inc(metrics.BreakerRejected, map[string]string{"op": op})
		return errors.Wrap(err, op)
	}

	callErr := fn()
	b.record(trial, callErr)
	return callErr
}

// allow decides admission. Returns trial=true when this call is the single
// half-open probe.
func (b *Breaker) allow() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return false, nil
	case Open:
		if b.now().Sub(b.openedAt) > b.cfg.ResetTimeout {
			b.transition(HalfOpen)
			b.trialInFlight = true
			return true, nil
		}
		return false, errors.ErrBreakerOpen
	case HalfOpen:
		if b.trialInFlight {
			// The probe slot is taken; everyone else fails fast.
			return false, errors.ErrBreakerOpen
		}
		b.trialInFlight = true
		return true, nil
	}
	return false, nil
}

// record applies a call result to breaker state.
func (b *Breaker) record(trial bool, callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial {
		b.trialInFlight = false
	}

	if callErr == nil {
		b.failures = 0
		if b.state == HalfOpen {
			b.transition(Closed)
		}
		return
	}

	// Only transient failures count: a schema bug will not heal no matter
	// how long the breaker stays open.
	if !errors.IsTransient(callErr) {
		return
	}

	now := b.now()
	switch b.state {
	case HalfOpen:
		b.openedAt = now
		b.lastFailure = now
		b.transition(Open)
	case Closed:
		if !b.lastFailure.IsZero() && now.Sub(b.lastFailure) > b.cfg.Window {
			b.failures = 0
		}
		b.failures++
		b.lastFailure = now
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = now
			b.transition(Open)
		}
	}
}

// transition moves to target and reports it. Caller holds the lock.
func (b *Breaker) transition(target State) {
	if b.state == target {
		return
	}
	b.log.Infow("Breaker state change",
		logger.FieldState, string(target),
		"from", string(b.state),
		"consecutive_failures", b.failures,
	)
	b.state = target
	if target == Closed {
		b.failures = 0
	}
	b.sink.Inc(metrics.BreakerTransitions, map[string]string{"state": string(target)})
}

// Snapshot returns the current observable state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Status:              b.state,
		ConsecutiveFailures: b.failures,
		OpenedAt:            b.openedAt,
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
