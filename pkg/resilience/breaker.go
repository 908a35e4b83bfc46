package resilience

import (
	"fmt"
	"sync"
	"time"

	"github.com/mosaiq/bankfeed/pkg/domain"
)

// BreakerState is the circuit breaker's current state.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreaker tracks the outcome of the last WindowSize calls to one
// provider and fails fast while the failure rate (slow calls included)
// exceeds the configured threshold. Shared across all workers for a
// provider; all methods are safe for concurrent use.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings

	mu               sync.Mutex
	state            BreakerState
	window           []bool // true = failure
	next             int
	filled           bool
	openedAt         time.Time
	halfOpenInFlight int
	halfOpenSuccess  int

	now func() time.Time
}

// NewCircuitBreaker returns a closed breaker for the given provider.
func NewCircuitBreaker(name string, settings BreakerSettings) *CircuitBreaker {
	return &CircuitBreaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		window:   make([]bool, 0, settings.WindowSize),
		now:      time.Now,
	}
}

// Allow reports whether a call may proceed. While open it returns
// domain.ErrCircuitOpen until the cool-down elapses, then admits a limited
// number of half-open trial calls.
func (b *CircuitBreaker) Allow() error {
	if !b.settings.Enabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.settings.OpenDuration {
			return fmt.Errorf("%s: %w", b.name, domain.ErrCircuitOpen)
		}
		b.state = StateHalfOpen
		b.halfOpenInFlight = 0
		b.halfOpenSuccess = 0
		fallthrough
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.settings.HalfOpenCalls {
			return fmt.Errorf("%s: %w", b.name, domain.ErrCircuitOpen)
		}
		b.halfOpenInFlight++
		return nil
	}
	return nil
}

// Record feeds one finished call's outcome into the window. Calls slower
// than the slow-call threshold count as failures even when they succeeded.
func (b *CircuitBreaker) Record(duration time.Duration, failed bool) {
	if !b.settings.Enabled {
		return
	}
	if !failed && b.settings.SlowCallThreshold > 0 && duration > b.settings.SlowCallThreshold {
		failed = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		if failed {
			b.trip()
			return
		}
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.settings.HalfOpenCalls {
			b.state = StateClosed
			b.window = b.window[:0]
			b.next = 0
			b.filled = false
		}
	case StateClosed:
		b.push(failed)
		if b.failureRateExceeded() {
			b.trip()
		}
	case StateOpen:
		// Late results from calls admitted before the trip are dropped.
	}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *CircuitBreaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.window = b.window[:0]
	b.next = 0
	b.filled = false
}

func (b *CircuitBreaker) push(failed bool) {
	if len(b.window) < b.settings.WindowSize {
		b.window = append(b.window, failed)
		return
	}
	b.window[b.next] = failed
	b.next = (b.next + 1) % b.settings.WindowSize
	b.filled = true
}

func (b *CircuitBreaker) failureRateExceeded() bool {
	observed := len(b.window)
	if observed < b.settings.MinimumCalls {
		return false
	}
	failures := 0
	for _, f := range b.window {
		if f {
			failures++
		}
	}
	rate := float64(failures) * 100 / float64(observed)
	return rate > b.settings.FailureRateThreshold
}
