package resiliency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerOpenError is returned for every call rejected while a breaker
// is OPEN. RetryAfterMs tells the caller how long to wait before
// the breaker becomes eligible to probe again.
type CircuitBreakerOpenError struct {
	Upstream     string
	RetryAfterMs int64
}

func (e *CircuitBreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s, retry after %dms", e.Upstream, e.RetryAfterMs)
}

// Code implements Coded so withRetry's pattern matching (and DLQ
// classification) can recognize this without string-matching the message.
func (e *CircuitBreakerOpenError) Code() string {
	return "CIRCUIT_BREAKER_OPEN"
}

// BreakerOptions configures a single named breaker.
type BreakerOptions struct {
	FailureThreshold uint32
	ResetTimeout     time.Duration
	HalfOpenRequests uint32
}

// DefaultBreakerOptions mirrors the values used for the OCR and interpreter
// upstreams absent an override.
func DefaultBreakerOptions() BreakerOptions {
	return BreakerOptions{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenRequests: 2,
	}
}

// Breaker wraps gobreaker.CircuitBreaker with CLOSED/OPEN/HALF_OPEN
// semantics and a typed open error, keyed by upstream name.
type Breaker struct {
	upstream string
	opts     BreakerOptions
	cb       *gobreaker.CircuitBreaker
	mu       sync.RWMutex
	lastTrip time.Time
}

// NewBreaker constructs a breaker for a single named upstream (e.g. "ocr",
// "interpreter").
func NewBreaker(upstream string, opts BreakerOptions) *Breaker {
	b := &Breaker{upstream: upstream, opts: opts}
	settings := gobreaker.Settings{
		Name:        upstream,
		MaxRequests: opts.HalfOpenRequests,
		Interval:    0, // never reset CLOSED counters on a timer; only on transition
		Timeout:     opts.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.lastTrip = time.Now()
				b.mu.Unlock()
			}
		},
	}
	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// Upstream returns the name this breaker guards.
func (b *Breaker) Upstream() string { return b.upstream }

// State reports the breaker's current state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// retryAfterMs computes how long until the breaker's OPEN window elapses.
func (b *Breaker) retryAfterMs() int64 {
	b.mu.RLock()
	lastTrip := b.lastTrip
	b.mu.RUnlock()
	if lastTrip.IsZero() {
		return b.opts.ResetTimeout.Milliseconds()
	}
	remaining := b.opts.ResetTimeout - time.Since(lastTrip)
	if remaining < 0 {
		return 0
	}
	return remaining.Milliseconds()
}

// Execute runs fn through the breaker. If the breaker is OPEN, fn is never
// called and a *CircuitBreakerOpenError is returned instead.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return &CircuitBreakerOpenError{Upstream: b.upstream, RetryAfterMs: b.retryAfterMs()}
	}
	return err
}

// Reset force-closes the breaker, for administrative use.
func (b *Breaker) Reset() {
	settings := gobreaker.Settings{
		Name:        b.upstream,
		MaxRequests: b.opts.HalfOpenRequests,
		Timeout:     b.opts.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.lastTrip = time.Now()
				b.mu.Unlock()
			}
		},
	}
	b.mu.Lock()
	b.lastTrip = time.Time{}
	b.mu.Unlock()
	b.cb = gobreaker.NewCircuitBreaker(settings)
}

// Registry holds singleton breakers, one per named upstream.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	opts     BreakerOptions
}

// NewRegistry returns an empty registry using opts for any breaker it
// lazily creates.
func NewRegistry(opts BreakerOptions) *Registry {
	return &Registry{breakers: make(map[string]*Breaker), opts: opts}
}

// Get returns the singleton breaker for upstream, creating it on first use.
func (r *Registry) Get(upstream string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[upstream]
	if !ok {
		b = NewBreaker(upstream, r.opts)
		r.breakers[upstream] = b
	}
	return b
}
