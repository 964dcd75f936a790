package resiliency

import "context"

// WithResiliency composes retry inside the circuit breaker: the breaker
// executes the whole retry loop as one call. A breaker trip short-circuits retry entirely — the breaker is checked once
// per outer call, not once per retry attempt.
func WithResiliency(ctx context.Context, breaker *Breaker, opts RetryOptions, fn func(ctx context.Context) error) error {
	return breaker.Execute(ctx, func(ctx context.Context) error {
		return WithRetry(ctx, opts, fn)
	})
}
