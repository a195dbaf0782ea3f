package resilience

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// GuardConfig combines throttling, retry and circuit breaking for one upstream.
type GuardConfig struct {
	// RatePerSec <= 0 disables throttling.
	RatePerSec float64
	Burst      int
	Retry      RetryConfig
	Breaker    CircuitBreakerConfig
}

// DefaultGuardConfig returns the provider fetch defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RatePerSec: 50,
		Burst:      10,
		Retry:      DefaultRetryConfig(),
		Breaker:    DefaultCircuitBreakerConfig(),
	}
}

// Guard wraps calls to a single upstream. It is safe for concurrent use.
type Guard struct {
	limiter *rate.Limiter
	breaker *CircuitBreaker
	retry   RetryConfig
}

// NewGuard creates a Guard from cfg.
func NewGuard(cfg GuardConfig) *Guard {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	retry := cfg.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = IsTransient
	}

	return &Guard{
		limiter: rate.NewLimiter(limit, burst),
		breaker: NewCircuitBreaker(cfg.Breaker),
		retry:   retry,
	}
}

// Breaker exposes the circuit breaker for metrics.
func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

// Call runs fn under the guard. Each attempt waits for a limiter token and
// passes through the breaker; an open circuit ends retries immediately.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	return DoVal(ctx, g.retry, func(ctx context.Context) (T, error) {
		var zero T
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		return ExecuteVal(ctx, g.breaker, fn)
	})
}

// IsCircuitOpen reports whether err came from an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
