package api

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outgoing requests
type RateLimiter interface {
	// Wait blocks until a request may be sent or ctx is done
	Wait(ctx context.Context) error
}

// NewRateLimiter returns a token bucket allowing requestsPerSecond with a burst of one.
// A non-positive rate disables limiting.
func NewRateLimiter(requestsPerSecond float64) RateLimiter {
	if requestsPerSecond <= 0 {
		return NewNoOpRateLimiter()
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

// NoOpRateLimiter implements the RateLimiter interface but performs no rate limiting
type NoOpRateLimiter struct{}

// NewNoOpRateLimiter creates a rate limiter that performs no limiting
func NewNoOpRateLimiter() *NoOpRateLimiter {
	return &NoOpRateLimiter{}
}

// Wait returns immediately unless ctx is already done
func (rl *NoOpRateLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}
