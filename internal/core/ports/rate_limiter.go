package ports

import (
	"context"
	"time"
)

// RateDecision is the outcome of one admission check.
type RateDecision struct {
	Allowed bool
	// RetryAfter is set when Allowed is false: time left in the current window.
	RetryAfter time.Duration
}

// RateLimiter admits at most N attempts per key within a fixed window. Every
// call counts as one attempt.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}
