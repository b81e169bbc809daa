package ports

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of one attempt. RetryAfter is only
// meaningful when Allowed is false.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter bounds attempts per key within a rolling window. Every call
// counts as an attempt, including denied ones.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, key string) (RateLimitDecision, error)
}
