package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dosecerta/dosecerta-backend/internal/repository/ports"
)

// Fixed-window counter. The INCR runs unconditionally so denied attempts
// still count, and the window TTL is set only when the key is created, in the
// same round trip.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type FixedWindowLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	window      time.Duration
}

func NewFixedWindowLimiter(client redis.UniversalClient, prefix string, maxAttempts int, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = time.Hour
	}
	return &FixedWindowLimiter{
		client:      client,
		prefix:      prefix,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *FixedWindowLimiter) CheckAndIncrement(ctx context.Context, key string) (ports.RateLimitDecision, error) {
	if l.client == nil {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit: redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}

	storeKey := fmt.Sprintf("%s:%s", l.prefix, key)
	raw, err := fixedWindowScript.Run(ctx, l.client, []string{storeKey}, l.window.Milliseconds()).Result()
	if err != nil {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return ports.RateLimitDecision{}, fmt.Errorf("rate limit: unexpected script reply %T", raw)
	}
	count, _ := values[0].(int64)
	ttlMS, _ := values[1].(int64)

	decision := ports.RateLimitDecision{
		Allowed:   count <= int64(l.maxAttempts),
		Remaining: l.maxAttempts - int(count),
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed {
		decision.RetryAfter = time.Duration(ttlMS) * time.Millisecond
	}
	return decision, nil
}
