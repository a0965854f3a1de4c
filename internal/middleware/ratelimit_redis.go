package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter, starts the window on the
// first hit and returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter shares rate limit counters across instances through Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter whose keys live under prefix.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "monfournisseur:rate_limit"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowMs := l.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMs).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	count, ttlMs, err := parseWindowResult(raw, windowMs)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:    count <= int64(l.limit),
		Remaining:  max(l.limit-int(count), 0),
		RetryAfter: time.Duration(ttlMs) * time.Millisecond,
	}, nil
}

// parseWindowResult decodes the {count, ttl_ms} script reply.
func parseWindowResult(raw any, windowMs int64) (count, ttlMs int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit reply shape: %T", raw)
	}
	count, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit count type: %T", values[0])
	}
	ttlMs, ok = values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rate limit ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}
	return count, ttlMs, nil
}
