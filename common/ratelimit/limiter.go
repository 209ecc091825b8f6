package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter. INCR creates the key at 1; the first hit in a
// window sets the expiry, so the window can never leak open.
const rateLimitScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[2])
end
local limit = tonumber(ARGV[1])
if current > limit then
  local ttl = redis.call('TTL', KEYS[1])
  if ttl < 0 then ttl = tonumber(ARGV[2]) end
  return {0, current, limit, ttl}
end
return {1, current, limit, 0}
`

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// Limiter provides per-actor write limiting using Redis + Lua
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	logger Logger
}

// NewLimiter creates a rate limiter backed by the given Redis client
func NewLimiter(redisClient *redis.Client, logger Logger) *Limiter {
	return &Limiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// CheckActorWrites checks the per-actor direct-mutation limit
func (l *Limiter) CheckActorWrites(ctx context.Context, actorID string, limit int64) (*Result, error) {
	key := fmt.Sprintf("rate_limit:writes:%s", actorID)
	return l.check(ctx, key, limit, 60)
}

// CheckActorSuggestions checks the per-actor suggestion-creation limit
func (l *Limiter) CheckActorSuggestions(ctx context.Context, actorID string, limit int64) (*Result, error) {
	key := fmt.Sprintf("rate_limit:suggest:%s", actorID)
	return l.check(ctx, key, limit, 60)
}

// check executes the rate limit Lua script atomically
func (l *Limiter) check(ctx context.Context, key string, limit int64, windowSec int) (*Result, error) {
	result, err := l.script.Run(ctx, l.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		l.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	// Result array: {allowed, current_count, limit, retry_after}
	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 4 {
		return nil, fmt.Errorf("unexpected script result format")
	}

	out := &Result{
		Allowed:           resultArray[0].(int64) == 1,
		CurrentCount:      resultArray[1].(int64),
		Limit:             resultArray[2].(int64),
		RetryAfterSeconds: resultArray[3].(int64),
	}

	if !out.Allowed {
		l.logger.Warn("rate limit exceeded",
			"key", key,
			"current", out.CurrentCount,
			"limit", out.Limit,
			"retry_after", out.RetryAfterSeconds)
	}

	return out, nil
}

// Reset clears a rate limit counter (for testing/admin)
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, key).Err()
}
