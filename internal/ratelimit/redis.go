package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript performs the check-and-increment as a single atomic
// round trip. Client-side read-then-write would let two workers both
// observe count < limit and overshoot the quota.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = redis.call('GET', key)
if not count then
  redis.call('SET', key, 1, 'PX', window)
  return {1, window}
end
count = tonumber(count)
if count + 1 <= limit then
  redis.call('INCR', key)
  return {1, redis.call('PTTL', key)}
end
return {0, redis.call('PTTL', key)}
`)

// RedisLimiter implements Limiter on a shared Redis counter store
type RedisLimiter struct {
	client redis.Scripter
	now    func() time.Time
}

// NewRedisLimiter creates a limiter backed by the given Redis client
func NewRedisLimiter(client redis.Scripter) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		now:    time.Now,
	}
}

// Consume atomically spends one unit of the sender's hourly quota
func (l *RedisLimiter) Consume(ctx context.Context, sender string, limit int) (Result, error) {
	if limit < 1 {
		return Result{}, fmt.Errorf("invalid hourly limit %d for sender %s", limit, sender)
	}

	key := BucketKey(sender, l.now())
	vals, err := consumeScript.Run(ctx, l.client, []string{key}, limit, Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("failed to consume rate for %s: %w", sender, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("unexpected rate script reply for %s: %v", sender, vals)
	}

	return Result{
		Allowed: vals[0] == 1,
		TTL:     normalizeTTL(time.Duration(vals[1]) * time.Millisecond),
	}, nil
}
