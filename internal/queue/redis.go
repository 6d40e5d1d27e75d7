package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// enqueueScript adds a job only if its ID is not already queued, so a
// duplicate enqueue of the same logical attempt is a no-op.
var enqueueScript = redis.NewScript(`
local added = redis.call('ZADD', KEYS[1], 'NX', ARGV[1], ARGV[2])
if added == 1 then
  redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
end
return added
`)

// dequeueScript pops the earliest eligible job while enforcing the
// queue-wide dispatch spacing. Doing both in one script keeps the
// spacing honest across any number of consumer processes.
var dequeueScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local spacing = tonumber(ARGV[2])
if spacing > 0 then
  local last = redis.call('GET', KEYS[2])
  if last and now - tonumber(last) < spacing then
    return false
  end
end
local ready = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now, 'LIMIT', 0, 1)
if #ready == 0 then
  return false
end
local id = ready[1]
redis.call('ZREM', KEYS[1], id)
local payload = redis.call('HGET', KEYS[3], id)
redis.call('HDEL', KEYS[3], id)
if spacing > 0 then
  redis.call('SET', KEYS[2], now, 'PX', spacing)
end
return {id, payload}
`)

// RedisQueue implements Queue on Redis: a sorted set of job IDs scored
// by eligible time, a payload hash, and a last-dispatch timestamp for
// the queue-wide spacing.
type RedisQueue struct {
	client  *redis.Client
	spacing time.Duration
	now     func() time.Time

	jobsKey         string
	payloadsKey     string
	failedKey       string
	lastDispatchKey string
}

// NewRedisQueue creates a queue using the given key prefix
func NewRedisQueue(client *redis.Client, keyPrefix string, spacing time.Duration) *RedisQueue {
	return &RedisQueue{
		client:          client,
		spacing:         spacing,
		now:             time.Now,
		jobsKey:         keyPrefix + ":jobs",
		payloadsKey:     keyPrefix + ":payloads",
		failedKey:       keyPrefix + ":failed",
		lastDispatchKey: keyPrefix + ":last_dispatch",
	}
}

// Enqueue schedules a job to become eligible after delay
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	eligibleAt := q.now().Add(delay).UnixMilli()
	keys := []string{q.jobsKey, q.payloadsKey}
	if err := enqueueScript.Run(ctx, q.client, keys, eligibleAt, job.ID, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue returns the next eligible job, or nil, nil when none is
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	keys := []string{q.jobsKey, q.lastDispatchKey, q.payloadsKey}
	res, err := dequeueScript.Run(ctx, q.client, keys, q.now().UnixMilli(), q.spacing.Milliseconds()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return nil, fmt.Errorf("unexpected dequeue reply: %v", res)
	}
	payload, ok := vals[1].(string)
	if !ok {
		return nil, fmt.Errorf("job %v has no payload", vals[0])
	}

	job := &Job{}
	if err := json.Unmarshal([]byte(payload), job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	return job, nil
}

// Fail records a failed job for inspection
func (q *RedisQueue) Fail(ctx context.Context, job *Job, cause error) error {
	data, err := json.Marshal(&FailedJob{
		Job:      *job,
		Error:    cause.Error(),
		FailedAt: q.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal failed job %s: %w", job.ID, err)
	}

	if err := q.client.HSet(ctx, q.failedKey, job.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to record failed job %s: %w", job.ID, err)
	}
	return nil
}

// Stats returns queue statistics
func (q *RedisQueue) Stats(ctx context.Context) (*Stats, error) {
	delayed, err := q.client.ZCard(ctx, q.jobsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count delayed jobs: %w", err)
	}
	failed, err := q.client.HLen(ctx, q.failedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count failed jobs: %w", err)
	}
	return &Stats{Delayed: delayed, Failed: failed}, nil
}

// Close is a no-op; the Redis client is owned by the application
func (q *RedisQueue) Close() error {
	return nil
}
