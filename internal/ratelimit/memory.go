package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type bucket struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter implements Limiter with an in-process map. It applies
// the same fixed-window semantics as the Redis limiter but its state
// is local to the process, so it cannot enforce a global quota across
// multiple worker instances.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewMemoryLimiter creates an empty in-memory limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Consume spends one unit of the sender's hourly quota
func (l *MemoryLimiter) Consume(ctx context.Context, sender string, limit int) (Result, error) {
	if limit < 1 {
		return Result{}, fmt.Errorf("invalid hourly limit %d for sender %s", limit, sender)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := BucketKey(sender, now)

	b, ok := l.buckets[key]
	if ok && !b.expiresAt.After(now) {
		delete(l.buckets, key)
		ok = false
	}

	if !ok {
		l.buckets[key] = &bucket{count: 1, expiresAt: now.Add(Window)}
		return Result{Allowed: true, TTL: Window}, nil
	}

	ttl := normalizeTTL(b.expiresAt.Sub(now))
	if b.count+1 <= limit {
		b.count++
		return Result{Allowed: true, TTL: ttl}, nil
	}
	return Result{Allowed: false, TTL: ttl}, nil
}
