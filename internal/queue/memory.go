package queue

import (
	"context"
	"sync"
	"time"
)

type delayedJob struct {
	job        *Job
	eligibleAt time.Time
}

// MemoryQueue implements Queue with in-process state. Semantics match
// the Redis queue (per-job delay, dispatch spacing, ID dedup) but the
// state is local to one process.
type MemoryQueue struct {
	mu           sync.Mutex
	jobs         map[string]*delayedJob
	failed       []*FailedJob
	spacing      time.Duration
	lastDispatch time.Time
	now          func() time.Time
}

// NewMemoryQueue creates an empty in-memory queue
func NewMemoryQueue(spacing time.Duration) *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(map[string]*delayedJob),
		spacing: spacing,
		now:     time.Now,
	}
}

// Enqueue schedules a job to become eligible after delay
func (q *MemoryQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.ID]; exists {
		return nil
	}

	clone := *job
	q.jobs[job.ID] = &delayedJob{
		job:        &clone,
		eligibleAt: q.now().Add(delay),
	}
	return nil
}

// Dequeue returns the earliest eligible job, or nil, nil when none is
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if q.spacing > 0 && !q.lastDispatch.IsZero() && now.Sub(q.lastDispatch) < q.spacing {
		return nil, nil
	}

	var next *delayedJob
	for _, dj := range q.jobs {
		if dj.eligibleAt.After(now) {
			continue
		}
		if next == nil || dj.eligibleAt.Before(next.eligibleAt) {
			next = dj
		}
	}
	if next == nil {
		return nil, nil
	}

	delete(q.jobs, next.job.ID)
	q.lastDispatch = now
	return next.job, nil
}

// Fail records a failed job for inspection
func (q *MemoryQueue) Fail(ctx context.Context, job *Job, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.failed = append(q.failed, &FailedJob{
		Job:      *job,
		Error:    cause.Error(),
		FailedAt: q.now().UTC(),
	})
	return nil
}

// Failed returns the recorded failed jobs
func (q *MemoryQueue) Failed() []*FailedJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*FailedJob, len(q.failed))
	copy(out, q.failed)
	return out
}

// Stats returns queue statistics
func (q *MemoryQueue) Stats(ctx context.Context) (*Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return &Stats{
		Delayed: int64(len(q.jobs)),
		Failed:  int64(len(q.failed)),
	}, nil
}

// Close is a no-op for the in-memory queue
func (q *MemoryQueue) Close() error {
	return nil
}
