// Package queue provides a distributed delayed-job queue for delivery
// attempts. A job becomes eligible once its own delay has elapsed AND
// the queue-wide minimum interval since the last dispatch has passed;
// the two throttles are independent and both must hold.
package queue

import (
	"context"
	"fmt"
	"time"
)

// Job is one delivery attempt for one email record
type Job struct {
	// ID is unique per logical attempt. Enqueueing an ID that is
	// already queued is a no-op, which makes initial scheduling
	// idempotent per record.
	ID string `json:"id"`

	// RecordID identifies the email record to deliver
	RecordID string `json:"record_id"`

	// Sender is the rate-limited sender address
	Sender string `json:"sender"`
}

// FailedJob is a job whose handler returned an error, kept for
// inspection rather than deleted.
type FailedJob struct {
	Job      Job       `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Stats summarizes queue contents
type Stats struct {
	Delayed int64 `json:"delayed"`
	Failed  int64 `json:"failed"`
}

// Queue is the delayed job queue contract
type Queue interface {
	// Enqueue schedules a job to become eligible after delay.
	// Enqueueing an already queued job ID is a silent no-op.
	Enqueue(ctx context.Context, job *Job, delay time.Duration) error

	// Dequeue returns the next eligible job, honoring the queue-wide
	// dispatch spacing. Returns nil, nil when nothing is eligible.
	// A dequeued job is removed from the queue.
	Dequeue(ctx context.Context) (*Job, error)

	// Fail records a job whose handler failed, for inspection
	Fail(ctx context.Context, job *Job, cause error) error

	// Stats returns queue statistics
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the queue
	Close() error
}

// InitJobID builds the deterministic ID for a record's first delivery
// attempt. Scheduling the same record twice reuses this ID, so the
// attempt cannot be enqueued twice.
func InitJobID(recordID string) string {
	return fmt.Sprintf("email:%s:init", recordID)
}

// RetryJobID builds a fresh ID for a rate-limit deferral retry. The
// timestamp keeps every retry distinct from the initial attempt and
// from earlier retries, so the queue never deduplicates them away.
func RetryJobID(recordID string, at time.Time) string {
	return fmt.Sprintf("email:%s:retry:%d", recordID, at.UnixMilli())
}
