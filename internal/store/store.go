package store

import (
	"context"
	"time"
)

// Store persists email records.
//
// MarkSent and MarkFailed only apply to records still in scheduled
// status; updating an already resolved record is a silent no-op so
// duplicate delivery attempts cannot rewrite history.
type Store interface {
	// Create persists a new record
	Create(ctx context.Context, rec *EmailRecord) error

	// Get retrieves a record by ID.
	// Returns nil, nil if the record does not exist.
	Get(ctx context.Context, id string) (*EmailRecord, error)

	// MarkSent transitions a scheduled record to sent
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed transitions a scheduled record to failed
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// ListScheduled returns scheduled records ordered by scheduled_at ascending
	ListScheduled(ctx context.Context, limit int) ([]*EmailRecord, error)

	// ListResolved returns sent and failed records ordered by sent_at descending
	ListResolved(ctx context.Context, limit int) ([]*EmailRecord, error)

	// Close closes the store
	Close() error
}
