package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. It is used in
// tests and single-process deployments without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*EmailRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*EmailRecord),
	}
}

// Create persists a new record
func (s *MemoryStore) Create(ctx context.Context, rec *EmailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("email record %s already exists", rec.ID)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

// Get retrieves a record by ID, nil if absent
func (s *MemoryStore) Get(ctx context.Context, id string) (*EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

// MarkSent transitions a scheduled record to sent
func (s *MemoryStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.Status != StatusScheduled {
		return nil
	}

	t := sentAt
	rec.Status = StatusSent
	rec.SentAt = &t
	rec.Error = ""
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed transitions a scheduled record to failed
func (s *MemoryStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.Status != StatusScheduled {
		return nil
	}

	rec.Status = StatusFailed
	rec.Error = errMsg
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// ListScheduled returns scheduled records ordered by scheduled_at ascending
func (s *MemoryStore) ListScheduled(ctx context.Context, limit int) ([]*EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*EmailRecord
	for _, rec := range s.records {
		if rec.Status == StatusScheduled {
			clone := *rec
			records = append(records, &clone)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ScheduledAt.Before(records[j].ScheduledAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ListResolved returns sent and failed records ordered by sent_at descending
func (s *MemoryStore) ListResolved(ctx context.Context, limit int) ([]*EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*EmailRecord
	for _, rec := range s.records {
		if rec.Status == StatusSent || rec.Status == StatusFailed {
			clone := *rec
			records = append(records, &clone)
		}
	}

	// Records without sent_at (failed before sending) sort last
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].SentAt, records[j].SentAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
