package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dripq/dripq/internal/queue"
	"github.com/dripq/dripq/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *queue.MemoryQueue) {
	t.Helper()

	st := store.NewMemoryStore()
	q := queue.NewMemoryQueue(0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(st, q, nil, logger), st, q
}

func TestScheduleCreatesRecordPerRecipient(t *testing.T) {
	svc, st, q := newTestService(t)
	ctx := context.Background()

	start := time.Now().Add(time.Minute)
	req := &Request{
		From:         "sender@example.com",
		Subject:      "Launch",
		Body:         "<p>We launched</p>",
		Recipients:   []string{"a@example.org", "b@example.org", "c@example.org"},
		StartTime:    start,
		DelayBetween: 2 * time.Second,
		HourlyLimit:  100,
	}

	ids, err := svc.Schedule(ctx, req)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 record IDs, got %d", len(ids))
	}

	for i, id := range ids {
		rec, err := st.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if rec == nil {
			t.Fatalf("record %s missing", id)
		}
		if rec.Status != store.StatusScheduled {
			t.Errorf("record %d: expected status scheduled, got %s", i, rec.Status)
		}
		if rec.Recipient != req.Recipients[i] {
			t.Errorf("record %d: expected recipient %s, got %s", i, req.Recipients[i], rec.Recipient)
		}

		want := start.Add(time.Duration(i) * 2 * time.Second)
		if !rec.ScheduledAt.Equal(want) {
			t.Errorf("record %d: expected scheduled_at %v, got %v", i, want, rec.ScheduledAt)
		}
		if rec.HourlyLimit != 100 {
			t.Errorf("record %d: expected hourly limit 100, got %d", i, rec.HourlyLimit)
		}
	}

	stats, _ := q.Stats(ctx)
	if stats.Delayed != 3 {
		t.Errorf("expected 3 queued jobs, got %d", stats.Delayed)
	}
}

func TestScheduleNonDecreasingTimes(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	req := &Request{
		From:         "sender@example.com",
		Subject:      "s",
		Body:         "b",
		Recipients:   []string{"a@x.org", "b@x.org", "c@x.org", "d@x.org"},
		StartTime:    time.Now(),
		DelayBetween: 5 * time.Second,
		HourlyLimit:  10,
	}

	ids, err := svc.Schedule(ctx, req)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	var prev time.Time
	for i, id := range ids {
		rec, _ := st.Get(ctx, id)
		if i > 0 && rec.ScheduledAt.Before(prev) {
			t.Errorf("scheduled_at decreased at index %d", i)
		}
		prev = rec.ScheduledAt
	}
}

func TestSchedulePastStartIsImmediatelyEligible(t *testing.T) {
	svc, _, q := newTestService(t)
	ctx := context.Background()

	req := &Request{
		From:         "sender@example.com",
		Subject:      "s",
		Body:         "b",
		Recipients:   []string{"a@x.org"},
		StartTime:    time.Now().Add(-time.Hour),
		DelayBetween: 2 * time.Second,
		HourlyLimit:  10,
	}

	if _, err := svc.Schedule(ctx, req); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	job, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if job == nil {
		t.Fatal("expected job for past start time to be eligible immediately")
	}
}

func TestScheduleInitJobIDIsDeterministic(t *testing.T) {
	svc, _, q := newTestService(t)
	ctx := context.Background()

	req := &Request{
		From:         "sender@example.com",
		Subject:      "s",
		Body:         "b",
		Recipients:   []string{"a@x.org"},
		StartTime:    time.Now(),
		DelayBetween: 0,
		HourlyLimit:  10,
	}

	ids, err := svc.Schedule(ctx, req)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	job, _ := q.Dequeue(ctx)
	if job == nil {
		t.Fatal("expected a job")
	}
	if job.ID != queue.InitJobID(ids[0]) {
		t.Errorf("expected init job ID %q, got %q", queue.InitJobID(ids[0]), job.ID)
	}
	if job.Sender != "sender@example.com" {
		t.Errorf("expected job sender to be the campaign sender, got %q", job.Sender)
	}
}

func TestScheduleZeroDelayBetween(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	start := time.Now()
	req := &Request{
		From:         "sender@example.com",
		Subject:      "s",
		Body:         "b",
		Recipients:   []string{"a@x.org", "b@x.org"},
		StartTime:    start,
		DelayBetween: 0,
		HourlyLimit:  10,
	}

	ids, err := svc.Schedule(ctx, req)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	for _, id := range ids {
		rec, _ := st.Get(ctx, id)
		if !rec.ScheduledAt.Equal(start) {
			t.Errorf("expected all recipients scheduled at start, got %v", rec.ScheduledAt)
		}
	}
}
