package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJobIDs(t *testing.T) {
	if got := InitJobID("abc"); got != "email:abc:init" {
		t.Errorf("InitJobID = %q, want email:abc:init", got)
	}

	at := time.UnixMilli(1700000000000)
	if got := RetryJobID("abc", at); got != "email:abc:retry:1700000000000" {
		t.Errorf("RetryJobID = %q, want email:abc:retry:1700000000000", got)
	}
}

func TestMemoryQueueDelayedEligibility(t *testing.T) {
	now := time.Now()
	q := NewMemoryQueue(0)
	q.now = func() time.Time { return now }
	ctx := context.Background()

	job := &Job{ID: "email:1:init", RecordID: "1", Sender: "s@example.com"}
	if err := q.Enqueue(ctx, job, 5*time.Second); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got != nil {
		t.Fatal("job must not be eligible before its delay elapses")
	}

	now = now.Add(5 * time.Second)
	got, err = q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected eligible job")
	}
	if got.ID != "email:1:init" || got.RecordID != "1" || got.Sender != "s@example.com" {
		t.Errorf("unexpected job: %+v", got)
	}

	// Job is removed on consumption
	got, _ = q.Dequeue(ctx)
	if got != nil {
		t.Error("expected queue to be empty after consumption")
	}
}

func TestMemoryQueueZeroDelayIsImmediatelyEligible(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	if err := q.Enqueue(ctx, &Job{ID: "a", RecordID: "1"}, 0); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got == nil {
		t.Error("expected immediately eligible job")
	}
}

func TestMemoryQueueNegativeDelayClamped(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	if err := q.Enqueue(ctx, &Job{ID: "a", RecordID: "1"}, -time.Minute); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	got, _ := q.Dequeue(ctx)
	if got == nil {
		t.Error("expected job with negative delay to be eligible now")
	}
}

func TestMemoryQueueDuplicateIDIsNoOp(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	if err := q.Enqueue(ctx, &Job{ID: "email:1:init", RecordID: "1"}, 0); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(ctx, &Job{ID: "email:1:init", RecordID: "1"}, 0); err != nil {
		t.Fatalf("duplicate Enqueue failed: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Delayed != 1 {
		t.Errorf("expected 1 queued job after duplicate enqueue, got %d", stats.Delayed)
	}
}

func TestMemoryQueueDispatchSpacing(t *testing.T) {
	now := time.Now()
	q := NewMemoryQueue(2 * time.Second)
	q.now = func() time.Time { return now }
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := q.Enqueue(ctx, &Job{ID: id, RecordID: id}, 0); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	first, _ := q.Dequeue(ctx)
	if first == nil {
		t.Fatal("expected first dispatch")
	}

	// Second job is eligible by its own delay but blocked by spacing
	second, _ := q.Dequeue(ctx)
	if second != nil {
		t.Fatal("expected spacing to block the second dispatch")
	}

	now = now.Add(2 * time.Second)
	second, _ = q.Dequeue(ctx)
	if second == nil {
		t.Error("expected second dispatch after spacing elapsed")
	}
}

func TestMemoryQueueEarliestEligibleFirst(t *testing.T) {
	now := time.Now()
	q := NewMemoryQueue(0)
	q.now = func() time.Time { return now }
	ctx := context.Background()

	if err := q.Enqueue(ctx, &Job{ID: "late", RecordID: "late"}, 10*time.Second); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(ctx, &Job{ID: "early", RecordID: "early"}, time.Second); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	now = now.Add(15 * time.Second)
	got, _ := q.Dequeue(ctx)
	if got == nil || got.ID != "early" {
		t.Errorf("expected earliest eligible job first, got %+v", got)
	}
}

func TestMemoryQueueFail(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	job := &Job{ID: "a", RecordID: "1", Sender: "s@example.com"}
	if err := q.Fail(ctx, job, errors.New("smtp 550")); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	failed := q.Failed()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed job, got %d", len(failed))
	}
	if failed[0].Error != "smtp 550" {
		t.Errorf("expected error smtp 550, got %q", failed[0].Error)
	}

	stats, _ := q.Stats(ctx)
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed in stats, got %d", stats.Failed)
	}
}
