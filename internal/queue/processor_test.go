package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessorProcessesJobs(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, &Job{ID: id, RecordID: id}, 0); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	handler := func(ctx context.Context, job *Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		return nil
	}

	p := NewProcessor(q, handler, ProcessorConfig{
		Workers:         3,
		ProcessInterval: 5 * time.Millisecond,
	}, discardLogger())

	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := len(seen) == 3
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for jobs, processed %d", len(seen))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestProcessorRecordsHandlerFailure(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	if err := q.Enqueue(ctx, &Job{ID: "a", RecordID: "1"}, 0); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	handler := func(ctx context.Context, job *Job) error {
		return errors.New("transport exploded")
	}

	p := NewProcessor(q, handler, ProcessorConfig{
		Workers:         1,
		ProcessInterval: 5 * time.Millisecond,
	}, discardLogger())

	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if failed := q.Failed(); len(failed) == 1 {
			if failed[0].Error != "transport exploded" {
				t.Errorf("expected handler error recorded, got %q", failed[0].Error)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for failure record")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestProcessorStops(t *testing.T) {
	q := NewMemoryQueue(0)

	p := NewProcessor(q, func(ctx context.Context, job *Job) error {
		return nil
	}, ProcessorConfig{Workers: 2, ProcessInterval: 5 * time.Millisecond}, discardLogger())

	p.Start(context.Background())

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestProcessorDefaults(t *testing.T) {
	p := NewProcessor(NewMemoryQueue(0), nil, ProcessorConfig{}, discardLogger())

	if p.workers != 5 {
		t.Errorf("expected default workers 5, got %d", p.workers)
	}
	if p.processInterval != time.Second {
		t.Errorf("expected default process interval 1s, got %v", p.processInterval)
	}
}
