package mailer

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestSandbox(t *testing.T) *SandboxMailer {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sandbox.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m, err := NewSandboxMailer(path, logger)
	if err != nil {
		t.Fatalf("failed to create sandbox mailer: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSandboxMailerCaptures(t *testing.T) {
	m := newTestSandbox(t)
	ctx := context.Background()

	if err := m.Send(ctx, "s@example.com", "r@example.org", "Hello", "<p>Hi</p>"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	messages, err := m.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 captured message, got %d", len(messages))
	}

	msg := messages[0]
	if msg.From != "s@example.com" || msg.To != "r@example.org" {
		t.Errorf("unexpected addresses: %+v", msg)
	}
	if msg.Subject != "Hello" || msg.Body != "<p>Hi</p>" {
		t.Errorf("unexpected content: %+v", msg)
	}
	if msg.CapturedAt.IsZero() {
		t.Error("expected captured_at to be set")
	}
}

func TestSandboxMailerListNewestFirst(t *testing.T) {
	m := newTestSandbox(t)
	ctx := context.Background()

	for _, subject := range []string{"first", "second", "third"} {
		if err := m.Send(ctx, "s@example.com", "r@example.org", subject, "body"); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	messages, err := m.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages with limit, got %d", len(messages))
	}
	if messages[0].Subject != "third" || messages[1].Subject != "second" {
		t.Errorf("expected newest first, got [%s %s]", messages[0].Subject, messages[1].Subject)
	}
}
