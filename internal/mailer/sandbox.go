package mailer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketSandbox = []byte("sandbox")

// CapturedMessage is a message stored by the sandbox mailer instead
// of being sent.
type CapturedMessage struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	CapturedAt time.Time `json:"captured_at"`
}

// SandboxMailer captures messages into a local BoltDB file. It backs
// development and staging environments where real delivery is
// undesirable.
type SandboxMailer struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewSandboxMailer opens (or creates) the capture database
func NewSandboxMailer(path string, logger *slog.Logger) (*SandboxMailer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open sandbox database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSandbox)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sandbox bucket: %w", err)
	}

	return &SandboxMailer{db: db, logger: logger}, nil
}

// Send captures the message instead of relaying it
func (m *SandboxMailer) Send(ctx context.Context, from, to, subject, body string) error {
	msg := &CapturedMessage{
		ID:         uuid.New().String(),
		From:       from,
		To:         to,
		Subject:    subject,
		Body:       body,
		CapturedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal captured message: %w", err)
	}

	err = m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSandbox).Put(makeIndexKey(msg.CapturedAt, msg.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store captured message: %w", err)
	}

	m.logger.Info("sandbox: captured message", "id", msg.ID, "from", from, "to", to)
	return nil
}

// List returns captured messages, newest first
func (m *SandboxMailer) List(ctx context.Context, limit int) ([]*CapturedMessage, error) {
	var messages []*CapturedMessage

	err := m.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSandbox).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(messages) >= limit {
				break
			}
			var msg CapturedMessage
			if err := json.Unmarshal(v, &msg); err != nil {
				continue
			}
			messages = append(messages, &msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list captured messages: %w", err)
	}
	return messages, nil
}

// Close closes the capture database
func (m *SandboxMailer) Close() error {
	return m.db.Close()
}

// makeIndexKey orders captured messages by time, with the ID as a
// tie-breaker for messages captured in the same nanosecond.
func makeIndexKey(at time.Time, id string) []byte {
	key := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(at.UnixNano()))
	return append(key, id...)
}
