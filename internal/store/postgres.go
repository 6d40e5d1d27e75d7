package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/dripq/dripq/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS emails (
	id            TEXT PRIMARY KEY,
	sender        TEXT NOT NULL,
	recipient     TEXT NOT NULL,
	subject       TEXT NOT NULL,
	body          TEXT NOT NULL,
	scheduled_at  TIMESTAMPTZ NOT NULL,
	delay_seconds INTEGER NOT NULL DEFAULT 0,
	hourly_limit  INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'scheduled',
	sent_at       TIMESTAMPTZ,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_emails_status_scheduled_at ON emails (status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_emails_status_sent_at ON emails (status, sent_at DESC);
`

// PostgresStore implements Store backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and ensures the schema exists
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Create persists a new record
func (s *PostgresStore) Create(ctx context.Context, rec *EmailRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emails (id, sender, recipient, subject, body, scheduled_at,
			delay_seconds, hourly_limit, status, sent_at, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.Sender, rec.Recipient, rec.Subject, rec.Body, rec.ScheduledAt,
		rec.DelaySeconds, rec.HourlyLimit, rec.Status, rec.SentAt, nullString(rec.Error),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID, nil if absent
func (s *PostgresStore) Get(ctx context.Context, id string) (*EmailRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender, recipient, subject, body, scheduled_at,
			delay_seconds, hourly_limit, status, sent_at, error, created_at, updated_at
		FROM emails WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email record: %w", err)
	}
	return rec, nil
}

// MarkSent transitions a scheduled record to sent
func (s *PostgresStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE emails
		SET status = $1, sent_at = $2, error = NULL, updated_at = now()
		WHERE id = $3 AND status = $4`,
		StatusSent, sentAt, id, StatusScheduled,
	)
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	return nil
}

// MarkFailed transitions a scheduled record to failed
func (s *PostgresStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE emails
		SET status = $1, error = $2, updated_at = now()
		WHERE id = $3 AND status = $4`,
		StatusFailed, errMsg, id, StatusScheduled,
	)
	if err != nil {
		return fmt.Errorf("failed to mark email failed: %w", err)
	}
	return nil
}

// ListScheduled returns scheduled records ordered by scheduled_at ascending
func (s *PostgresStore) ListScheduled(ctx context.Context, limit int) ([]*EmailRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, recipient, subject, body, scheduled_at,
			delay_seconds, hourly_limit, status, sent_at, error, created_at, updated_at
		FROM emails WHERE status = $1
		ORDER BY scheduled_at ASC
		LIMIT $2`, StatusScheduled, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled emails: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListResolved returns sent and failed records ordered by sent_at descending
func (s *PostgresStore) ListResolved(ctx context.Context, limit int) ([]*EmailRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, recipient, subject, body, scheduled_at,
			delay_seconds, hourly_limit, status, sent_at, error, created_at, updated_at
		FROM emails WHERE status = $1 OR status = $2
		ORDER BY sent_at DESC NULLS LAST
		LIMIT $3`, StatusSent, StatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved emails: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*EmailRecord, error) {
	rec := &EmailRecord{}
	var sentAt sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(&rec.ID, &rec.Sender, &rec.Recipient, &rec.Subject, &rec.Body,
		&rec.ScheduledAt, &rec.DelaySeconds, &rec.HourlyLimit, &rec.Status,
		&sentAt, &errMsg, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		t := sentAt.Time
		rec.SentAt = &t
	}
	if errMsg.Valid {
		rec.Error = errMsg.String
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]*EmailRecord, error) {
	var records []*EmailRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate email records: %w", err)
	}
	return records, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
