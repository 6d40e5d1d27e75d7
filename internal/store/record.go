package store

import (
	"time"
)

// Status represents the lifecycle state of an email record
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
)

// EmailRecord is one scheduled message to one recipient.
// Records are created by the scheduler and resolved by the delivery
// worker; a record never leaves sent or failed once it gets there.
type EmailRecord struct {
	ID           string     `json:"id"`
	Sender       string     `json:"sender"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	DelaySeconds int        `json:"delay_seconds"`
	HourlyLimit  int        `json:"hourly_limit"`
	Status       Status     `json:"status"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
