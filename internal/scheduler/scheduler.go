// Package scheduler turns one campaign request into per-recipient
// email records and delayed delivery jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dripq/dripq/internal/metrics"
	"github.com/dripq/dripq/internal/queue"
	"github.com/dripq/dripq/internal/store"
)

// Request is one campaign: the same message to an ordered list of
// recipients, spaced delayBetween apart starting at startTime.
type Request struct {
	From         string
	Subject      string
	Body         string
	Recipients   []string
	StartTime    time.Time
	DelayBetween time.Duration
	HourlyLimit  int
}

// Service schedules campaigns. It never consults the rate limiter:
// an over-quota campaign is accepted in full and the excess gets
// deferred by the limiter at delivery time.
type Service struct {
	store   store.Store
	queue   queue.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a scheduling service
func NewService(st store.Store, q queue.Queue, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		queue:   q,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Schedule creates one record and one delayed job per recipient and
// returns the created record IDs. Recipient i is scheduled at
// startTime + i*delayBetween.
func (s *Service) Schedule(ctx context.Context, req *Request) ([]string, error) {
	ids := make([]string, 0, len(req.Recipients))

	for i, recipient := range req.Recipients {
		scheduledAt := req.StartTime.Add(time.Duration(i) * req.DelayBetween)

		rec := &store.EmailRecord{
			ID:           uuid.New().String(),
			Sender:       req.From,
			Recipient:    recipient,
			Subject:      req.Subject,
			Body:         req.Body,
			ScheduledAt:  scheduledAt,
			DelaySeconds: int(req.DelayBetween / time.Second),
			HourlyLimit:  req.HourlyLimit,
			Status:       store.StatusScheduled,
		}

		if err := s.store.Create(ctx, rec); err != nil {
			return ids, fmt.Errorf("failed to create record for %s: %w", recipient, err)
		}

		job := &queue.Job{
			ID:       queue.InitJobID(rec.ID),
			RecordID: rec.ID,
			Sender:   req.From,
		}
		delay := scheduledAt.Sub(s.now())
		if delay < 0 {
			delay = 0
		}
		if err := s.queue.Enqueue(ctx, job, delay); err != nil {
			return ids, fmt.Errorf("failed to enqueue job for %s: %w", recipient, err)
		}

		ids = append(ids, rec.ID)
		if s.metrics != nil {
			s.metrics.EmailsScheduledTotal.Inc()
		}
	}

	s.logger.Info("campaign scheduled",
		"sender", req.From,
		"recipients", len(req.Recipients),
		"start", req.StartTime,
		"delay_between", req.DelayBetween,
	)
	return ids, nil
}
