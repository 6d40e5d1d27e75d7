// Package delivery consumes delivery jobs: it guards against stale
// attempts, enforces the sender quota, and hands messages to the
// transport.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dripq/dripq/internal/email"
	"github.com/dripq/dripq/internal/mailer"
	"github.com/dripq/dripq/internal/metrics"
	"github.com/dripq/dripq/internal/queue"
	"github.com/dripq/dripq/internal/ratelimit"
	"github.com/dripq/dripq/internal/store"
)

// Worker processes one delivery job per Handle call. It is safe for
// concurrent use; all shared state lives in the store, the queue and
// the rate counter.
type Worker struct {
	store   store.Store
	limiter ratelimit.Limiter
	queue   queue.Queue
	mailer  mailer.Mailer
	spacing time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewWorker creates a delivery worker. spacing is the queue-wide
// dispatch interval, added to deferral delays so a retry does not
// land exactly on the limiter boundary.
func NewWorker(st store.Store, l ratelimit.Limiter, q queue.Queue, m mailer.Mailer,
	spacing time.Duration, mx *metrics.Metrics, logger *slog.Logger) *Worker {
	return &Worker{
		store:   st,
		limiter: l,
		queue:   q,
		mailer:  m,
		spacing: spacing,
		metrics: mx,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle processes one delivery attempt.
//
// The record check makes duplicate and superseded attempts harmless:
// an attempt for a missing or already resolved record ends silently
// with no side effects. A quota denial re-enqueues a fresh retry job
// and leaves the record scheduled. A transport failure resolves the
// record as failed and is returned so the queue's failure accounting
// sees it.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	logger := w.logger.With("job_id", job.ID, "record_id", job.RecordID)

	rec, err := w.store.Get(ctx, job.RecordID)
	if err != nil {
		return fmt.Errorf("failed to load record %s: %w", job.RecordID, err)
	}
	if rec == nil || rec.Status != store.StatusScheduled {
		logger.Debug("skipping attempt, record missing or already resolved")
		if w.metrics != nil {
			w.metrics.AttemptsSkippedTotal.Inc()
		}
		return nil
	}

	res, err := w.limiter.Consume(ctx, rec.Sender, rec.HourlyLimit)
	if err != nil {
		return fmt.Errorf("failed to consume rate for %s: %w", rec.Sender, err)
	}

	if !res.Allowed {
		return w.deferAttempt(ctx, rec, res.TTL, logger)
	}

	sendErr := w.mailer.Send(ctx, rec.Sender, rec.Recipient, rec.Subject, rec.Body)
	domain := email.ExtractDomainOrDefault(rec.Sender, "unknown")

	if sendErr != nil {
		if err := w.store.MarkFailed(ctx, rec.ID, sendErr.Error()); err != nil {
			logger.Error("failed to mark record failed", "error", err)
		}
		if w.metrics != nil {
			w.metrics.EmailsFailedTotal.WithLabelValues(domain).Inc()
		}
		logger.Warn("delivery failed", "recipient", rec.Recipient, "error", sendErr)
		return sendErr
	}

	if err := w.store.MarkSent(ctx, rec.ID, w.now()); err != nil {
		return fmt.Errorf("failed to mark record sent: %w", err)
	}
	if w.metrics != nil {
		w.metrics.EmailsSentTotal.WithLabelValues(domain).Inc()
	}
	logger.Info("email sent", "sender", rec.Sender, "recipient", rec.Recipient)
	return nil
}

// deferAttempt re-enqueues a rate-limited attempt. The record stays
// scheduled; this attempt records no outcome.
func (w *Worker) deferAttempt(ctx context.Context, rec *store.EmailRecord, ttl time.Duration, logger *slog.Logger) error {
	wait := ttl + w.spacing
	retry := &queue.Job{
		ID:       queue.RetryJobID(rec.ID, w.now()),
		RecordID: rec.ID,
		Sender:   rec.Sender,
	}

	if err := w.queue.Enqueue(ctx, retry, wait); err != nil {
		return fmt.Errorf("failed to enqueue deferral retry for %s: %w", rec.ID, err)
	}

	if w.metrics != nil {
		domain := email.ExtractDomainOrDefault(rec.Sender, "unknown")
		w.metrics.DeferralsTotal.WithLabelValues(domain).Inc()
	}
	logger.Info("sender over quota, attempt deferred",
		"sender", rec.Sender,
		"wait", wait,
	)
	return nil
}
