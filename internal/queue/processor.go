package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler processes one dequeued job. A nil return removes the job
// for good; an error moves it to the failed set for inspection.
type Handler func(ctx context.Context, job *Job) error

// attemptTimeout bounds one delivery attempt end to end
const attemptTimeout = 2 * time.Minute

// Processor drives a pool of workers that poll the queue and hand
// eligible jobs to a handler.
type Processor struct {
	queue           Queue
	handler         Handler
	workers         int
	processInterval time.Duration
	logger          *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// ProcessorConfig contains processor configuration
type ProcessorConfig struct {
	Workers         int
	ProcessInterval time.Duration
}

// NewProcessor creates a new queue processor
func NewProcessor(q Queue, handler Handler, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.ProcessInterval <= 0 {
		cfg.ProcessInterval = time.Second
	}

	return &Processor{
		queue:           q,
		handler:         handler,
		workers:         cfg.Workers,
		processInterval: cfg.ProcessInterval,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
}

// Start starts the processor workers
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("starting queue processor", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop stops the processor gracefully, waiting for in-flight attempts
func (p *Processor) Stop() {
	p.logger.Info("stopping queue processor")
	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info("queue processor stopped")
}

// worker is the main processing loop
func (p *Processor) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Debug("worker started")

	ticker := time.NewTicker(p.processInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-p.stopCh:
			logger.Debug("worker stopped by signal")
			return
		case <-ticker.C:
			p.processOne(ctx, logger)
		}
	}
}

// processOne dispatches a single eligible job, if any
func (p *Processor) processOne(ctx context.Context, logger *slog.Logger) {
	job, err := p.queue.Dequeue(ctx)
	if err != nil {
		logger.Error("failed to dequeue job", "error", err)
		return
	}
	if job == nil {
		return // Nothing eligible yet
	}

	logger = logger.With("job_id", job.ID, "record_id", job.RecordID)
	logger.Debug("dispatching job")

	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	err = p.handler(attemptCtx, job)
	cancel()

	if err == nil {
		return
	}

	logger.Warn("job attempt failed", "error", err)
	if failErr := p.queue.Fail(ctx, job, err); failErr != nil {
		logger.Error("failed to record failed job", "error", failErr)
	}
}
