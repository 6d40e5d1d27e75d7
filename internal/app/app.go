package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dripq/dripq/internal/api"
	"github.com/dripq/dripq/internal/config"
	"github.com/dripq/dripq/internal/delivery"
	"github.com/dripq/dripq/internal/mailer"
	"github.com/dripq/dripq/internal/metrics"
	"github.com/dripq/dripq/internal/queue"
	"github.com/dripq/dripq/internal/ratelimit"
	"github.com/dripq/dripq/internal/scheduler"
	"github.com/dripq/dripq/internal/store"
)

// Mode selects which components an instance runs. API instances accept
// campaigns, worker instances deliver them; both share the same store
// and queue, so they scale independently.
type Mode string

const (
	ModeAll    Mode = "all"
	ModeAPI    Mode = "api"
	ModeWorker Mode = "worker"
)

// App is the main application
type App struct {
	config        *config.Config
	mode          Mode
	store         store.Store
	queue         queue.Queue
	limiter       ratelimit.Limiter
	mailer        mailer.Mailer
	apiServer     *api.Server
	metricsServer *metrics.Server
	metrics       *metrics.Metrics
	processor     *queue.Processor
	redisClient   *redis.Client
	logger        *slog.Logger
}

// New creates a new application
func New(cfg *config.Config, mode Mode, version string) (*App, error) {
	logger := setupLogger(cfg.Logging)

	var m *metrics.Metrics
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path,
			logger.With("component", "metrics"))
	}

	// Create the record store
	var st store.Store
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := store.NewPostgresStore(ctx, cfg.Database)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		st = pg
		logger.Info("using postgres record store")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("no database DSN configured, using in-memory record store")
	}

	// Create the queue and rate limiter, backed by Redis when configured
	var q queue.Queue
	var limiter ratelimit.Limiter
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		redisClient = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		q = queue.NewRedisQueue(redisClient, cfg.Queue.KeyPrefix, cfg.Queue.MinDispatchInterval)
		limiter = ratelimit.NewRedisLimiter(redisClient)
		logger.Info("using redis queue and rate counter", "key_prefix", cfg.Queue.KeyPrefix)
	} else {
		q = queue.NewMemoryQueue(cfg.Queue.MinDispatchInterval)
		limiter = ratelimit.NewMemoryLimiter()
		logger.Warn("no redis URL configured, using in-memory queue and rate counter")
	}

	app := &App{
		config:        cfg,
		mode:          mode,
		store:         st,
		queue:         q,
		limiter:       limiter,
		metrics:       m,
		metricsServer: metricsServer,
		redisClient:   redisClient,
		logger:        logger,
	}

	if mode == ModeAll || mode == ModeWorker {
		if err := app.setupWorker(); err != nil {
			return nil, err
		}
	}

	if mode == ModeAll || mode == ModeAPI {
		sched := scheduler.NewService(st, q, m, logger.With("component", "scheduler"))
		app.apiServer = api.NewServer(sched, st, cfg, m, logger.With("component", "api"), version)
	}

	return app, nil
}

// setupWorker creates the outbound mailer, the delivery worker and the
// queue processor that drives it.
func (a *App) setupWorker() error {
	var m mailer.Mailer
	if a.config.SMTP.Sandbox {
		sandbox, err := mailer.NewSandboxMailer(a.config.SMTP.SandboxPath,
			a.logger.With("component", "sandbox"))
		if err != nil {
			return fmt.Errorf("failed to create sandbox mailer: %w", err)
		}
		m = sandbox
		a.logger.Info("sandbox mode enabled, messages are captured locally",
			"path", a.config.SMTP.SandboxPath)
	} else {
		smtpMailer, err := mailer.NewSMTPMailer(a.config.SMTP, a.config.Server.Hostname,
			a.logger.With("component", "smtp"))
		if err != nil {
			return fmt.Errorf("failed to create smtp mailer: %w", err)
		}
		m = smtpMailer
	}
	a.mailer = m

	worker := delivery.NewWorker(a.store, a.limiter, a.queue, m,
		a.config.Queue.MinDispatchInterval, a.metrics,
		a.logger.With("component", "delivery"))

	a.processor = queue.NewProcessor(a.queue, worker.Handle, queue.ProcessorConfig{
		Workers:         a.config.Queue.Workers,
		ProcessInterval: a.config.Queue.ProcessInterval,
	}, a.logger.With("component", "processor"))

	return nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting dripq",
		"mode", string(a.mode),
		"api_addr", a.config.API.ListenAddr,
		"workers", a.config.Queue.Workers,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.processor != nil {
		a.processor.Start(ctx)
	}

	errCh := make(chan error, 2)

	if a.apiServer != nil {
		go func() {
			if err := a.apiServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("api server: %w", err)
			}
		}()
	}

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	if a.metrics != nil {
		go a.pollQueueStats(ctx)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// pollQueueStats periodically exports queue depths as gauges
func (a *App) pollQueueStats(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := a.queue.Stats(ctx)
			if err != nil {
				a.logger.Debug("failed to read queue stats", "error", err)
				continue
			}
			a.metrics.QueueDelayed.Set(float64(stats.Delayed))
			a.metrics.QueueFailed.Set(float64(stats.Failed))
		}
	}
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop the processor first so no attempt is cut off mid-send
	if a.processor != nil {
		a.processor.Stop()
	}

	if a.apiServer != nil {
		if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("api server shutdown error", "error", err)
		}
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if sandbox, ok := a.mailer.(*mailer.SandboxMailer); ok {
		if err := sandbox.Close(); err != nil {
			a.logger.Error("sandbox close error", "error", err)
		}
	}

	if err := a.queue.Close(); err != nil {
		a.logger.Error("queue close error", "error", err)
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("store close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
