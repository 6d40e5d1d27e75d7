package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for dripq
type Metrics struct {
	// Pipeline counters
	EmailsScheduledTotal prometheus.Counter
	EmailsSentTotal      *prometheus.CounterVec
	EmailsFailedTotal    *prometheus.CounterVec
	DeferralsTotal       *prometheus.CounterVec
	AttemptsSkippedTotal prometheus.Counter

	// Queue gauges
	QueueDelayed prometheus.Gauge
	QueueFailed  prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EmailsScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dripq_emails_scheduled_total",
				Help: "Total number of email records created by the scheduler",
			},
		),
		EmailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripq_emails_sent_total",
				Help: "Total number of successfully delivered emails",
			},
			[]string{"sender_domain"},
		),
		EmailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripq_emails_failed_total",
				Help: "Total number of permanently failed emails",
			},
			[]string{"sender_domain"},
		),
		DeferralsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripq_deferrals_total",
				Help: "Total number of attempts re-enqueued because the sender was over quota",
			},
			[]string{"sender_domain"},
		),
		AttemptsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dripq_attempts_skipped_total",
				Help: "Total number of attempts skipped because the record was missing or already resolved",
			},
		),
		QueueDelayed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dripq_queue_delayed",
				Help: "Number of jobs waiting for their eligible time",
			},
		),
		QueueFailed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dripq_queue_failed",
				Help: "Number of jobs kept for inspection after a failed attempt",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dripq_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dripq_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.EmailsScheduledTotal,
		m.EmailsSentTotal,
		m.EmailsFailedTotal,
		m.DeferralsTotal,
		m.AttemptsSkippedTotal,
		m.QueueDelayed,
		m.QueueFailed,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
