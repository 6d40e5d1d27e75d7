package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := New()

	m.EmailsScheduledTotal.Inc()
	m.EmailsSentTotal.WithLabelValues("example.com").Inc()
	m.DeferralsTotal.WithLabelValues("example.com").Add(2)
	m.QueueDelayed.Set(7)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"dripq_emails_scheduled_total 1",
		`dripq_emails_sent_total{sender_domain="example.com"} 1`,
		`dripq_deferrals_total{sender_domain="example.com"} 2`,
		"dripq_queue_delayed 7",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
