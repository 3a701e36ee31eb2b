package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetrics_Usable verifies that all Prometheus metrics can be used without
// panic, ensuring label dimensions match usage across the client, http, service,
// and store packages.
func TestMetrics_Usable(t *testing.T) {
	// Route labels use path templates to avoid cardinality (e.g. /weather/{city}
	// not /weather/london).
	HTTPRequestsTotal.WithLabelValues("GET", "/weather/{city}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/weather/{city}").Observe(0.01)
	HTTPRequestsInFlight.Inc()
	HTTPRequestsInFlight.Dec()
	UpstreamCallsTotal.WithLabelValues("success").Inc()
	UpstreamCallsTotal.WithLabelValues("error").Inc()
	UpstreamCallDuration.WithLabelValues("success").Observe(0.1)
	LookupsTotal.WithLabelValues("success").Inc()
	LookupsTotal.WithLabelValues("failure").Inc()
	LookupsTotal.WithLabelValues("timeout").Inc()
	StorageWritesTotal.WithLabelValues("request").Inc()
	StorageWritesTotal.WithLabelValues("response").Inc()
	AuditWriteFailuresTotal.Inc()
	RateLimitDeniedTotal.Inc()
	SignInAttemptsTotal.WithLabelValues("granted").Inc()
	SignInAttemptsTotal.WithLabelValues("denied").Inc()
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
