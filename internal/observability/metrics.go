package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation during upstream stalls.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap call rate by result label. Watch for: error vs success ratio.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency. Watch for: p95 approaching the 8s lookup budget.
	UpstreamCallDuration *prometheus.HistogramVec

	// Weather lookups by outcome (success, failure, timeout).
	LookupsTotal *prometheus.CounterVec

	// Audit-log rows written, by table.
	StorageWritesTotal *prometheus.CounterVec

	// Response rows lost after a completed lookup. Watch for: any nonzero rate.
	AuditWriteFailuresTotal prometheus.Counter

	// Rate limit denials on the weather subtree.
	RateLimitDeniedTotal prometheus.Counter

	// Admin sign-in attempts by result (granted, denied).
	SignInAttemptsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"status"},
	)
	UpstreamCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamCallDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherLookupsTotal",
			Help: "Total number of weather lookups by outcome",
		},
		[]string{"outcome"},
	)
	StorageWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storageWritesTotal",
			Help: "Audit-log rows written, by table",
		},
		[]string{"table"},
	)
	AuditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auditWriteFailuresTotal",
			Help: "Response rows that could not be written after a completed lookup",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Requests denied by the rate limiter",
		},
	)
	SignInAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminSignInAttemptsTotal",
			Help: "Admin sign-in attempts by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		UpstreamCallsTotal,
		UpstreamCallDuration,
		LookupsTotal,
		StorageWritesTotal,
		AuditWriteFailuresTotal,
		RateLimitDeniedTotal,
		SignInAttemptsTotal,
	)
}

// MetricsHandler returns the HTTP handler serving the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
