// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Hub metrics
	Subscribers     prometheus.Gauge
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec

	// Gate metrics
	GateLookups *prometheus.CounterVec

	// Upstream latency
	RPCCallLatency      *prometheus.HistogramVec
	LaunchpadLatency    *prometheus.HistogramVec
	LaunchpadCallErrors *prometheus.CounterVec

	// Ledger metrics
	ActionsRecorded *prometheus.CounterVec
	ActionsRejected *prometheus.CounterVec

	// Launch metrics
	StateTransitions *prometheus.CounterVec

	// Auth metrics
	SessionsIssued prometheus.Counter
	SessionsSwept  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "drop_live"
	}

	return &Metrics{
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Current number of live subscribers across all sessions",
		}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Total number of events published by type",
		}, []string{"type"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber queue was full",
		}, []string{"type"}),

		GateLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "lookups_total",
			Help:      "Balance lookups by outcome (hit, miss, fallback)",
		}, []string{"outcome"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		LaunchpadLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "launchpad",
			Name:      "call_latency_seconds",
			Help:      "Launchpad API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		LaunchpadCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launchpad",
			Name:      "call_errors_total",
			Help:      "Total number of failed launchpad API calls",
		}, []string{"operation"}),

		ActionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "actions_recorded_total",
			Help:      "Total number of viewer actions recorded by kind",
		}, []string{"kind"}),
		ActionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "actions_rejected_total",
			Help:      "Total number of viewer actions rejected by error code",
		}, []string{"kind", "code"}),

		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launch",
			Name:      "state_transitions_total",
			Help:      "Total number of drop status transitions by target status",
		}, []string{"status"}),

		SessionsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_issued_total",
			Help:      "Total number of sessions issued",
		}),
		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions removed",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// SetSubscribers updates the live subscriber gauge.
func SetSubscribers(n int64) {
	DefaultMetrics.Subscribers.Set(float64(n))
}

// RecordEventPublished increments the published events counter.
func RecordEventPublished(eventType string) {
	DefaultMetrics.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventDropped increments the dropped events counter.
func RecordEventDropped(eventType string) {
	DefaultMetrics.EventsDropped.WithLabelValues(eventType).Inc()
}

// RecordGateHit records a balance served from cache.
func RecordGateHit() {
	DefaultMetrics.GateLookups.WithLabelValues("hit").Inc()
}

// RecordGateMiss records a balance fetched from the chain.
func RecordGateMiss() {
	DefaultMetrics.GateLookups.WithLabelValues("miss").Inc()
}

// RecordGateFallback records a lookup that failed and fell back to zero.
func RecordGateFallback() {
	DefaultMetrics.GateLookups.WithLabelValues("fallback").Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordLaunchpadCall records a launchpad API call.
func RecordLaunchpadCall(operation string, seconds float64, err error) {
	DefaultMetrics.LaunchpadLatency.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.LaunchpadCallErrors.WithLabelValues(operation).Inc()
	}
}

// RecordActionRecorded increments the recorded actions counter.
func RecordActionRecorded(kind string) {
	DefaultMetrics.ActionsRecorded.WithLabelValues(kind).Inc()
}

// RecordActionRejected increments the rejected actions counter.
func RecordActionRejected(kind, code string) {
	DefaultMetrics.ActionsRejected.WithLabelValues(kind, code).Inc()
}

// RecordStateTransition increments the transition counter for the target status.
func RecordStateTransition(status string) {
	DefaultMetrics.StateTransitions.WithLabelValues(status).Inc()
}

// RecordSessionIssued increments the issued sessions counter.
func RecordSessionIssued() {
	DefaultMetrics.SessionsIssued.Inc()
}

// RecordSessionsSwept adds n to the swept sessions counter.
func RecordSessionsSwept(n int64) {
	DefaultMetrics.SessionsSwept.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
