package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the broker
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Login flow metrics
	LoginAttemptsTotal   *prometheus.CounterVec
	CallbacksTotal       *prometheus.CounterVec
	LogoutsTotal         *prometheus.CounterVec

	// Qlik Proxy Service metrics
	QPSRequestsTotal   *prometheus.CounterVec
	QPSRequestDuration *prometheus.HistogramVec

	// Session store metrics
	SessionOperationsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qauth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qauth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qauth_login_attempts_total",
				Help: "Login initiations by strategy and outcome",
			},
			[]string{"strategy", "result"},
		),
		CallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qauth_callbacks_total",
				Help: "Provider callbacks by strategy and outcome",
			},
			[]string{"strategy", "result"},
		),
		LogoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qauth_logouts_total",
				Help: "Logout requests by outcome",
			},
			[]string{"result"},
		),
		QPSRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qauth_qps_requests_total",
				Help: "Qlik Proxy Service calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		QPSRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qauth_qps_request_duration_seconds",
				Help:    "Qlik Proxy Service call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SessionOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qauth_session_operations_total",
				Help: "Session store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.CallbacksTotal,
		m.LogoutsTotal,
		m.QPSRequestsTotal,
		m.QPSRequestDuration,
		m.SessionOperationsTotal,
	)

	return m
}

// Handler returns the prometheus scrape handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveQPSRequest records a completed Qlik Proxy Service call
func (m *Metrics) ObserveQPSRequest(operation, status string, duration time.Duration) {
	m.QPSRequestsTotal.WithLabelValues(operation, status).Inc()
	m.QPSRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
