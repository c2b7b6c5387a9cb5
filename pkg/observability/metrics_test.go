package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveHTTPRequest("GET", "/login/{strategy}", 302, 5*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/login/{strategy}", 302, 7*time.Millisecond)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/login/{strategy}", "302"))
	assert.Equal(t, float64(2), count)
}

func TestObserveQPSRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveQPSRequest("ticket", "ok", 12*time.Millisecond)
	m.ObserveQPSRequest("ticket", "error", 3*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.QPSRequestsTotal.WithLabelValues("ticket", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QPSRequestsTotal.WithLabelValues("ticket", "error")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.LoginAttemptsTotal.WithLabelValues("google", "initiated").Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qauth_login_attempts_total")
}
