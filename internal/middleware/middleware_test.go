package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(t *testing.T, buf *bytes.Buffer) (*gin.Engine, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	pm := NewPrometheusMiddleware("test_api", reg)

	r := gin.New()
	r.Use(NewRequestLogger(logging.NewWriterLogger("api", buf, logging.DEBUG)).Handler())
	r.Use(pm.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) { c.String(http.StatusNotFound, "nope") })
	pm.RegisterMetricsEndpoint(r, reg)
	return r, pm, reg
}

func TestRequestLogger_SetsTraceID(t *testing.T) {
	var buf bytes.Buffer
	r, _, _ := newTestRouter(t, &buf)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	traceID := rec.Header().Get("X-Trace-Id")
	assert.NotEmpty(t, traceID)
	assert.Contains(t, buf.String(), "trace="+traceID)
	assert.Contains(t, buf.String(), "GET /ok 200")
}

func TestPrometheusMiddleware_CountsErrors(t *testing.T) {
	var buf bytes.Buffer
	r, pm, _ := newTestRouter(t, &buf)

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/fail", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.reqInflight))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_api_http_request_duration_seconds")
}

func TestPrometheusMiddleware_ResponseSize(t *testing.T) {
	var buf bytes.Buffer
	r, pm, _ := newTestRouter(t, &buf)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(pm.respSize))
}
