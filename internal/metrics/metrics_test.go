package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMeshMetrics(reg)

	m.ObserveExtraction(3, 3, 1, 2*time.Millisecond)
	m.ObserveExtraction(6, 0, 0, time.Millisecond)
	m.ObserveCached()
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.SetWorldChunks(25)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunksMeshed.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunksMeshed.WithLabelValues("cached")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.quads))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.triangles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degenerate))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheMisses))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.chunksTracked))
}

func TestMeshMetrics_NilSafe(t *testing.T) {
	var m *MeshMetrics
	assert.NotPanics(t, func() {
		m.ObserveExtraction(1, 1, 1, time.Second)
		m.ObserveCached()
		m.ObserveError()
		m.CacheHit()
		m.CacheMiss()
		m.SetWorldChunks(1)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMeshMetrics(reg)
	m.ObserveExtraction(6, 0, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "voxelmesh_quads_total 6"))
	assert.Contains(t, body, "voxelmesh_extract_duration_seconds_bucket")
}
