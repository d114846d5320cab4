// Package metrics собирает Prometheus-метрики извлечения сеток.
package metrics

import (
	"net/http"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace — общий префикс метрик сервиса
const Namespace = "voxelmesh"

// MeshMetrics — счётчики конвейера чанк → IR → сетка
type MeshMetrics struct {
	chunksMeshed  *prometheus.CounterVec
	quads         prometheus.Counter
	triangles     prometheus.Counter
	degenerate    prometheus.Counter
	extractTime   prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	chunksTracked prometheus.Gauge
}

// NewMeshMetrics создаёт метрики и регистрирует их в reg.
// Для тестов передаётся отдельный prometheus.NewRegistry().
func NewMeshMetrics(reg prometheus.Registerer) *MeshMetrics {
	m := &MeshMetrics{
		chunksMeshed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunks_meshed_total",
			Help:      "Число обработанных чанков по результату (ok, cached, error).",
		}, []string{"result"}),
		quads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quads_total",
			Help:      "Четырёхугольников в построенных IR.",
		}),
		triangles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "triangles_total",
			Help:      "Треугольников в построенных IR.",
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "degenerate_faces_total",
			Help:      "Вырожденных граней, пропущенных при сборке сетки.",
		}),
		extractTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "extract_duration_seconds",
			Help:      "Длительность извлечения сетки одного чанка.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mesh_cache_hits_total",
			Help:      "Попаданий в кэш сеток.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mesh_cache_misses_total",
			Help:      "Промахов кэша сеток.",
		}),
		chunksTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "world_chunks",
			Help:      "Чанков в памяти мира.",
		}),
	}

	reg.MustRegister(m.chunksMeshed, m.quads, m.triangles, m.degenerate,
		m.extractTime, m.cacheHits, m.cacheMisses, m.chunksTracked)
	return m
}

// ObserveExtraction учитывает свежепостроенную сетку
func (m *MeshMetrics) ObserveExtraction(quads, triangles, degenerate int, d time.Duration) {
	if m == nil {
		return
	}
	m.chunksMeshed.WithLabelValues("ok").Inc()
	m.quads.Add(float64(quads))
	m.triangles.Add(float64(triangles))
	m.degenerate.Add(float64(degenerate))
	m.extractTime.Observe(d.Seconds())
}

// ObserveCached учитывает сетку, взятую из кэша
func (m *MeshMetrics) ObserveCached() {
	if m == nil {
		return
	}
	m.chunksMeshed.WithLabelValues("cached").Inc()
}

// ObserveError учитывает неудачную обработку чанка
func (m *MeshMetrics) ObserveError() {
	if m == nil {
		return
	}
	m.chunksMeshed.WithLabelValues("error").Inc()
}

// CacheHit увеличивает счётчик попаданий
func (m *MeshMetrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// CacheMiss увеличивает счётчик промахов
func (m *MeshMetrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// SetWorldChunks обновляет число чанков мира
func (m *MeshMetrics) SetWorldChunks(n int) {
	if m != nil {
		m.chunksTracked.Set(float64(n))
	}
}

// Handler возвращает HTTP-обработчик /metrics для gatherer
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// StartHTTP запускает отдельный HTTP-эндпоинт /metrics (например, ":2112").
// Метод неблокирующий; возвращает сервер для остановки.
func StartHTTP(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return srv
}
