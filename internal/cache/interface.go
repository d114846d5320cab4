package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// MeshCache кэширует упакованные сетки чанков.
// Ключ включает дайджест чанка, поэтому изменённый чанк просто не находит
// старую запись; Delete нужен для явной очистки.
//
// Использование:
//
//	c := NewMemoryCache(MemoryConfig{MaxCost: 64 << 20}, nil)
//	blob, err := c.Get(ctx, MeshKey("0:0:0", digest))
//	err = c.Set(ctx, key, blob, 10*time.Minute)
type MeshCache interface {
	// Get возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение; ttl = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Close() error

	Metrics() Metrics
}

// ColdStorage — постоянное хранилище за кэшем (read-through, write-behind).
type ColdStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte) error
}

// CacheInvalidator рассылает инвалидации между узлами.
type CacheInvalidator interface {
	PublishInvalidation(ctx context.Context, key string) error
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error
	Close() error
}

// InvalidationHandler обрабатывает уведомления об инвалидации кеша.
type InvalidationHandler func(key string) error

// Metrics содержит метрики кеша.
type Metrics struct {
	Backend       string    `json:"backend"`
	TotalRequests int64     `json:"total_requests"`
	CacheHits     int64     `json:"cache_hits"`
	CacheMisses   int64     `json:"cache_misses"`
	ColdHits      int64     `json:"cold_hits"`
	HitRatio      float64   `json:"hit_ratio"`
	PendingWrites int64     `json:"pending_writes"`
	LastUpdate    time.Time `json:"last_update"`
}

// Ошибки кеша
var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrInvalidKey = errors.New("invalid key")
	ErrClosed     = errors.New("cache closed")
)

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// MeshKey строит ключ сетки: mesh:<чанк>:<дайджест>
func MeshKey(chunkKey, digestHex string) string {
	return "mesh:" + chunkKey + ":" + digestHex
}

// counters — общие счётчики реализаций
type counters struct {
	requests atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
	coldHits atomic.Int64
}

func (c *counters) snapshot(backend string) Metrics {
	m := Metrics{
		Backend:       backend,
		TotalRequests: c.requests.Load(),
		CacheHits:     c.hits.Load(),
		CacheMisses:   c.misses.Load(),
		ColdHits:      c.coldHits.Load(),
		LastUpdate:    time.Now(),
	}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	return m
}
