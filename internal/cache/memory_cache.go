package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/dgraph-io/ristretto"
)

// MemoryConfig — параметры кэша в памяти процесса
type MemoryConfig struct {
	MaxCost     int64 // суммарный размер значений в байтах
	NumCounters int64 // по умолчанию 10 × ожидаемое число записей
	QueueSize   int   // очередь write-behind
}

// MemoryCache реализует MeshCache поверх ristretto.
// Запись в ristretto асинхронна; Set дожидается её через Wait, чтобы
// последующий Get видел значение.
type MemoryCache struct {
	mu     sync.RWMutex
	closed bool
	rc     *ristretto.Cache
	cold   *coldTier
	stats  counters
}

// NewMemoryCache создаёт кэш; cold может быть nil
func NewMemoryCache(cfg MemoryConfig, cold ColdStorage) (*MemoryCache, error) {
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 64 << 20
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 100_000
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}

	logging.Info("Memory mesh cache initialized: max_cost=%dMB", cfg.MaxCost>>20)
	return &MemoryCache{rc: rc, cold: newColdTier(cold, cfg.QueueSize)}, nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	m.stats.requests.Add(1)
	if v, ok := m.rc.Get(key); ok {
		if blob, ok := v.([]byte); ok {
			m.stats.hits.Add(1)
			return blob, nil
		}
	}
	m.stats.misses.Add(1)

	// Read-Through: поднимаем значение из постоянного хранилища
	if blob, ok := m.cold.load(ctx, key); ok {
		m.stats.coldHits.Add(1)
		m.rc.Set(key, blob, int64(len(blob)))
		return blob, nil
	}
	return nil, ErrCacheMiss
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	cost := int64(len(value))
	if cost == 0 {
		cost = 1
	}
	if ttl > 0 {
		m.rc.SetWithTTL(key, value, cost, ttl)
	} else {
		m.rc.Set(key, value, cost)
	}
	m.rc.Wait()

	m.cold.enqueue(ctx, key, value)
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	m.rc.Del(key)
	return nil
}

// Close дожидается write-behind и освобождает ristretto
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.cold.close()
	m.rc.Close()
	return nil
}

func (m *MemoryCache) Metrics() Metrics {
	s := m.stats.snapshot("memory")
	s.PendingWrites = m.cold.pendingWrites()
	return s
}
