package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит конфигурацию Redis кэша.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // пространство ключей, по умолчанию "voxelmesh:"

	MaxTTL         time.Duration
	MaxConnections int
	PoolTimeout    time.Duration
	QueueSize      int
}

// RedisCache реализует MeshCache поверх Redis; общий для нескольких узлов.
type RedisCache struct {
	mu     sync.RWMutex
	closed bool

	client *redis.Client
	config RedisConfig
	cold   *coldTier
	stats  counters
}

// NewRedisCache подключается к Redis и проверяет соединение.
// cold — опциональное постоянное хранилище (может быть nil).
func NewRedisCache(config RedisConfig, cold ColdStorage) (*RedisCache, error) {
	if config.Prefix == "" {
		config.Prefix = "voxelmesh:"
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = 24 * time.Hour
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis mesh cache initialized: %s", config.Addr)
	return &RedisCache{client: rdb, config: config, cold: newColdTier(cold, config.QueueSize)}, nil
}

func (r *RedisCache) key(k string) string { return r.config.Prefix + k }

// Get получает значение по ключу; при промахе пробует Cold Storage (Read-Through).
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}

	r.stats.requests.Add(1)
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == nil {
		r.stats.hits.Add(1)
		return val, nil
	}
	r.stats.misses.Add(1)
	if err != redis.Nil {
		logging.Error("Redis Get error for key %s: %v", key, err)
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	if blob, ok := r.cold.load(ctx, key); ok {
		r.stats.coldHits.Add(1)
		if err := r.client.Set(ctx, r.key(key), blob, r.config.MaxTTL).Err(); err != nil {
			logging.Warn("Redis refill failed for key %s: %v", key, err)
		}
		return blob, nil
	}
	return nil, ErrCacheMiss
}

// Set сохраняет значение в Redis и ставит его в очередь Write-Behind.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}

	if ttl <= 0 || ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		logging.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}

	r.cold.enqueue(ctx, key, value)
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		logging.Error("Redis Delete error for key %s: %v", key, err)
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Close дожидается Write-Behind и закрывает клиента
func (r *RedisCache) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cold.close()
	return r.client.Close()
}

func (r *RedisCache) Metrics() Metrics {
	s := r.stats.snapshot("redis")
	s.PendingWrites = r.cold.pendingWrites()
	return s
}
