package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервиса

type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
}

type WorldConfig struct {
	Seed      int64 `yaml:"seed"`
	Radius    int   `yaml:"radius"`     // чанков от центра по x и z
	ChunkSize int   `yaml:"chunk_size"` // узлов по стороне
	MaxHeight int   `yaml:"max_height"`
	Workers   int   `yaml:"workers"`
	// InnerSides включает экспериментальные внутренние грани
	InnerSides bool `yaml:"inner_sides"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Индекс статистики сеток в SQL: sqlite или mysql
	IndexDriver string `yaml:"index_driver"`
	IndexDSN    string `yaml:"index_dsn"`
}

type CacheConfig struct {
	Backend   string `yaml:"backend"` // memory | redis
	RedisAddr string `yaml:"redis_addr"`
	TTLSecs   int    `yaml:"ttl_seconds"`
	MaxCost   int64  `yaml:"max_cost_bytes"`
	// NATS для рассылки инвалидаций между узлами; пусто = выключено
	InvalidationURL string `yaml:"invalidation_url"`
}

type EventBusConfig struct {
	Backend   string `yaml:"backend"` // memory | nats
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// AuthConfig — операторы, которым разрешено изменять чанки
type AuthConfig struct {
	Enabled         bool             `yaml:"enabled"`
	JWTSecret       string           `yaml:"jwt_secret"` // base64, не короче 32 байт
	TokenTTLMinutes int              `yaml:"token_ttl_minutes"`
	Operators       []OperatorConfig `yaml:"operators"`
}

type OperatorConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	Admin        bool   `yaml:"admin"`
}

// GetJWTSecret возвращает секрет с приоритетом: config -> env VOXELMESH_JWT_SECRET
func (a *AuthConfig) GetJWTSecret() string {
	if a.JWTSecret != "" {
		return a.JWTSecret
	}
	return os.Getenv("VOXELMESH_JWT_SECRET")
}

// TokenTTL возвращает срок жизни токена
func (a *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
	// Пороги отдельных компонентов: mesher: debug, api: warn
	Components map[string]string `yaml:"components"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXELMESH_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXELMESH_METRICS_PORT", 2112)
}

// TTL возвращает время жизни записи кэша
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Default возвращает конфигурацию по умолчанию: генерация без хранилища,
// кэш в памяти, шина в памяти
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.World.Radius <= 0 {
		c.World.Radius = 2
	}
	if c.World.ChunkSize <= 0 {
		c.World.ChunkSize = 16
	}
	if c.World.MaxHeight <= 0 {
		c.World.MaxHeight = 24
	}
	if c.World.Workers <= 0 {
		c.World.Workers = 4
	}
	if c.World.Seed == 0 {
		c.World.Seed = 1337
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/chunks"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTLSecs <= 0 {
		c.Cache.TTLSecs = 600
	}
	if c.Cache.MaxCost <= 0 {
		c.Cache.MaxCost = 64 << 20
	}
	if c.EventBus.Backend == "" {
		c.EventBus.Backend = "memory"
	}
	if c.EventBus.Stream == "" {
		c.EventBus.Stream = "VOXELMESH"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "voxelmesh"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		c.Auth.TokenTTLMinutes = 60
	}
}

// Validate проверяет значения, которые нельзя исправить дефолтами
func (c *Config) Validate() error {
	// Локальные координаты чанка [0, size] должны влезать в диапазон узлов
	if c.World.ChunkSize > 120 {
		return fmt.Errorf("chunk_size %d слишком велик (максимум 120)", c.World.ChunkSize)
	}
	if c.World.MaxHeight > 120 {
		return fmt.Errorf("max_height %d слишком велик (максимум 120)", c.World.MaxHeight)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("неизвестный backend кэша %q", c.Cache.Backend)
	}
	switch c.EventBus.Backend {
	case "memory", "nats":
	default:
		return fmt.Errorf("неизвестный backend шины %q", c.EventBus.Backend)
	}
	switch c.Storage.IndexDriver {
	case "", "sqlite", "mysql":
	default:
		return fmt.Errorf("неизвестный драйвер индекса %q", c.Storage.IndexDriver)
	}
	if c.Auth.Enabled && len(c.Auth.Operators) == 0 {
		return fmt.Errorf("auth включён, но операторы не заданы")
	}
	return nil
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV VOXELMESH_CONFIG или возвращает дефолты.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXELMESH_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
