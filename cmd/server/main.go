package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxelmesh/internal/api"
	"github.com/annel0/voxelmesh/internal/auth"
	"github.com/annel0/voxelmesh/internal/cache"
	"github.com/annel0/voxelmesh/internal/config"
	"github.com/annel0/voxelmesh/internal/eventbus"
	"github.com/annel0/voxelmesh/internal/ir"
	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/annel0/voxelmesh/internal/metrics"
	"github.com/annel0/voxelmesh/internal/observability"
	"github.com/annel0/voxelmesh/internal/storage"
	"github.com/annel0/voxelmesh/internal/world"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// closer — ресурс, закрываемый при остановке (в обратном порядке)
type closer struct {
	name string
	fn   func() error
}

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или VOXELMESH_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	levels := logging.ParseLevels(cfg.Logging.Level, cfg.Logging.Components)
	logging.Default().SetLevels(levels.Default, logging.DEBUG)
	if err := logging.Components().Configure(levels, logging.PipelineComponents...); err != nil {
		logging.Warn("⚠️ Часть логов компонентов только в консоли: %v", err)
	}
	defer logging.Components().Close()

	logging.Info("🧊 Запуск voxelmesh %s...", api.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].fn(); err != nil {
				logging.Error("❌ Ошибка закрытия %s: %v", closers[i].name, err)
			}
		}
	}()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry := observability.InitNoop()
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry недоступен, продолжаем без трассировки: %v", err)
			shutdownTelemetry = observability.InitNoop()
		}
	}
	closers = append(closers, closer{"telemetry", func() error { return shutdownTelemetry(context.Background()) }})

	reg := prometheus.NewRegistry()
	meshMetrics := metrics.NewMeshMetrics(reg)

	// === ХРАНИЛИЩЕ ===
	var chunkStore *storage.ChunkStorage
	if cfg.Storage.Enabled {
		chunkStore, err = storage.NewChunkStorage(cfg.Storage.Path)
		if err != nil {
			logging.Error("❌ Ошибка открытия хранилища: %v", err)
			os.Exit(1)
		}
		closers = append(closers, closer{"storage", chunkStore.Close})
	}

	var index storage.MeshIndex = storage.NewMemoryMeshIndex()
	if cfg.Storage.IndexDriver != "" {
		sqlIndex, err := storage.OpenMeshIndex(cfg.Storage.IndexDriver, cfg.Storage.IndexDSN)
		if err != nil {
			logging.Warn("⚠️ SQL индекс недоступен, используем память: %v", err)
		} else {
			index = sqlIndex
		}
	}
	closers = append(closers, closer{"index", index.Close})

	// === КЭШ ===
	var cold cache.ColdStorage
	if chunkStore != nil {
		cold = chunkStore
	}
	meshCache, err := buildCache(cfg.Cache, cold)
	if err != nil {
		logging.Error("❌ Ошибка создания кэша: %v", err)
		os.Exit(1)
	}
	if meshCache != nil {
		closers = append(closers, closer{"cache", meshCache.Close})
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := buildBus(cfg.EventBus)
	if err != nil {
		logging.Error("❌ Ошибка создания шины событий: %v", err)
		os.Exit(1)
	}
	closers = append(closers, closer{"eventbus", bus.Close})

	busExporter := eventbus.NewMetricsExporter(bus, reg)
	busExporter.Start()
	closers = append(closers, closer{"eventbus metrics", func() error { busExporter.Stop(); return nil }})

	if logSub, err := eventbus.StartLoggingListener(bus, logging.GetEventBusLogger()); err == nil {
		closers = append(closers, closer{"eventbus logger", func() error { logSub.Unsubscribe(); return nil }})
	}

	// === МИР ===
	w := world.NewWorld()
	if chunkStore != nil {
		if _, err := w.LoadAll(chunkStore); err != nil {
			logging.Error("❌ Ошибка загрузки чанков: %v", err)
			os.Exit(1)
		}
	}
	gen, err := world.NewGenerator(cfg.World.Seed, cfg.World.ChunkSize, cfg.World.MaxHeight)
	if err != nil {
		logging.Error("❌ Ошибка создания генератора: %v", err)
		os.Exit(1)
	}
	if _, err := w.Generate(ctx, gen, cfg.World.Radius); err != nil {
		logging.Error("❌ Ошибка генерации мира: %v", err)
		os.Exit(1)
	}
	if chunkStore != nil {
		if err := w.SaveAll(chunkStore); err != nil {
			logging.Warn("⚠️ Не удалось сохранить сгенерированные чанки: %v", err)
		}
	}

	// === КОНВЕЙЕР ===
	mesherCfg := world.MesherConfig{
		Cache:    meshCache,
		CacheTTL: cfg.Cache.TTL(),
		Bus:      bus,
		Metrics:  meshMetrics,
		Index:    index,
		Options:  ir.Options{InnerSides: cfg.World.InnerSides},
		Workers:  cfg.World.Workers,
	}
	if chunkStore != nil {
		mesherCfg.Source = chunkStore
	}

	var invalidator *cache.NATSInvalidator
	if cfg.Cache.InvalidationURL != "" {
		invalidator, err = cache.NewNATSInvalidator(&cache.InvalidatorConfig{NATSURL: cfg.Cache.InvalidationURL}, uuid.NewString())
		if err != nil {
			logging.Warn("⚠️ Инвалидация между узлами выключена: %v", err)
		} else {
			mesherCfg.Invalidator = invalidator
			closers = append(closers, closer{"invalidator", invalidator.Close})
		}
	}

	mesher := world.NewMesher(w, mesherCfg)
	if invalidator != nil {
		if err := invalidator.SubscribeInvalidations(ctx, mesher.HandleInvalidation); err != nil {
			logging.Warn("⚠️ Подписка на инвалидации не удалась: %v", err)
		}
	}

	start := time.Now()
	results, err := mesher.ExtractWorld(ctx)
	if err != nil {
		logging.Error("❌ Ошибка начального извлечения сеток: %v", err)
	} else {
		quads, triangles := 0, 0
		for _, r := range results {
			quads += r.Stats.Quads
			triangles += r.Stats.Triangles
		}
		logging.Info("✅ Сетки %d чанков готовы за %v: quads=%d triangles=%d",
			len(results), time.Since(start).Round(time.Millisecond), quads, triangles)
	}

	// === АУТЕНТИФИКАЦИЯ ===
	var authenticator *auth.Authenticator
	if cfg.Auth.Enabled {
		authenticator, err = buildAuth(cfg.Auth)
		if err != nil {
			logging.Error("❌ Ошибка настройки аутентификации: %v", err)
			os.Exit(1)
		}
	} else {
		logging.Warn("⚠️ Аутентификация выключена: изменяющие эндпоинты открыты")
	}

	// === HTTP ===
	apiCfg := api.Config{
		Port:       fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Mesher:     mesher,
		Index:      index,
		Auth:       authenticator,
		Bus:        bus,
		Cache:      meshCache,
		Registerer: reg,
		Gatherer:   reg,
	}
	if chunkStore != nil {
		apiCfg.Sink = chunkStore
	}
	restServer := api.NewRestServer(apiCfg)
	if err := restServer.Start(); err != nil {
		logging.Error("❌ Ошибка запуска REST API: %v", err)
		os.Exit(1)
	}

	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	metricsSrv := metrics.StartHTTP(metricsAddr, reg)

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", cfg.Server.GetRESTPort())
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsAddr)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())

	<-ctx.Done()
	logging.Info("📡 Получен сигнал, завершение работы...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	if chunkStore != nil {
		if err := w.SaveAll(chunkStore); err != nil {
			logging.Error("❌ Ошибка сохранения мира: %v", err)
		}
	}

	logging.Info("👋 Сервер успешно остановлен")
}

func buildCache(cfg config.CacheConfig, cold cache.ColdStorage) (cache.MeshCache, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{Addr: cfg.RedisAddr}, cold)
	default:
		return cache.NewMemoryCache(cache.MemoryConfig{MaxCost: cfg.MaxCost}, cold)
	}
}

func buildBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.Backend == "nats" {
		return eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	}
	return eventbus.NewMemoryBus(1024), nil
}

func buildAuth(cfg config.AuthConfig) (*auth.Authenticator, error) {
	seeds := make([]auth.OperatorSeed, 0, len(cfg.Operators))
	for _, op := range cfg.Operators {
		seeds = append(seeds, auth.OperatorSeed{Username: op.Username, PasswordHash: op.PasswordHash, Admin: op.Admin})
	}
	repo, err := auth.NewMemoryUserRepoFromSeeds(seeds)
	if err != nil {
		return nil, err
	}
	secret, err := auth.DecodeSecret(cfg.GetJWTSecret())
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(repo, secret, cfg.TokenTTL())
}
