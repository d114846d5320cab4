package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/voxelmesh/internal/auth"
	"github.com/annel0/voxelmesh/internal/cache"
	"github.com/annel0/voxelmesh/internal/eventbus"
	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/annel0/voxelmesh/internal/middleware"
	"github.com/annel0/voxelmesh/internal/storage"
	"github.com/annel0/voxelmesh/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Version — версия сервиса в /api/server
const Version = "v0.1.0"

// RestServer представляет REST API сервер инспекции и правки чанков
type RestServer struct {
	router  *gin.Engine
	httpSrv *http.Server
	port    string

	mesher  *world.Mesher
	world   *world.World
	sink    world.ChunkSink
	index   storage.MeshIndex
	auth    *auth.Authenticator
	bus     eventbus.EventBus
	cache   cache.MeshCache
	metrics *ServerMetrics
	log     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port   string              // порт для запуска сервера, например ":8088"
	Sink   world.ChunkSink     // сохранение правок; nil = только память
	Index  storage.MeshIndex   // nil = /api/index недоступен
	Auth   *auth.Authenticator // nil = изменяющие эндпоинты открыты
	Bus    eventbus.EventBus   // источник событий для /ws/events
	Cache  cache.MeshCache     // только для статистики
	Mesher *world.Mesher
	Logger *logging.Logger

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("voxelmesh_api"))

	loggerMw := middleware.NewRequestLogger(config.Logger)
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware("voxelmesh_api", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	server := &RestServer{
		router:  router,
		port:    config.Port,
		mesher:  config.Mesher,
		world:   config.Mesher.World(),
		sink:    config.Sink,
		index:   config.Index,
		auth:    config.Auth,
		bus:     config.Bus,
		cache:   config.Cache,
		metrics: NewServerMetrics(),
		log:     config.Logger,
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")

	// Эндпоинт для аутентификации (без JWT защиты)
	api.POST("/auth/login", rs.handleLogin)

	api.GET("/server", rs.handleServerInfo)
	api.GET("/stats", rs.handleStats)
	api.GET("/index", rs.handleIndex)

	chunks := api.Group("/chunks")
	{
		chunks.GET("", rs.handleListChunks)
		chunks.GET("/:key", rs.handleGetChunk)
		chunks.GET("/:key/ir", rs.handleGetIR)
		chunks.GET("/:key/mesh", rs.handleGetMesh)
		chunks.GET("/:key/wireframe", rs.handleGetWireframe)
	}

	// Изменяющие эндпоинты (требуют JWT, если аутентификация включена)
	protected := api.Group("/chunks")
	protected.Use(rs.jwtMiddleware())
	{
		protected.PUT("/:key", rs.handlePutChunk)
		protected.POST("/:key/rebuild", rs.handleRebuildChunk)
		protected.DELETE("/:key", rs.adminMiddleware(), rs.handleDeleteChunk)
	}

	rs.router.GET("/ws/events", rs.handleEventsWS)

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Router возвращает gin.Engine (для тестов через httptest)
func (rs *RestServer) Router() *gin.Engine { return rs.router }

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() error {
	rs.httpSrv = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		rs.log.Info("🌐 REST API запущен на %s", rs.port)
		if err := rs.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.log.Error("Ошибка REST API сервера: %v", err)
		}
	}()
	return nil
}

// Stop останавливает HTTP сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpSrv == nil {
		return nil
	}
	if err := rs.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("остановка REST API: %w", err)
	}
	return nil
}

// handleHealth проверка здоровья сервиса
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	// Получаем реальные метрики
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	info := map[string]interface{}{
		"version":     Version,
		"name":        "voxelmesh",
		"status":      "running",
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.1f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.1f", cpuPercent),
		"chunks":      rs.world.Len(),
		"auth":        rs.auth != nil,
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    info,
	})
}

// handleStats возвращает статистику сервера
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"chunks":         rs.world.Len(),
		"memory_details": rs.metrics.GetDetailedMemoryStats(),
	}
	if rs.bus != nil {
		stats["eventbus"] = rs.bus.Metrics()
	}
	if rs.cache != nil {
		stats["cache"] = rs.cache.Metrics()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleIndex возвращает индекс собранных сеток
func (rs *RestServer) handleIndex(c *gin.Context) {
	if rs.index == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Индекс сеток не настроен"})
		return
	}
	records, err := rs.index.List(c.Request.Context())
	if err != nil {
		rs.log.Error("Ошибка чтения индекса: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Ошибка чтения индекса"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Индекс сеток", Data: records})
}
