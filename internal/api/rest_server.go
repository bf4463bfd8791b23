package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/bubble-world/internal/logging"
	"github.com/annel0/bubble-world/internal/middleware"
	"github.com/annel0/bubble-world/internal/observability"
	"github.com/annel0/bubble-world/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer - административный REST API карт
type RestServer struct {
	router   *gin.Engine
	server   *http.Server
	registry *world.Registry
	metrics  *ServerMetrics
	world    *observability.WorldMetrics
	logger   *logging.Logger
	port     string
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string                      // адрес, например ":8088"
	Registry    *world.Registry             // исполнители карт
	WorldMetric *observability.WorldMetrics // может быть nil
	Logger      *logging.Logger             // может быть nil
	Registerer  prometheus.Registerer       // nil - глобальный регистр
	Gatherer    prometheus.Gatherer         // nil - глобальный регистр
	ServiceName string
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "bubble_admin"
	}
	if config.Logger == nil {
		config.Logger = logging.Default()
	}
	if config.Registry == nil {
		config.Registry = world.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware(config.ServiceName, config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	rs := &RestServer{
		router:   router,
		registry: config.Registry,
		metrics:  NewServerMetrics(config.Registry),
		world:    config.WorldMetric,
		logger:   config.Logger,
		port:     config.Port,
	}
	rs.setupRoutes()
	rs.server = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/stats", rs.handleStats)
	api.GET("/maps", rs.handleListMaps)

	maps := api.Group("/maps/:id")
	{
		maps.GET("", rs.handleGetMap)
		maps.POST("/save", rs.handleSaveMap)
		maps.GET("/fields/:x/:y", rs.handleGetField)
		maps.PUT("/fields/:x/:y", rs.handleSetField)
		maps.GET("/chunks/:cx/:cy", rs.handleSurroundingChunks)
		maps.GET("/objects", rs.handleListObjects)
		maps.GET("/objects/:guid", rs.handleGetObject)
	}
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер и блокирует до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.port)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop выполняет graceful shutdown
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: message, Data: data})
}
