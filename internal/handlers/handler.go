package handlers

import (
	"net/http"

	"geotrace/internal/config"
	_ "geotrace/internal/docs" // registers the swagger document
	"geotrace/internal/logger"
	"geotrace/internal/metrics"
	"geotrace/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services, configuration and logging.
type Handler struct {
	services *service.Service
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewHandler constructs a new HTTP handler with dependencies. log and m may be nil.
func NewHandler(services *service.Service, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{services: services, cfg: cfg, log: log, metrics: m}
}

// InitRoutes builds and returns the Gin router with all routes registered.
//
//	@title		GeoTrace API
//	@version	1.0
//	@BasePath	/
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(
		h.recovery(),
		h.requestID,
		h.securityHeaders,
		h.cors(),
		h.observe,
	)
	if rl := newRateLimiter(h.cfg.RateLimit, h.log); rl != nil {
		router.Use(rl.handle)
	}

	// Unknown routes and missing static files
	router.NoRoute(h.notFound)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// System endpoints
	router.GET("/health", h.health)
	if h.cfg.MetricsEnabled && h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	// Dashboard and its assets
	router.GET("/", h.dashboard)
	router.Static("/static", h.cfg.StaticDir)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	// Live feed of accepted records for the dashboard
	router.GET("/ws", h.wsConnect)

	registerPreflight(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group(h.cfg.APIPrefix)
	{
		api.POST("/data", h.receiveData)
	}
}

// registerPreflight adds an OPTIONS route for every registered path so that
// the cors middleware can tell known routes from unknown ones.
func registerPreflight(r *gin.Engine) {
	seen := make(map[string]bool)
	for _, route := range r.Routes() {
		if route.Method == http.MethodOptions {
			seen[route.Path] = true
		}
	}
	for _, route := range r.Routes() {
		if seen[route.Path] {
			continue
		}
		seen[route.Path] = true
		r.OPTIONS(route.Path, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
}
