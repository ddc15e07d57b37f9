package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/citysmiles/dental-admin/internal/handler"
	"github.com/citysmiles/dental-admin/internal/handler/health"
	"github.com/citysmiles/dental-admin/internal/handler/prometheus"
	"github.com/citysmiles/dental-admin/internal/middleware"
	"github.com/citysmiles/dental-admin/pkg/logger"
)

type RouterConfig struct {
	RateLimit    rate.Limit
	RateBurst    int
	MaxBodyBytes int64
	CORSConfig   middleware.CORSConfig
	Logger       *logger.Logger
	// Release switches gin to release mode.
	Release bool
}

type Router struct {
	engine  *gin.Engine
	health  *health.Handler
	metrics *prometheus.Handler
	ws      gin.HandlerFunc
	routes  []handler.Route
	config  RouterConfig
}

// NewRouter builds the engine. ws may be nil when realtime push is off.
func NewRouter(
	health *health.Handler,
	metrics *prometheus.Handler,
	ws gin.HandlerFunc,
	routes []handler.Route,
	config RouterConfig,
) *Router {
	if config.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(config.Logger),
		middleware.Logger(config.Logger),
		middleware.ErrorHandler(config.Logger),
		metrics.Middleware(),
		middleware.CORS(config.CORSConfig),
	)

	return &Router{
		engine:  engine,
		health:  health,
		metrics: metrics,
		ws:      ws,
		routes:  routes,
		config:  config,
	}
}

// Setup mounts health, metrics and the API group. Rate and size limits only
// apply to the API group.
func (r *Router) Setup() {
	config := r.config

	r.health.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", r.metrics.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	if config.RateLimit > 0 {
		api.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}).RateLimit())
	}
	if config.MaxBodyBytes > 0 {
		api.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}

	for _, route := range r.routes {
		route.RegisterRoutes(api)
	}
	if r.ws != nil {
		api.GET("/ws", r.ws)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
