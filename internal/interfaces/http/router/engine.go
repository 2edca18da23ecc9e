package router

import (
	"net/http"

	"github.com/erp/bonusledger/internal/infrastructure/config"
	"github.com/erp/bonusledger/internal/infrastructure/logger"
	"github.com/erp/bonusledger/internal/interfaces/http/handler"
	"github.com/erp/bonusledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by NewEngine
type Handlers struct {
	Customers *handler.CustomerHandler
	Bonus     *handler.BonusHandler
	Invoices  *handler.InvoiceHandler
	Health    *handler.HealthHandler
}

// EngineConfig carries the cross-cutting settings of the HTTP stack
type EngineConfig struct {
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	Tracing     middleware.TracingConfig
	Metrics     middleware.HTTPMetricsConfig
	Idempotency middleware.IdempotencyConfig
	// RateLimiter is optional; nil disables per-client limiting.
	RateLimiter *middleware.RateLimiter
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

// NewEngine builds the gin engine with the middleware stack and every route.
//
// Order: recovery, request id, tracing, span enrichment, access log, metrics,
// security headers, CORS, rate limit, request timeout, body limit.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Tracing))
	engine.Use(middleware.SpanEnricher())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(cfg.Metrics))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", h.Health.Live)
	engine.GET("/health/ready", h.Health.Ready)
	if cfg.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	idem := cfg.Idempotency
	if idem.Logger == nil {
		idem.Logger = log
	}
	idempotent := middleware.Idempotency(idem)

	r := NewRouter(engine, WithAPIVersion("v1"))

	customerRoutes := NewDomainGroup("crm", "/customers")
	customerRoutes.POST("", h.Customers.Create)
	customerRoutes.GET("", h.Customers.List)
	customerRoutes.GET("/:id", h.Customers.GetByID)
	customerRoutes.POST("/:id/bonus", idempotent, h.Bonus.AddBonus)
	customerRoutes.GET("/:id/bonus-transactions", h.Bonus.ListTransactions)
	customerRoutes.GET("/:id/invoices", h.Invoices.ListByCustomer)

	invoiceRoutes := NewDomainGroup("invoicing", "/invoices")
	invoiceRoutes.POST("", idempotent, h.Invoices.Create)
	invoiceRoutes.GET("/:id", h.Invoices.GetByID)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.Health.Info)

	r.Register(customerRoutes).Register(invoiceRoutes).Register(systemRoutes)
	r.Setup()

	return engine
}
