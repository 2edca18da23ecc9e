package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	crmapp "github.com/erp/bonusledger/internal/application/crm"
	invoicingapp "github.com/erp/bonusledger/internal/application/invoicing"
	ledgerapp "github.com/erp/bonusledger/internal/application/ledger"
	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/infrastructure/cache"
	"github.com/erp/bonusledger/internal/infrastructure/config"
	"github.com/erp/bonusledger/internal/infrastructure/event"
	"github.com/erp/bonusledger/internal/infrastructure/logger"
	"github.com/erp/bonusledger/internal/infrastructure/persistence"
	"github.com/erp/bonusledger/internal/infrastructure/scheduler"
	"github.com/erp/bonusledger/internal/infrastructure/telemetry"
	"github.com/erp/bonusledger/internal/interfaces/http/handler"
	"github.com/erp/bonusledger/internal/interfaces/http/middleware"
	"github.com/erp/bonusledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting bonus ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	// Telemetry providers are installed globally; disabled ones are no-ops
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		_ = tracerProvider.Shutdown(context.Background())
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		_ = meterProvider.Shutdown(context.Background())
	}()

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.Driver == config.DriverSQLite || cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
		log.Info("Schema migrated from models")
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   dbSystem,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("bonus-ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Event bus: handlers run after the publishing transaction commits
	eventBus := event.NewInMemoryEventBus(log)
	balanceChangedHandler := ledgerapp.NewBalanceChangedHandler(log).WithMetrics(ledgerMetrics)
	eventBus.Subscribe(balanceChangedHandler)
	invoiceCreatedHandler := invoicingapp.NewInvoiceCreatedHandler(log).WithMetrics(ledgerMetrics)
	eventBus.Subscribe(invoiceCreatedHandler)
	log.Info("Event handlers registered",
		zap.Strings("balance_changed_events", balanceChangedHandler.EventTypes()),
		zap.Strings("invoice_created_events", invoiceCreatedHandler.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	bonusTxRepo := persistence.NewGormBonusTransactionRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB, eventBus, log)

	// Initialize application services
	customerService := crmapp.NewCustomerService(customerRepo, log)
	customerService.SetEventPublisher(eventBus)
	ledgerService := ledgerapp.NewService(
		scope,
		crmapp.NewCustomerLookup(customerRepo),
		bonusTxRepo,
		ledgerapp.WithLogger(log),
		ledgerapp.WithRetryConfig(ledgerapp.RetryConfig{
			MaxRetries:      cfg.Ledger.MaxRetries,
			InitialInterval: cfg.Ledger.RetryInitialInterval,
			MaxInterval:     cfg.Ledger.RetryMaxInterval,
		}),
	)
	invoiceService := invoicingapp.NewInvoiceService(scope, ledgerService, invoiceRepo, log)

	// Idempotency store and Prometheus registry
	var idempotencyStore shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		store, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.App.Env != "production"),
		).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		idempotencyStore = store
		defer func() {
			_ = store.Close()
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.Audit.Enabled {
		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.MaxConcurrentJobs = cfg.Audit.Workers
		auditor := scheduler.NewLedgerAuditor(customerRepo, bonusTxRepo, scheduler.NewAuditMetrics(registry), log)
		auditScheduler, err := scheduler.NewScheduler(schedCfg, auditor, log)
		if err != nil {
			log.Fatal("Failed to create audit scheduler", zap.Error(err))
		}
		if err := auditScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start audit scheduler", zap.Error(err))
		}
		defer func() {
			_ = auditScheduler.Stop(context.Background())
		}()

		trigger := scheduler.NewTrigger(scheduler.TriggerConfig{Interval: cfg.Audit.Interval}, auditScheduler, customerRepo, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start audit trigger", zap.Error(err))
		}
		defer func() {
			_ = trigger.Stop(context.Background())
		}()
	}

	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if pinger, ok := idempotencyStore.(interface{ Ping(context.Context) error }); ok {
		checks["idempotency"] = pinger.Ping
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		defer rateLimiter.Stop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	tracingConfig := middleware.DefaultTracingConfig()
	tracingConfig.ServiceName = cfg.Telemetry.ServiceName
	tracingConfig.Enabled = cfg.Telemetry.Enabled

	engine := router.NewEngine(router.EngineConfig{
		Logger:  log,
		HTTP:    cfg.HTTP,
		Tracing: tracingConfig,
		Metrics: middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Enabled:       meterProvider.IsEnabled(),
			Logger:        log,
		},
		Idempotency: middleware.IdempotencyConfig{
			Store:   idempotencyStore,
			TTL:     cfg.Idempotency.TTL,
			Metrics: middleware.NewIdempotencyMetrics(registry),
			Logger:  log,
		},
		RateLimiter:    rateLimiter,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, router.Handlers{
		Customers: handler.NewCustomerHandler(customerService),
		Bonus:     handler.NewBonusHandler(ledgerService, customerService),
		Invoices:  handler.NewInvoiceHandler(invoiceService, customerService),
		Health:    handler.NewHealthHandler(cfg.App.Name, telemetry.ServiceVersion, checks),
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.HTTP.ShutdownTimeout > 0 {
		return cfg.HTTP.ShutdownTimeout
	}
	return 30 * time.Second
}
