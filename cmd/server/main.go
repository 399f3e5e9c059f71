package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/cache"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/infrastructure/migration"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/erp/invoicing/internal/interfaces/http/handler"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/erp/invoicing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Invoicing API
//	@version		1.0
//	@description	Invoices paid by card or cheque, with monotonic invoice and payment IDs.
//	@BasePath		/api/v1

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// OTEL log export bridges zap into the collector
	telemetry.ServiceVersion = version
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize OTEL logger provider", zap.Error(err))
	}
	log := telemetry.BridgeLogger(baseLog, cfg.Telemetry.ServiceName, logProvider)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting invoicing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("sequence_backend", cfg.Sequence.Backend),
	)

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

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link spans to profiles", zap.Error(err))
		}
	}

	// Storage
	repo, db, metricsSource := openStore(cfg, log, meterProvider)
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
	}

	invoiceSeq, paymentSeq, closeSeq := newSequences(cfg, db, log)
	defer closeSeq()

	invoiceService := appinvoicing.NewInvoiceService(repo, invoiceSeq, paymentSeq, log)
	if err := invoiceService.Bootstrap(ctx, cfg.App.SeedDefaultInvoice); err != nil {
		log.Fatal("Failed to bootstrap invoice store", zap.Error(err))
	}
	if metricsSource == nil {
		metricsSource = invoiceService
	}

	var businessMetrics *telemetry.BusinessMetrics
	if meterProvider.IsEnabled() {
		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meterProvider.Meter("invoicing.business"),
			Logger:          log,
			InvoiceProvider: metricsSource,
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		invoiceService.SetBusinessMetrics(businessMetrics)
		businessMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}

	engine := newEngine(cfg, log, meterProvider)
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.HTTP.RateLimitRPS,
		Burst:             cfg.HTTP.RateLimitBurst,
	})
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(rateLimiter))
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, invoiceService)
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.InvoiceRoutes(handler.NewInvoiceHandler(invoiceService))).
		Register(router.SystemRoutes(systemHandler))
	if cfg.HTTP.EnableHealthCheck {
		r.RegisterUnversioned(router.HealthRoutes(systemHandler))
	}
	r.Setup()

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	rateLimiter.Stop()
	if businessMetrics != nil {
		businessMetrics.Stop()
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shut down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shut down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shut down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openStore builds the invoice repository for the configured storage driver.
// The returned database is nil for the memory store. The metrics provider is
// non-nil only when aggregates can be read straight from the database.
func openStore(cfg *config.Config, log *zap.Logger, meterProvider *telemetry.MeterProvider) (
	invoicing.InvoiceRepository, *persistence.Database, telemetry.InvoiceMetricsProvider,
) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Info("Using in-memory invoice store")
		return persistence.NewMemoryInvoiceRepository(), nil, nil
	}

	// Versioned schema for real databases; in-memory sqlite has no shared
	// connection to migrate ahead of time
	var migrated bool
	switch {
	case cfg.Storage.Driver == config.StorageDriverPostgres:
		if err := migration.MigrateUp(migration.DialectPostgres, cfg.Database.DSN(), log); err != nil {
			log.Fatal("Failed to apply database migrations", zap.Error(err))
		}
		migrated = true
	case cfg.Storage.SQLitePath != ":memory:":
		if err := migration.MigrateUp(migration.DialectSQLite, cfg.Storage.SQLitePath, log); err != nil {
			log.Fatal("Failed to apply database migrations", zap.Error(err))
		}
		migrated = true
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Storage, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if !migrated {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver))

	tracingCfg := telemetry.DefaultDBTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	tracingCfg.LogFullSQL = cfg.App.Env == "development"
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		tracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	if db.Driver == config.StorageDriverSQLite {
		tracingCfg.DBSystem = "sqlite"
	}
	tracing := telemetry.NewDBTracingPlugin(tracingCfg, log)
	if err := tracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	// pool observation ends with the meter provider
	if _, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsCfg, log); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	return persistence.NewGormInvoiceRepository(db.DB), db, telemetry.NewGormInvoiceMetricsProvider(db.DB)
}

// newSequences builds the invoice and payment ID sequences for the configured backend
func newSequences(cfg *config.Config, db *persistence.Database, log *zap.Logger) (shared.Sequence, shared.Sequence, func()) {
	start := cfg.Sequence.Start
	switch cfg.Sequence.Backend {
	case config.SequenceBackendDatabase:
		return persistence.NewGormSequence(db.DB, shared.SequenceInvoice, start),
			persistence.NewGormSequence(db.DB, shared.SequencePayment, start),
			func() {}
	case config.SequenceBackendRedis:
		factory := cache.NewSequenceFactory(cfg.Redis, start,
			cache.WithLogger(log),
			cache.WithKeyPrefix(cfg.Sequence.KeyPrefix),
			cache.WithInMemoryFallback(cfg.Sequence.RedisFallback),
		)
		invoiceSeq, paymentSeq, err := factory.CreateSequences()
		if err != nil {
			log.Fatal("Failed to create ID sequences", zap.Error(err))
		}
		return invoiceSeq, paymentSeq, func() {
			if err := factory.Close(); err != nil {
				log.Warn("Failed to close Redis client", zap.Error(err))
			}
		}
	default:
		return cache.NewInMemorySequence(start), cache.NewInMemorySequence(start), func() {}
	}
}

// newEngine creates the gin engine with the global middleware chain
func newEngine(cfg *config.Config, log *zap.Logger, meterProvider *telemetry.MeterProvider) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = cfg.Telemetry.ProfilingEnabled

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.TracingAttributeInjector(),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Enabled:       meterProvider.IsEnabled(),
			Logger:        log,
		}),
		middleware.ProfilingWithConfig(profilingCfg),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	return engine
}
