package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/osmap/backend/internal/application/mapexport"
	"github.com/osmap/backend/internal/domain/dispatch"
	"github.com/osmap/backend/internal/infrastructure/artifact"
	"github.com/osmap/backend/internal/infrastructure/config"
	"github.com/osmap/backend/internal/infrastructure/crm"
	"github.com/osmap/backend/internal/infrastructure/kml"
	"github.com/osmap/backend/internal/infrastructure/logger"
	"github.com/osmap/backend/internal/infrastructure/telemetry"
	"github.com/osmap/backend/internal/interfaces/http/handler"
	"github.com/osmap/backend/internal/interfaces/http/middleware"
	"github.com/osmap/backend/internal/interfaces/http/router"
)

//	@title			OS Map Export API
//	@version		1.0
//	@description	Exports CRM service orders as KML placemarks for field dispatch
//	@BasePath		/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel := setupTelemetry(ctx, cfg, baseLog)
	log := telemetry.Bridge(baseLog, tel.logs, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting OS map export service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.Version),
	)

	profiler := setupProfiler(cfg, log, tel)

	exportMetrics, err := telemetry.NewExportMetrics(telemetry.ExportMetricsConfig{
		Meter:  tel.metrics.Meter("osmap.export"),
		Logger: log,
	})
	if err != nil {
		log.Warn("Export metrics unavailable", zap.Error(err))
	}

	// CRM client
	crmClient, err := crm.NewClient(&crm.Config{
		BaseURL:         cfg.CRM.BaseURL,
		Token:           cfg.CRM.Token,
		Login:           cfg.CRM.Login,
		Password:        cfg.CRM.Password,
		Timeout:         cfg.CRM.Timeout,
		MaxConnsPerHost: cfg.CRM.MaxConnsPerHost,
	}, crm.WithLogger(log), crm.WithObserver(exportMetrics))
	if err != nil {
		log.Fatal("Failed to configure CRM client", zap.Error(err))
	}
	if err := crmClient.EnsureToken(ctx); err != nil {
		log.Fatal("Failed to obtain CRM token", zap.Error(err))
	}

	// Artifact storage
	store := setupArtifactStore(ctx, cfg, log)

	// Map export service
	service := mapexport.NewService(crmClient, crmClient, kml.NewWriter(store, log), mapexport.Config{
		BatchWorkers: cfg.Export.BatchWorkers,
		Fallback:     dispatch.NewCoordinate(cfg.Export.FallbackLongitude, cfg.Export.FallbackLatitude),
		Search: dispatch.SearchFilter{
			Field: cfg.Export.SearchField,
			Value: cfg.Export.SearchValue,
		},
	})
	service.SetExportMetrics(exportMetrics)

	engine := setupEngine(cfg, log, tel)

	r := router.NewRouter(engine)

	mapHandler := handler.NewMapExportHandler(service, store)
	batchLimit := middleware.RateLimit(
		middleware.NewRateLimiter(cfg.Export.BatchRateLimit, cfg.Export.BatchRateWindow),
	)
	exportRoutes := router.NewDomainGroup("export", "")
	exportRoutes.GET("/order/:order_id", mapHandler.GetOrder)
	exportRoutes.GET("/client/:client_id", mapHandler.GetClient)
	exportRoutes.GET("/marker_create/:order_id", mapHandler.CreateMarker)
	exportRoutes.GET("/get_open_order/", mapHandler.ListOpenOrders)
	exportRoutes.GET("/list_marker_create/", batchLimit, mapHandler.ListMarkerCreate)
	exportRoutes.Group("artifacts", "/artifacts").
		GET("/*path", mapHandler.DownloadArtifact).
		HEAD("/*path", mapHandler.DownloadArtifact)

	systemHandler := handler.NewSystemHandler(cfg.App.Name)
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(exportRoutes).
		Register(systemRoutes)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	stopCleanup := startArtifactCleanup(store, cfg.Artifact, log)

	// Start server in goroutine
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

	stopCleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Profiler shutdown failed", zap.Error(err))
	}
	tel.shutdown(shutdownCtx, baseLog)

	log.Info("Server exited gracefully")
}

type telemetryProviders struct {
	tracer  *telemetry.TracerProvider
	metrics *telemetry.MeterProvider
	logs    *telemetry.LoggerProvider
}

// setupTelemetry starts the OTLP providers. A provider that fails to start
// is replaced by its disabled form so the service still runs.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryProviders {
	tc := cfg.Telemetry

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}

	metrics, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics disabled", zap.Error(err))
		metrics, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Log export disabled", zap.Error(err))
		logs = nil
	}

	return &telemetryProviders{tracer: tracer, metrics: metrics, logs: logs}
}

// shutdown flushes the providers; log export goes last so shutdown logs
// still reach the collector
func (t *telemetryProviders) shutdown(ctx context.Context, log *zap.Logger) {
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := t.metrics.Shutdown(ctx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if t.logs != nil {
		if err := t.logs.Shutdown(ctx); err != nil {
			log.Error("Logger provider shutdown failed", zap.Error(err))
		}
	}
}

// setupProfiler starts Pyroscope profiling. A profiler that cannot start is
// logged and replaced by a disabled one.
func setupProfiler(cfg *config.Config, log *zap.Logger, tel *telemetryProviders) *telemetry.Profiler {
	pc := cfg.Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           pc.Enabled,
		ServerAddress:     pc.ServerAddress,
		ApplicationName:   pc.ApplicationName,
		BasicAuthUser:     pc.BasicAuthUser,
		BasicAuthPassword: pc.BasicAuthPassword,
		ProfileTypes:      pc.ProfileTypes,
	}, log)
	if err != nil {
		log.Warn("Profiling disabled", zap.Error(err))
		profiler, _ = telemetry.NewProfiler(telemetry.ProfilerConfig{}, log)
	}
	if profiler.IsEnabled() && pc.SpanProfiles && !tel.tracer.EnableSpanProfiles() {
		log.Warn("Span profiles need tracing enabled")
	}
	return profiler
}

// setupArtifactStore opens local document storage and, when enabled, the
// S3 mirror. A mirror that cannot be reached is logged and left out.
func setupArtifactStore(ctx context.Context, cfg *config.Config, log *zap.Logger) *artifact.FileSystemStore {
	storeCfg := &artifact.FileSystemStoreConfig{
		BasePath:     cfg.Artifact.BasePath,
		BaseURL:      cfg.Artifact.BaseURL,
		MirrorPrefix: cfg.Storage.Prefix,
		Logger:       log,
	}

	if cfg.Storage.Enabled {
		mirror, err := artifact.NewS3Mirror(&cfg.Storage, artifact.WithLogger(log))
		if err != nil {
			log.Error("Object storage mirror disabled", zap.Error(err))
		} else if err := mirror.EnsureBucket(ctx); err != nil {
			log.Error("Object storage bucket unavailable, mirror disabled",
				zap.String("bucket", mirror.Bucket()),
				zap.Error(err))
		} else {
			storeCfg.Mirror = mirror
			log.Info("Object storage mirror enabled", zap.String("bucket", mirror.Bucket()))
		}
	}

	store, err := artifact.NewFileSystemStore(storeCfg)
	if err != nil {
		log.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}
	return store
}

// startArtifactCleanup prunes old documents on a ticker. It returns a stop
// function; retention 0 keeps documents forever.
func startArtifactCleanup(store artifact.Store, cfg config.ArtifactConfig, log *zap.Logger) func() {
	age := cfg.RetentionAge()
	if age <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			if _, err := store.CleanupOlderThan(ctx, age); err != nil {
				log.Warn("Artifact cleanup failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	log.Info("Artifact cleanup scheduled",
		zap.Duration("retention", age),
		zap.Duration("interval", cfg.CleanupInterval))

	return func() {
		cancel()
		<-done
	}
}

// setupEngine builds the gin engine with the middleware chain:
//  1. RequestID - Generate/propagate request ID
//  2. Tracing - Server span per request, enriched with ids
//  3. Recovery - Catch panics
//  4. Logger - Log requests
//  5. Profiling - Pyroscope labels per route
//  6. Metrics - Request counters and latency
//  7. Security - Add security headers
//  8. CORS - Handle cross-origin requests
func setupEngine(cfg *config.Config, log *zap.Logger, tel *telemetryProviders) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies", zap.Error(err))
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = tel.tracer.IsEnabled()

	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(tracingCfg))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = cfg.Profiling.Enabled
	engine.Use(middleware.ProfilingWithConfig(profilingCfg))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.metrics,
		Enabled:       true,
	}))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	return engine
}
