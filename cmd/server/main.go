package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arvi/quotation/internal/bootstrap"
	"github.com/arvi/quotation/internal/infrastructure/archive"
	"github.com/arvi/quotation/internal/infrastructure/config"
	"github.com/arvi/quotation/internal/infrastructure/logger"
	"github.com/arvi/quotation/internal/infrastructure/telemetry"
	"github.com/arvi/quotation/internal/interfaces/http/handler"
	"github.com/arvi/quotation/internal/interfaces/http/middleware"
	"github.com/arvi/quotation/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"
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
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS, and the runtime default applies then.
	_, _ = maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf))

	log.Info("Starting quotation renderer",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("strategy", cfg.Render.Strategy),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceVersion:    cfg.App.Version,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceVersion:    cfg.App.Version,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	opts := bootstrap.Options{Logger: log}
	renderMetrics, err := telemetry.NewRenderMetrics(meterProvider.Meter("quotation.render"))
	if err != nil {
		log.Warn("Render metrics unavailable", zap.Error(err))
	} else {
		opts.Observer = renderMetrics
		opts.Recorder = renderMetrics
	}

	// Rendering pipeline
	pipeline, err := bootstrap.NewPipeline(ctx, cfg, opts)
	if err != nil {
		log.Fatal("Failed to build rendering pipeline", zap.Error(err))
	}
	service := pipeline.Service

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	if fsArchive, ok := pipeline.Archiver.(*archive.FileSystemArchiver); ok && cfg.Archive.Retention > 0 {
		go fsArchive.RunCleanup(cleanupCtx, cfg.Archive.Retention, time.Hour)
	}

	// Rate limiting
	var rateLimitStore middleware.RateLimitStore
	var redisClient *redis.Client
	if cfg.HTTP.RateLimitEnabled {
		switch cfg.HTTP.RateLimitBackend {
		case "redis":
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr(),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				log.Warn("Redis unreachable, rate limiting will fail open", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
			}
			cancel()
			rateLimitStore = middleware.NewRedisStore(middleware.NewRedisCounter(redisClient),
				cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		default:
			limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
			defer limiter.Stop()
			rateLimitStore = limiter
		}
	}

	// Set Gin mode
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Middleware order matters: recovery first, then request ID so every later log carries it
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.ServiceName != "" {
		tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	}
	engine.Use(middleware.TracingWithConfig(tracingCfg))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if rateLimitStore != nil {
		engine.Use(middleware.RateLimit(rateLimitStore, log))
	}
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Routes
	r := router.NewRouter(engine)
	r.Register(handler.NewQuotationHandler(service, handler.QuotationHandlerConfig{
		FilenamePrefix:   cfg.Document.FilenamePrefix,
		DefaultQuoteCode: cfg.Document.DefaultQuoteCode,
		ExposeStack:      !cfg.App.IsProduction(),
	}))
	r.Register(handler.NewSystemHandler(cfg.App.Version, service.Strategy()))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := service.Wait(shutdownCtx); err != nil {
		log.Warn("Pending archive uploads abandoned", zap.Error(err))
	}
	stopCleanup()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}
	// Export what the last requests and archive uploads recorded before the exporters stop.
	if err := tracerProvider.ForceFlush(shutdownCtx); err != nil {
		log.Warn("Error flushing spans", zap.Error(err))
	}
	if err := meterProvider.ForceFlush(shutdownCtx); err != nil {
		log.Warn("Error flushing metrics", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
