package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	printingapp "github.com/mfirdausali/wif-fin-sub004/internal/application/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/cache"
	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/config"
	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/logger"
	infra "github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/telemetry"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/handler"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/middleware"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.ConfigForEnvironment(cfg.App.Env, logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting PDF service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()
	tel, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.logs.Bridge(log)

	renderMetrics, err := telemetry.NewRenderMetrics(tel.meters.Meter("pdf-service/render"))
	if err != nil {
		log.Fatal("Failed to register render metrics", zap.Error(err))
	}

	// One engine for the whole process, launched on the first render
	launcher := infra.NewChromedpLauncher(&infra.ChromedpConfig{
		ExecPath:          cfg.Renderer.ChromePath,
		RemoteURL:         cfg.Renderer.RemoteURL,
		Headless:          cfg.Renderer.Headless,
		DisableGPU:        true,
		NoSandbox:         cfg.Renderer.NoSandbox,
		ExtraFlags:        cfg.Renderer.ExtraFlags,
		NetworkIdleWindow: cfg.Renderer.NetworkIdleWindow,
		SettleDelay:       cfg.Renderer.SettleDelay,
		Logger:            log.Named("chromedp"),
	})
	supervisor := infra.NewEngineSupervisor(launcher, log.Named("supervisor"),
		infra.WithLaunchTimeout(cfg.Renderer.LaunchTimeout),
		infra.WithSupervisorHooks(infra.SupervisorHooks{
			OnLaunch:       renderMetrics.EngineLaunched,
			OnDisconnected: renderMetrics.EngineDisconnected,
		}),
	)

	registry, err := infra.NewTemplateRegistry(infra.NewTemplateEngine())
	if err != nil {
		log.Fatal("Failed to parse document templates", zap.Error(err))
	}

	renderService := printingapp.NewRenderService(
		supervisor,
		registry,
		infra.NewFooterComposer(),
		printingapp.ServiceConfig{
			RenderTimeout:         cfg.Renderer.RenderTimeout,
			MaxConcurrentSessions: cfg.Renderer.MaxConcurrentSessions,
			Session: infra.SessionConfig{
				Viewport: infra.Viewport{
					Width:  cfg.Renderer.ViewportWidth,
					Height: cfg.Renderer.ViewportHeight,
				},
				ProtocolTimeout: cfg.Renderer.ProtocolTimeout,
			},
		},
		renderMetrics,
		log.Named("render"),
	)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Server span per request
	// 4. Logger - Log requests
	// 5. Metrics - Request counters and latency
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	tracingConfig := middleware.DefaultTracingConfig()
	tracingConfig.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.ServiceName != "" {
		tracingConfig.ServiceName = cfg.Telemetry.ServiceName
	}
	engine.Use(middleware.TracingWithConfig(tracingConfig))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(tel.meters.Meter("pdf-service/http")))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting applies to render routes only
	var pdfMiddleware []gin.HandlerFunc
	var rateLimitStore cache.RateLimitStore
	if cfg.HTTP.RateLimitEnabled {
		factory := cache.NewRateLimitStoreFactory(cfg.Redis, cache.WithLogger(log))
		rateLimitStore, err = factory.CreateStore(cfg.HTTP.RateLimitBackend)
		if err != nil {
			log.Fatal("Failed to create rate limit store", zap.Error(err))
		}
		pdfMiddleware = append(pdfMiddleware, middleware.RateLimit(middleware.RateLimitConfig{
			Limit:  cfg.HTTP.RateLimitRequests,
			Window: cfg.HTTP.RateLimitWindow,
			Store:  rateLimitStore,
			Logger: log,
		}))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.String("backend", cfg.HTTP.RateLimitBackend),
		)
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, renderService)

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// /api/v1/system/...
	v1 := router.NewRouter(engine).
		Register(handler.SystemRoutes(systemHandler))
	v1.Setup()

	// /api/pdf/... is unversioned so existing clients keep working
	api := router.NewRouter(engine, router.WithAPIVersion("")).
		Register(handler.PDFRoutes(handler.NewPDFHandler(renderService), pdfMiddleware...))
	api.Setup()

	for _, route := range append(v1.Routes(), api.Routes()...) {
		log.Debug("Route mounted",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.String("group", route.Group),
		)
	}

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
	sig := <-quit
	log.Info("Shutting down server...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Refuse new renders, wait for in-flight ones and close the engine
	// before the listener goes away
	if err := renderService.Shutdown(shutdownCtx); err != nil {
		log.Error("Render service did not drain cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if rateLimitStore != nil {
		if err := rateLimitStore.Close(); err != nil {
			log.Warn("Error closing rate limit store", zap.Error(err))
		}
	}
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}

// telemetryStack holds the exporters started for this process
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meters   *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, error) {
	t := cfg.Telemetry
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.Enabled && t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.ExportInterval,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.Enabled && t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
		Level:             cfg.Log.Level,
	}, log)
	if err != nil {
		return nil, err
	}

	p := cfg.Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           p.Enabled,
		ServerAddress:     p.ServerAddress,
		ApplicationName:   t.ServiceName,
		BasicAuthUser:     p.BasicAuthUser,
		BasicAuthPassword: p.BasicAuthPassword,
		ProfileTypes:      p.ProfileTypes,
	}, log)
	if err != nil {
		return nil, err
	}
	if p.Enabled && p.SpanProfiles {
		if err := tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	return &telemetryStack{tracer: tracer, meters: meters, logs: logs, profiler: profiler}, nil
}

// shutdown flushes every exporter; failures are logged, not returned
func (t *telemetryStack) shutdown(ctx context.Context, log *zap.Logger) {
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if err := t.meters.Shutdown(ctx); err != nil {
		log.Warn("Meter shutdown failed", zap.Error(err))
	}
	if err := t.logs.Shutdown(ctx); err != nil {
		log.Warn("Log exporter shutdown failed", zap.Error(err))
	}
	if err := t.profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
}
