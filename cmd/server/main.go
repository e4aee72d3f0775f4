package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	integrationapp "github.com/erp/syncbridge/internal/application/integration"
	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/config"
	"github.com/erp/syncbridge/internal/infrastructure/credential"
	"github.com/erp/syncbridge/internal/infrastructure/dispatch"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/infrastructure/persistence"
	"github.com/erp/syncbridge/internal/infrastructure/rpc"
	"github.com/erp/syncbridge/internal/infrastructure/scheduler"
	"github.com/erp/syncbridge/internal/infrastructure/telemetry"
	"github.com/erp/syncbridge/internal/interfaces/http/handler"
	"github.com/erp/syncbridge/internal/interfaces/http/middleware"
	"github.com/erp/syncbridge/internal/interfaces/http/router"
	"github.com/erp/syncbridge/internal/interfaces/syncrpc"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

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

	log.Info("Starting ERP sync bridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("http_port", cfg.App.Port),
		zap.String("grpc_address", cfg.GRPC.Address),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	metrics, err := telemetry.NewSyncMetrics(meterProvider.Meter("erp-syncbridge"), log)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Result store
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   db.Dialect(),
	}, log); err != nil {
		log.Warn("Failed to enable database tracing", zap.Error(err))
	}

	repo := persistence.NewSyncOutcomeRepository(db.DB)
	if err := repo.EnsureSchema(ctx); err != nil {
		// Appends retry the schema lazily, so a store that is down at boot is not fatal
		log.Warn("Result store schema not ready", zap.Error(err))
	}
	log.Info("Result store ready",
		zap.String("driver", cfg.Database.Driver),
		zap.String("dialect", db.Dialect()),
	)

	// Credentials and outbound dispatch
	tokenClient := credential.NewClient(credential.ClientConfig{
		TokenURL:  cfg.Credential.TokenURL,
		CorpID:    cfg.Credential.CorpID,
		AppType:   cfg.Credential.AppType,
		AppID:     cfg.Credential.AppID,
		AppSecret: cfg.Credential.AppSecret,
		Timeout:   cfg.Credential.Timeout,
	}, log)
	tokenCache, closeCache := newTokenCache(cfg, log)
	defer closeCache()
	tokens := credential.NewProvider(tokenClient, tokenCache, credential.ProviderConfig{
		Token:      cfg.Credential.Token,
		StaticTTL:  cfg.Credential.StaticTTL,
		DefaultTTL: cfg.Credential.DefaultTTL,
	}, log)

	dispatcher := dispatch.New(tokens, dispatch.Config{
		Timeout:           cfg.Dispatch.Timeout,
		RequireCredential: cfg.Dispatch.RequireCredential,
	}, log, dispatch.WithMetrics(metrics))

	// Application services
	syncService := integrationapp.NewOrderSyncService(repo, log, integrationapp.WithSyncMetrics(metrics))
	queryService := integrationapp.NewSyncResultQueryService(repo)
	triggerService := integrationapp.NewTriggerService(tokenClient, dispatcher, integrationapp.TriggerConfig{
		DefaultTarget: cfg.Dispatch.Target,
		Mask:          config.MaskSecret,
	}, log)

	// Diagnostic task queue
	taskQueue, err := scheduler.NewTaskQueue(scheduler.TaskQueueConfig{
		Workers:          cfg.Scheduler.Workers,
		QueueSize:        cfg.Scheduler.QueueSize,
		TaskTimeout:      cfg.Scheduler.TaskTimeout,
		MaxRetainedTasks: cfg.Scheduler.MaxRetainedTasks,
	}, scheduler.TaskExecutorFunc(triggerService.Execute), log, scheduler.WithMetrics(metrics))
	if err != nil {
		log.Fatal("Failed to create task queue", zap.Error(err))
	}
	// Workers outlive the signal context; Stop below drains them
	if err := taskQueue.Start(context.Background()); err != nil {
		log.Fatal("Failed to start task queue", zap.Error(err))
	}

	var intervalTrigger *scheduler.IntervalTrigger
	if cfg.Scheduler.IntervalEnabled {
		intervalTrigger, err = scheduler.NewIntervalTrigger(cfg.Scheduler.Interval, integration.TriggerRequest{
			Action: integration.TriggerActionCallOrder,
			DryRun: cfg.Scheduler.IntervalDryRun,
			Target: cfg.Dispatch.Target,
		}, taskQueue, log)
		if err != nil {
			log.Fatal("Failed to create interval trigger", zap.Error(err))
		}
		if err := intervalTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start interval trigger", zap.Error(err))
		}
	}

	// Inbound gRPC
	grpcServer := rpc.NewServer(rpc.ServerConfig{
		Workers:              cfg.GRPC.Workers,
		MaxConcurrentStreams: cfg.GRPC.MaxConcurrentStreams,
	}, log)
	syncrpc.Register(grpcServer, syncService)

	// HTTP admin and query API
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine, err := router.NewEngine(cfg, router.Handlers{
		Health:     handler.NewHealthHandler(db, 0),
		System:     handler.NewSystemHandler(cfg.App.Name, version),
		SyncResult: handler.NewSyncResultHandler(queryService),
		Trigger:    handler.NewTriggerHandler(taskQueue),
		Report:     handler.NewReportHandler(triggerService),
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 2)
	go func() {
		if err := grpcServer.ListenAndServe(cfg.GRPC.Address); err != nil {
			serveErr <- err
		}
	}()
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serveErr:
		log.Error("Server failed, shutting down", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if intervalTrigger != nil {
		if err := intervalTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Interval trigger stop", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	grpcServer.Shutdown(shutdownCtx)
	if err := taskQueue.Stop(shutdownCtx); err != nil {
		log.Warn("Task queue stop", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Logger provider shutdown", zap.Error(err))
	}
}

// newTokenCache returns the configured credential cache and its cleanup function
func newTokenCache(cfg *config.Config, log *zap.Logger) (credential.TokenCache, func()) {
	if cfg.Credential.CacheBackend != config.CacheBackendRedis {
		return credential.NewMemoryTokenCache(cfg.Credential.SafetyMargin), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cache := credential.NewRedisTokenCache(client, cfg.Credential.CacheKey, cfg.Credential.SafetyMargin, log)
	log.Info("Using shared Redis token cache", zap.String("addr", cfg.Redis.RedisAddr()))
	return cache, func() {
		if err := cache.Close(); err != nil {
			log.Warn("Error closing token cache", zap.Error(err))
		}
	}
}
