package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/toptag/internal/app"
	"github.com/benvon/toptag/internal/cache"
	"github.com/benvon/toptag/internal/config"
	"github.com/benvon/toptag/internal/database"
	"github.com/benvon/toptag/internal/logger"
	"github.com/benvon/toptag/internal/queue"
	"github.com/benvon/toptag/internal/telemetry"
	"github.com/benvon/toptag/internal/workers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	serviceName = "toptag-worker"

	dlqGCInterval = time.Hour
	// A running rebuild is given this long to finish on shutdown
	drainTimeout = 5 * time.Minute
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("pool_size", cfg.Worker.PoolSize),
		zap.Int("queue_capacity", cfg.Worker.QueueCapacity),
		zap.Int("batch_size", cfg.Affinity.BatchSize),
		zap.String("rebuild_cron", cfg.Affinity.RebuildCron),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEnabled && cfg.OTELEndpoint != "", serviceName, cfg.OTELEndpoint, zapLogger)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.EnsureSchema(ctx); err != nil {
		zapLogger.Fatal("failed_to_ensure_schema", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	} else {
		zapLogger.Warn("redis_not_configured_rebuild_lock_is_process_local")
	}

	jobQueue, err := queue.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, queue.DefaultRetryPolicy, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	builder := app.NewBuilder(app.NewRepositories(db), redisClient, cfg, zapLogger)

	pool := workers.NewPool(cfg.Worker.PoolSize, cfg.Worker.QueueCapacity, zapLogger)
	pool.Start()

	trigger := workers.NewRebuildTrigger(builder, pool, zapLogger)
	dispatcher := workers.NewDispatcher(trigger, zapLogger)

	var scheduler *workers.CronScheduler
	if cfg.Affinity.RebuildCron != "" {
		scheduler, err = workers.NewCronScheduler(cfg.Affinity.RebuildCron, trigger, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rebuild_scheduler", zap.Error(err))
		}
		scheduler.Start()
	}

	dlqGC := queue.NewGarbageCollector(jobQueue, dlqGCInterval, cfg.DLQRetention, zapLogger)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", dlqGCInterval),
		zap.Duration("retention", cfg.DLQRetention),
	)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("metrics_server_failed", zap.Error(err))
		}
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- dispatcher.Run(ctx, jobQueue, cfg.RabbitMQPrefetch)
	}()
	zapLogger.Info("worker_started", zap.String("metrics_port", cfg.MetricsPort))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zapLogger.Info("worker_shutting_down", zap.String("signal", sig.String()))
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("job_consumer_stopped", zap.Error(err))
		}
	}

	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer drainCancel()
	if err := pool.Stop(drainCtx); err != nil {
		zapLogger.Warn("worker_pool_drain_incomplete", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(drainCtx); err != nil {
		zapLogger.Warn("metrics_server_shutdown_failed", zap.Error(err))
	}

	zapLogger.Info("worker_exited")
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
