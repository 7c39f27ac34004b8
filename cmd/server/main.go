package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/toptag/internal/affinity"
	"github.com/benvon/toptag/internal/app"
	"github.com/benvon/toptag/internal/cache"
	"github.com/benvon/toptag/internal/config"
	"github.com/benvon/toptag/internal/database"
	"github.com/benvon/toptag/internal/handlers"
	"github.com/benvon/toptag/internal/logger"
	"github.com/benvon/toptag/internal/middleware"
	"github.com/benvon/toptag/internal/queue"
	"github.com/benvon/toptag/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "toptag-server"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.Bool("symmetric_lookup", cfg.Affinity.SymmetricLookup),
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEnabled && cfg.OTELEndpoint != "", serviceName, cfg.OTELEndpoint, zapLogger)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
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
		zapLogger.Warn("redis_not_configured_using_in_memory_rate_limit")
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

	repos := app.NewRepositories(db)
	recommendService := app.NewRecommendService(repos, cfg, zapLogger)

	healthChecker := handlers.NewHealthChecker(db.HealthCheck)
	healthChecker.AddCheck("rabbitmq", jobQueue.HealthCheck)
	if redisClient != nil {
		healthChecker.AddCheck("redis", cache.HealthCheck(redisClient))
		healthChecker.SetRebuildStatus(affinity.NewRedisLocker(redisClient, affinity.DefaultLockKey, cfg.Affinity.LockTTL))
	}

	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit, redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, first registered is outermost.
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Metrics)
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	// Public operational routes, not rate limited
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(rateLimitMW)

	handlers.NewRecommendationHandler(recommendService, zapLogger).
		RegisterRoutes(apiRouter.PathPrefix("/recommendations").Subrouter())
	handlers.NewRebuildHandler(jobQueue, zapLogger).
		RegisterRoutes(apiRouter.PathPrefix("/affinity").Subrouter())
	handlers.NewTagHandler(repos.Tags, zapLogger).
		RegisterRoutes(apiRouter.PathPrefix("/tags").Subrouter())
	handlers.NewCategoryHandler(repos.Categories, zapLogger).
		RegisterRoutes(apiRouter.PathPrefix("/categories").Subrouter())

	// CORS wraps the router so preflight requests are answered before route matching
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        middleware.CORSFromEnv(cfg.FrontendURL)(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

var version = "dev"

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":%q,"timestamp":%q}`, version, time.Now().UTC().Format(time.RFC3339))
}
