package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
	RateLimit        string // ulule limiter format, e.g. "5-S"
	MetricsPort      string

	Affinity     AffinityConfig
	Recommend    RecommendConfig
	Worker       WorkerConfig
	DLQRetention time.Duration
}

// AffinityConfig controls matrix rebuilds and affinity lookups
type AffinityConfig struct {
	BatchSize       int
	ScoreScale      int32
	SymmetricLookup bool
	RebuildCron     string // empty disables scheduled rebuilds
	LockTTL         time.Duration
}

// RecommendConfig bounds the category-ranked strategy
type RecommendConfig struct {
	MaxCategories int
	MaxTagsInPost int
}

// WorkerConfig sizes the background worker pool
type WorkerConfig struct {
	PoolSize      int
	QueueCapacity int
}

// Load loads the server and worker configuration from environment variables.
// It requires DATABASE_URL and RABBITMQ_URL.
func Load() (*Config, error) {
	cfg, err := loadFrom(os.Getenv)
	if err != nil {
		return nil, err
	}
	if cfg.RabbitMQURL == "" {
		return nil, errors.New("RABBITMQ_URL is required for rebuild job queueing")
	}
	return cfg, nil
}

// LoadBase loads configuration for tools that only talk to the database.
// It requires DATABASE_URL only.
func LoadBase() (*Config, error) {
	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}
	cfg := &Config{
		DatabaseURL:      env.get("DATABASE_URL", ""),
		ServerPort:       env.get("SERVER_PORT", "8080"),
		FrontendURL:      env.get("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       env.getBool("ENABLE_HSTS", false),
		RedisURL:         env.get("REDIS_URL", ""),
		RabbitMQURL:      env.get("RABBITMQ_URL", ""),
		RabbitMQPrefetch: env.getInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  env.getBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  env.getBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      env.getBool("OTEL_ENABLED", false),
		OTELEndpoint:     env.get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RateLimit:        env.get("RATE_LIMIT", "5-S"),
		MetricsPort:      env.get("METRICS_PORT", "9090"),
		Affinity: AffinityConfig{
			BatchSize:       env.getInt("AFFINITY_BATCH_SIZE", 500),
			ScoreScale:      int32(env.getInt("AFFINITY_SCORE_SCALE", 5)),
			SymmetricLookup: env.getBool("AFFINITY_SYMMETRIC_LOOKUP", false),
			RebuildCron:     env.get("REBUILD_CRON", ""),
			LockTTL:         env.getDuration("REBUILD_LOCK_TTL", 30*time.Minute),
		},
		Recommend: RecommendConfig{
			MaxCategories: env.getInt("MAX_CATEGORIES", 10),
			MaxTagsInPost: env.getInt("MAX_TAGS_IN_POST", 30),
		},
		Worker: WorkerConfig{
			PoolSize:      env.getInt("WORKER_POOL_SIZE", 3),
			QueueCapacity: env.getInt("WORKER_QUEUE_CAPACITY", 600),
		},
		DLQRetention: env.getDuration("DLQ_RETENTION", 7*24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Affinity.BatchSize <= 0:
		return fmt.Errorf("AFFINITY_BATCH_SIZE must be positive, got %d", c.Affinity.BatchSize)
	case c.Affinity.ScoreScale <= 0 || c.Affinity.ScoreScale > 5:
		// tag_affinity.score is NUMERIC(6,5)
		return fmt.Errorf("AFFINITY_SCORE_SCALE must be between 1 and 5, got %d", c.Affinity.ScoreScale)
	case c.Worker.PoolSize <= 0:
		return fmt.Errorf("WORKER_POOL_SIZE must be positive, got %d", c.Worker.PoolSize)
	case c.Worker.QueueCapacity < 0:
		return fmt.Errorf("WORKER_QUEUE_CAPACITY must not be negative, got %d", c.Worker.QueueCapacity)
	case c.Recommend.MaxCategories <= 0:
		return fmt.Errorf("MAX_CATEGORIES must be positive, got %d", c.Recommend.MaxCategories)
	case c.Recommend.MaxTagsInPost <= 0:
		return fmt.Errorf("MAX_TAGS_IN_POST must be positive, got %d", c.Recommend.MaxTagsInPost)
	case c.RabbitMQPrefetch <= 0:
		return fmt.Errorf("RABBITMQ_PREFETCH must be positive, got %d", c.RabbitMQPrefetch)
	}
	return nil
}

type envReader struct {
	getenv func(string) string
}

func (e envReader) get(key, defaultValue string) string {
	if value := e.getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) getBool(key string, defaultValue bool) bool {
	if value := e.getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e envReader) getInt(key string, defaultValue int) int {
	if value := e.getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := e.getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
