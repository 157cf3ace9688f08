// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/benvon/video-tag-stats/internal/validation"
)

// Config holds application configuration
type Config struct {
	SourceKind         string        `validate:"required,source_kind"`
	SourcePath         string        `validate:"required_if=SourceKind file"`
	DatabaseURL        string        `validate:"required_if=SourceKind postgres"`
	RedisURL           string        `validate:"required"`
	RabbitMQURL        string
	RabbitMQPrefetch   int           `validate:"min=1"`
	ServerPort         string        `validate:"required,numeric"`
	FrontendURL        string        `validate:"omitempty,url"`
	EnableHSTS         bool
	RateLimit          string        `validate:"required"`
	AnnotationCacheTTL time.Duration `validate:"min=0"`
	RunResultTTL       time.Duration `validate:"gt=0"`
	FailurePolicy      string        `validate:"required,failure_policy"`
	WorkerDebugMode    bool
	ServerDebugMode    bool
	OTELEnabled        bool
	OTELEndpoint       string `validate:"required_if=OTELEnabled true"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) (*Config, error) {
	e := env(getenv)
	cfg := &Config{
		SourceKind:         e.getEnv("SOURCE_KIND", validation.SourceKindFile),
		SourcePath:         e.getEnv("SOURCE_PATH", ""),
		DatabaseURL:        e.getEnv("DATABASE_URL", ""),
		RedisURL:           e.getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:        e.getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:   e.getEnvInt("RABBITMQ_PREFETCH", 1),
		ServerPort:         e.getEnv("SERVER_PORT", "8080"),
		FrontendURL:        e.getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:         e.getEnvBool("ENABLE_HSTS", false),
		RateLimit:          e.getEnv("RATE_LIMIT", "60-M"),
		AnnotationCacheTTL: e.getEnvDuration("ANNOTATION_CACHE_TTL", 10*time.Minute),
		RunResultTTL:       e.getEnvDuration("RUN_RESULT_TTL", 24*time.Hour),
		FailurePolicy:      e.getEnv("FAILURE_POLICY", validation.FailurePolicyAbort),
		WorkerDebugMode:    e.getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:    e.getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:        e.getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:       e.getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := validation.Validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// RequireQueue reports an error when the job queue is not configured.
// The API server and the worker need it; the one-shot CLI does not.
func (c *Config) RequireQueue() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for job queueing")
	}
	return nil
}

type env func(string) string

func (e env) getEnv(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) getEnvBool(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e env) getEnvInt(key string, defaultValue int) int {
	if value := e(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func (e env) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := e(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
