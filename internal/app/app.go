// Package app connects the configured backends shared by the server, the
// worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/video-tag-stats/internal/config"
	"github.com/benvon/video-tag-stats/internal/database"
	logpkg "github.com/benvon/video-tag-stats/internal/logger"
	"github.com/benvon/video-tag-stats/internal/queue"
	"github.com/benvon/video-tag-stats/internal/source"
	"github.com/benvon/video-tag-stats/internal/validation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	queueConnectAttempts = 10
	queueInitialDelay    = 2 * time.Second
	queueMaxDelay        = 30 * time.Second
)

// Source is an annotation source together with what must be closed after use
type Source struct {
	source.AnnotationSource
	// File is set when the source reads a project dump, for reloading
	File    *source.FileSource
	closers []func() error
}

// Close releases the database pool and Redis client behind the source
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenSource builds the annotation source named by cfg.SourceKind. Postgres
// sources are wrapped with the Redis annotation cache when
// AnnotationCacheTTL is positive.
func OpenSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.SourceKind {
	case validation.SourceKindFile:
		fs := source.NewFileSource(cfg.SourcePath)
		if err := fs.Reload(); err != nil {
			return nil, err
		}
		logger.Info("annotation_source_opened",
			zap.String("kind", cfg.SourceKind),
			zap.String("path", logpkg.SanitizePath(cfg.SourcePath)),
		)
		return &Source{AnnotationSource: fs, File: fs}, nil

	case validation.SourceKindPostgres:
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		src := &Source{
			AnnotationSource: database.NewAnnotationRepository(db),
			closers:          []func() error{db.Close},
		}
		logger.Info("annotation_source_opened", zap.String("kind", cfg.SourceKind))

		if cfg.AnnotationCacheTTL <= 0 {
			return src, nil
		}
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("annotation_cache_disabled", zap.String("error", logpkg.SanitizeError(err)))
			return src, nil
		}
		src.closers = append(src.closers, client.Close)
		src.AnnotationSource = source.NewCachedSource(src.AnnotationSource, client, cfg.AnnotationCacheTTL, logger)
		logger.Info("annotation_cache_enabled", zap.Duration("ttl", cfg.AnnotationCacheTTL))
		return src, nil

	default:
		return nil, fmt.Errorf("unsupported source kind %q", cfg.SourceKind)
	}
}

// NewRedisClient parses a redis:// URL and verifies the server responds
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// ConnectQueue dials RabbitMQ, retrying with exponential backoff while the
// broker starts up
func ConnectQueue(ctx context.Context, amqpURL string, logger *zap.Logger) (*queue.RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < queueConnectAttempts; attempt++ {
		q, err := queue.NewRabbitMQQueue(amqpURL, logger)
		if err == nil {
			logger.Info("connected_to_rabbitmq")
			return q, nil
		}
		lastErr = err

		delay := backoff(attempt)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", queueConnectAttempts),
			zap.String("error", logpkg.SanitizeError(err)),
			zap.Duration("retry_delay", delay),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", queueConnectAttempts, lastErr)
}

func backoff(attempt int) time.Duration {
	delay := queueInitialDelay * time.Duration(1<<uint(attempt))
	if delay > queueMaxDelay || delay <= 0 {
		return queueMaxDelay
	}
	return delay
}
