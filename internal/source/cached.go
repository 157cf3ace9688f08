package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const annotationKeyPrefix = "videotagstats:annotation:"

// Cache is the subset of the Redis client used by CachedSource
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSource serves video annotations from Redis and falls back to the
// wrapped source on a miss. Cache failures never fail a download.
type CachedSource struct {
	AnnotationSource
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource wraps inner with a Redis annotation cache
func NewCachedSource(inner AnnotationSource, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{AnnotationSource: inner, cache: cache, ttl: ttl, logger: logger}
}

func annotationKey(videoID int64) string {
	return fmt.Sprintf("%s%d", annotationKeyPrefix, videoID)
}

// DownloadAnnotation returns the cached annotation or downloads and caches it
func (s *CachedSource) DownloadAnnotation(ctx context.Context, videoID int64) (*models.VideoAnnotation, error) {
	key := annotationKey(videoID)

	data, err := s.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ann models.VideoAnnotation
		if uerr := json.Unmarshal(data, &ann); uerr == nil {
			return &ann, nil
		}
		s.logger.Warn("annotation_cache_entry_corrupt", zap.Int64("video_id", videoID))
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("annotation_cache_get_failed",
			zap.Int64("video_id", videoID),
			zap.Error(err),
		)
	}

	ann, err := s.AnnotationSource.DownloadAnnotation(ctx, videoID)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(ann)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal annotation: %w", err)
	}
	if err := s.cache.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
		s.logger.Warn("annotation_cache_set_failed",
			zap.Int64("video_id", videoID),
			zap.Error(err),
		)
	}
	return ann, nil
}

var _ AnnotationSource = (*CachedSource)(nil)
