// Package runs tracks the lifecycle and results of stats runs so that the
// worker executing a run and the API reporting on it can share state.
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/benvon/video-tag-stats/internal/stats"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRunNotFound is returned when no run exists for an ID
var ErrRunNotFound = errors.New("run not found")

// Status is the lifecycle state of a run
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the externally visible state of one stats run
type Run struct {
	ID              uuid.UUID             `json:"id"`
	ProjectID       int64                 `json:"project_id"`
	DatasetID       *int64                `json:"dataset_id,omitempty"`
	Status          Status                `json:"status"`
	Started         bool                  `json:"started"`
	Loading         bool                  `json:"loading"`
	ProgressCurrent int                   `json:"progress_current"`
	ProgressTotal   int                   `json:"progress_total"`
	Progress        int                   `json:"progress"`
	Tables          *stats.Tables         `json:"tables,omitempty"`
	Indices         *stats.Indices        `json:"indices,omitempty"`
	FailedVideos    []models.VideoFailure `json:"failed_videos,omitempty"`
	Error           string                `json:"error,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// Store persists run state for the lifetime of a run and a while after
type Store interface {
	Create(ctx context.Context, run *Run) error
	Start(ctx context.Context, id uuid.UUID, total int) error
	SetProgress(ctx context.Context, id uuid.UUID, current, total int) error
	Complete(ctx context.Context, id uuid.UUID, tables *stats.Tables, indices *stats.Indices, failures []models.VideoFailure) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
}

// Client is the subset of the Redis client used by RedisStore
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

const runKeyPrefix = "videotagstats:run:"

// RedisStore keeps runs as JSON documents that expire after ttl
type RedisStore struct {
	client Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a run store on top of Redis
func NewRedisStore(client Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func runKey(id uuid.UUID) string {
	return runKeyPrefix + id.String()
}

// Create stores a new pending run
func (s *RedisStore) Create(ctx context.Context, run *Run) error {
	now := s.now().UTC()
	run.Status = StatusPending
	run.Loading = true
	run.CreatedAt = now
	run.UpdatedAt = now
	return s.put(ctx, run)
}

// Start marks a run as running with a known progress total
func (s *RedisStore) Start(ctx context.Context, id uuid.UUID, total int) error {
	return s.update(ctx, id, func(r *Run) {
		r.Status = StatusRunning
		r.Started = true
		r.ProgressCurrent = 0
		r.ProgressTotal = total
		r.Progress = 0
	})
}

// SetProgress records the number of videos processed so far
func (s *RedisStore) SetProgress(ctx context.Context, id uuid.UUID, current, total int) error {
	return s.update(ctx, id, func(r *Run) {
		r.ProgressCurrent = current
		r.ProgressTotal = total
		r.Progress = Percent(current, total)
	})
}

// Complete attaches the reports and video indices and marks the run finished
func (s *RedisStore) Complete(ctx context.Context, id uuid.UUID, tables *stats.Tables, indices *stats.Indices, failures []models.VideoFailure) error {
	return s.update(ctx, id, func(r *Run) {
		r.Status = StatusCompleted
		r.Loading = false
		r.Tables = tables
		r.Indices = indices
		r.FailedVideos = failures
	})
}

// Fail marks the run failed with a reason
func (s *RedisStore) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return s.update(ctx, id, func(r *Run) {
		r.Status = StatusFailed
		r.Loading = false
		r.Error = reason
	})
}

// Get loads a run by ID
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	data, err := s.client.Get(ctx, runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// update is a read-modify-write; each run has a single writer, the worker executing it
func (s *RedisStore) update(ctx context.Context, id uuid.UUID, fn func(*Run)) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(run)
	run.UpdatedAt = s.now().UTC()
	return s.put(ctx, run)
}

func (s *RedisStore) put(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := s.client.Set(ctx, runKey(run.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

// Percent returns current*100/total, or 0 when total is not positive
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return current * 100 / total
}

var _ Store = (*RedisStore)(nil)
