package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeStatsRun computes the tag usage reports for a project or one dataset
	JobTypeStatsRun JobType = "stats_run"
)

// DefaultMaxRetries is the retry budget given to new jobs
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Type        JobType    `json:"type"`
	RunID       uuid.UUID  `json:"run_id"`
	ProjectID   int64      `json:"project_id"`
	DatasetID   *int64     `json:"dataset_id,omitempty"` // nil = every dataset of the project
	TeamID      int64      `json:"team_id,omitempty"`
	WorkspaceID int64      `json:"workspace_id,omitempty"`
	NotAfter    *time.Time `json:"not_after,omitempty"` // nil = no expiration
	CreatedAt   time.Time  `json:"created_at"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// NewStatsRunJob creates a job that executes the run identified by runID
func NewStatsRunJob(runID uuid.UUID, projectID int64, datasetID *int64) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeStatsRun,
		RunID:      runID,
		ProjectID:  projectID,
		DatasetID:  datasetID,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// IsExpired checks if the job has passed its NotAfter deadline
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
