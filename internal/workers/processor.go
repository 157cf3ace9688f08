package workers

import (
	"context"
	"errors"
	"fmt"

	logpkg "github.com/benvon/video-tag-stats/internal/logger"
	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/benvon/video-tag-stats/internal/queue"
	"github.com/benvon/video-tag-stats/internal/runs"
	"go.uber.org/zap"
)

// JobProcessor executes one stats run job. It mirrors the run's state into
// the run store so the API can report it.
type JobProcessor struct {
	runner *StatsRunner
	runs   runs.Store
	queue  queue.JobQueue
	logger *zap.Logger
}

// NewJobProcessor creates a processor. jobQueue is used to retry jobs that
// failed for transient reasons and may be nil to disable retries.
func NewJobProcessor(runner *StatsRunner, store runs.Store, jobQueue queue.JobQueue, logger *zap.Logger) *JobProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobProcessor{
		runner: runner,
		runs:   store,
		queue:  jobQueue,
		logger: logger,
	}
}

// ProcessJob runs the job carried by msg and acknowledges it
func (p *JobProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if job.Type != queue.JobTypeStatsRun {
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Error("failed_to_nack_unknown_job_type",
				zap.String("job_id", logpkg.SanitizeID(job.ID.String())),
				zap.String("job_type", string(job.Type)),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	p.logger.Info("processing_stats_run_job",
		zap.String("job_id", logpkg.SanitizeID(job.ID.String())),
		zap.String("run_id", logpkg.SanitizeID(job.RunID.String())),
		zap.Int("retry_count", job.RetryCount),
	)

	req := RunRequest{
		TeamID:      job.TeamID,
		WorkspaceID: job.WorkspaceID,
		ProjectID:   job.ProjectID,
		DatasetID:   job.DatasetID,
	}
	result, err := p.runner.Run(ctx, req, &storeProgress{store: p.runs, job: job})
	if err != nil {
		return p.handleJobError(ctx, msg, job, err)
	}

	if err := p.runs.Complete(ctx, job.RunID, &result.Tables, &result.Indices, result.FailedVideos); err != nil {
		p.logger.Error("failed_to_store_run_result",
			zap.String("run_id", logpkg.SanitizeID(job.RunID.String())),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		if failErr := p.runs.Fail(ctx, job.RunID, "failed to store run result"); failErr != nil {
			p.logger.Warn("failed_to_mark_run_failed",
				zap.String("run_id", logpkg.SanitizeID(job.RunID.String())),
				zap.String("error", logpkg.SanitizeError(failErr)),
			)
		}
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("failed_to_nack_stats_run_job", zap.String("error", logpkg.SanitizeError(nackErr)))
		}
		return fmt.Errorf("failed to store run result: %w", err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack stats run job: %w", ackErr)
	}
	return nil
}

// handleJobError fails the run for permanent errors and retries transient ones
func (p *JobProcessor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, runErr error) error {
	p.logger.Error("stats_run_job_failed",
		zap.String("job_id", logpkg.SanitizeID(job.ID.String())),
		zap.String("run_id", logpkg.SanitizeID(job.RunID.String())),
		zap.String("error", logpkg.SanitizeError(runErr)),
	)

	if !IsPermanent(runErr) && p.queue != nil && job.CanRetry() {
		retry := *job
		retry.IncrementRetry()
		err := p.queue.Enqueue(ctx, &retry)
		if err == nil {
			p.logger.Info("stats_run_job_requeued",
				zap.String("run_id", logpkg.SanitizeID(job.RunID.String())),
				zap.Int("retry_count", retry.RetryCount),
			)
			if ackErr := msg.Ack(); ackErr != nil {
				return fmt.Errorf("failed to ack retried job: %w", ackErr)
			}
			return fmt.Errorf("stats run will be retried: %w", runErr)
		}
		p.logger.Warn("failed_to_requeue_stats_run_job", zap.String("error", logpkg.SanitizeError(err)))
	}

	if err := p.runs.Fail(ctx, job.RunID, runErr.Error()); err != nil {
		p.logger.Warn("failed_to_mark_run_failed",
			zap.String("run_id", logpkg.SanitizeID(job.RunID.String())),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
	if nackErr := msg.Nack(false); nackErr != nil {
		p.logger.Warn("failed_to_nack_stats_run_job", zap.String("error", logpkg.SanitizeError(nackErr)))
	}
	return fmt.Errorf("stats run failed: %w", runErr)
}

// IsPermanent reports whether retrying a run cannot change its outcome
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidRunRequest) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrWrongProjectType) ||
		errors.Is(err, ErrNoTagDefinitions) ||
		errors.Is(err, ErrDatasetNotFound) ||
		errors.Is(err, models.ErrInvalidFrameRange)
}

// storeProgress mirrors progress into the run store
type storeProgress struct {
	store runs.Store
	job   *queue.Job
}

func (s *storeProgress) Started(ctx context.Context, total int) error {
	return s.store.Start(ctx, s.job.RunID, total)
}

func (s *storeProgress) Progress(ctx context.Context, current, total int) error {
	return s.store.SetProgress(ctx, s.job.RunID, current, total)
}
