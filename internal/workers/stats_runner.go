// Package workers drives stats runs: it walks a project's datasets and videos,
// feeds every annotation into the aggregator and reports progress on the way.
package workers

import (
	"context"
	"errors"
	"fmt"

	logpkg "github.com/benvon/video-tag-stats/internal/logger"
	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/benvon/video-tag-stats/internal/source"
	"github.com/benvon/video-tag-stats/internal/stats"
	"github.com/benvon/video-tag-stats/internal/telemetry"
	"github.com/benvon/video-tag-stats/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrProjectNotFound is returned when the requested project does not exist
	ErrProjectNotFound = errors.New("project not found")
	// ErrWrongProjectType is returned for projects that do not hold videos
	ErrWrongProjectType = errors.New("project type is not videos")
	// ErrNoTagDefinitions is returned when the project declares no tags
	ErrNoTagDefinitions = errors.New("project has no tag definitions")
	// ErrDatasetNotFound is returned when the dataset filter names no dataset of the project
	ErrDatasetNotFound = errors.New("dataset not found in project")
	// ErrInvalidRunRequest is returned when a RunRequest fails validation
	ErrInvalidRunRequest = errors.New("invalid run request")
)

// RunRequest selects what a stats run covers
type RunRequest struct {
	TeamID      int64  `json:"team_id,omitempty"`
	WorkspaceID int64  `json:"workspace_id,omitempty"`
	ProjectID   int64  `json:"project_id" validate:"required,gt=0"`
	DatasetID   *int64 `json:"dataset_id,omitempty" validate:"omitempty,gt=0"`
}

// RunResult is the outcome of a completed run
type RunResult struct {
	Project         *models.Project
	Tables          stats.Tables
	Indices         stats.Indices
	VideosProcessed int
	FailedVideos    []models.VideoFailure
}

// ProgressReporter observes a run. Errors are logged and never stop the run.
type ProgressReporter interface {
	Started(ctx context.Context, total int) error
	Progress(ctx context.Context, current, total int) error
}

// NopProgress discards progress
type NopProgress struct{}

func (NopProgress) Started(context.Context, int) error       { return nil }
func (NopProgress) Progress(context.Context, int, int) error { return nil }

// StatsRunner executes stats runs against an annotation source
type StatsRunner struct {
	source        source.AnnotationSource
	failurePolicy string
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewStatsRunner creates a runner. failurePolicy decides what happens when a
// single video cannot be fetched or counted: abort the run or skip the video.
func NewStatsRunner(src source.AnnotationSource, failurePolicy string, logger *zap.Logger) (*StatsRunner, error) {
	if err := validation.ValidateFailurePolicy(failurePolicy); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsRunner{
		source:        src,
		failurePolicy: failurePolicy,
		logger:        logger,
		tracer:        telemetry.Tracer(),
	}, nil
}

// Run computes the four reports for the requested project or dataset
func (r *StatsRunner) Run(ctx context.Context, req RunRequest, progress ProgressReporter) (result *RunResult, err error) {
	if progress == nil {
		progress = NopProgress{}
	}
	if err := validation.Validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRunRequest, err)
	}

	ctx, span := r.tracer.Start(ctx, "stats.run", trace.WithAttributes(
		attribute.Int64("project.id", req.ProjectID),
		attribute.Bool("single_dataset", req.DatasetID != nil),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	fields := []zap.Field{
		zap.Int64("team_id", req.TeamID),
		zap.Int64("workspace_id", req.WorkspaceID),
		zap.Int64("project_id", req.ProjectID),
	}
	if req.DatasetID != nil {
		fields = append(fields, zap.Int64("dataset_id", *req.DatasetID))
	}
	r.logger.Info("stats_run_started", fields...)

	project, meta, err := r.checkProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	datasets, err := r.source.ListDatasets(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	total := project.ItemsCount
	if req.DatasetID != nil {
		ds, err := r.selectedDataset(ctx, project.ID, *req.DatasetID)
		if err != nil {
			return nil, err
		}
		total = ds.ItemsCount
	}

	if err := progress.Started(ctx, total); err != nil {
		r.logProgressError(err)
	}

	agg := stats.NewAggregator(meta.Tags, stats.Options{SingleDataset: req.DatasetID != nil})
	result = &RunResult{Project: project}
	current := 0

	for _, ds := range datasets {
		if req.DatasetID != nil && ds.ID != *req.DatasetID {
			continue
		}
		agg.BeginDataset(ds.Name)

		videos, err := r.source.ListVideos(ctx, ds.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list videos of dataset %d: %w", ds.ID, err)
		}
		r.logger.Debug("stats_dataset_started",
			zap.Int64("dataset_id", ds.ID),
			zap.String("dataset", logpkg.SanitizeName(ds.Name)),
			zap.Int("videos", len(videos)),
		)

		for _, video := range videos {
			if err := r.countVideo(ctx, agg, video); err != nil {
				if r.failurePolicy == validation.FailurePolicyAbort || ctx.Err() != nil {
					return nil, err
				}
				r.logger.Warn("stats_video_skipped",
					zap.Int64("video_id", video.ID),
					zap.String("video", logpkg.SanitizeName(video.Name)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				result.FailedVideos = append(result.FailedVideos, models.VideoFailure{
					Video:  video,
					Reason: err.Error(),
				})
			}
			current++
			if err := progress.Progress(ctx, current, total); err != nil {
				r.logProgressError(err)
			}
		}
	}

	result.Tables = agg.Tables()
	result.Indices = agg.Indices()
	result.VideosProcessed = agg.VideosCounted()

	span.SetAttributes(
		attribute.Int("videos.processed", result.VideosProcessed),
		attribute.Int("videos.failed", len(result.FailedVideos)),
	)
	r.logger.Info("stats_run_completed",
		zap.Int64("project_id", project.ID),
		zap.Int("datasets", len(agg.Datasets())),
		zap.Int("videos_processed", result.VideosProcessed),
		zap.Int("videos_failed", len(result.FailedVideos)),
	)
	return result, nil
}

// checkProject loads the project and enforces the run preconditions
func (r *StatsRunner) checkProject(ctx context.Context, projectID int64) (*models.Project, *models.ProjectMeta, error) {
	project, err := r.source.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %d", ErrProjectNotFound, projectID)
		}
		return nil, nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project.Type != models.ProjectTypeVideos {
		return nil, nil, fmt.Errorf("%w: project %d is %q", ErrWrongProjectType, projectID, project.Type)
	}

	meta, err := r.source.GetProjectMeta(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get project meta: %w", err)
	}
	if len(meta.Tags) == 0 {
		return nil, nil, fmt.Errorf("%w: project %d", ErrNoTagDefinitions, projectID)
	}
	return project, meta, nil
}

func (r *StatsRunner) selectedDataset(ctx context.Context, projectID, datasetID int64) (*models.Dataset, error) {
	ds, err := r.source.GetDataset(ctx, datasetID)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrDatasetNotFound, datasetID)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	if ds.ProjectID != projectID {
		return nil, fmt.Errorf("%w: dataset %d belongs to project %d", ErrDatasetNotFound, datasetID, ds.ProjectID)
	}
	return ds, nil
}

func (r *StatsRunner) countVideo(ctx context.Context, agg *stats.Aggregator, video models.VideoRef) error {
	ann, err := r.source.DownloadAnnotation(ctx, video.ID)
	if err != nil {
		return fmt.Errorf("failed to download annotation of video %d: %w", video.ID, err)
	}
	return agg.AddVideo(video, ann.Tags)
}

func (r *StatsRunner) logProgressError(err error) {
	r.logger.Warn("stats_progress_report_failed", zap.String("error", logpkg.SanitizeError(err)))
}
