// Package source defines where projects, datasets, videos and their
// annotations come from.
package source

import (
	"context"
	"errors"

	"github.com/benvon/video-tag-stats/internal/models"
)

// ErrNotFound is returned when a project, dataset or video does not exist
var ErrNotFound = errors.New("not found")

// AnnotationSource supplies the input of a stats run
type AnnotationSource interface {
	GetProject(ctx context.Context, projectID int64) (*models.Project, error)
	GetProjectMeta(ctx context.Context, projectID int64) (*models.ProjectMeta, error)
	GetDataset(ctx context.Context, datasetID int64) (*models.Dataset, error)
	ListDatasets(ctx context.Context, projectID int64) ([]models.Dataset, error)
	// ListVideos returns the videos of a dataset with DatasetName filled in
	ListVideos(ctx context.Context, datasetID int64) ([]models.VideoRef, error)
	DownloadAnnotation(ctx context.Context, videoID int64) (*models.VideoAnnotation, error)
}
