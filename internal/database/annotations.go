package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/benvon/video-tag-stats/internal/source"
	"github.com/benvon/video-tag-stats/internal/validation"
)

// AnnotationRepository reads projects, datasets, videos and annotations from Postgres
type AnnotationRepository struct {
	db *DB
}

// NewAnnotationRepository creates a new annotation repository
func NewAnnotationRepository(db *DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// GetProject retrieves a project by ID
func (r *AnnotationRepository) GetProject(ctx context.Context, projectID int64) (*models.Project, error) {
	p := &models.Project{}

	query := `
		SELECT id, name, type, items_count, team_id, workspace_id
		FROM projects
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, projectID).Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&p.ItemsCount,
		&p.TeamID,
		&p.WorkspaceID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", projectID, source.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return p, nil
}

// GetProjectMeta retrieves the project's tag vocabulary in declaration order
func (r *AnnotationRepository) GetProjectMeta(ctx context.Context, projectID int64) (*models.ProjectMeta, error) {
	query := `
		SELECT name, value_type
		FROM project_tag_metas
		WHERE project_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project meta: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	meta := &models.ProjectMeta{}
	for rows.Next() {
		var def models.TagDefinition
		if err := rows.Scan(&def.Name, &def.ValueType); err != nil {
			return nil, fmt.Errorf("failed to scan tag meta: %w", err)
		}
		meta.Tags = append(meta.Tags, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tag metas: %w", err)
	}

	return meta, nil
}

// GetDataset retrieves a dataset by ID
func (r *AnnotationRepository) GetDataset(ctx context.Context, datasetID int64) (*models.Dataset, error) {
	ds := &models.Dataset{}

	query := `
		SELECT id, project_id, name, items_count
		FROM datasets
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, datasetID).Scan(&ds.ID, &ds.ProjectID, &ds.Name, &ds.ItemsCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dataset %d: %w", datasetID, source.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return ds, nil
}

// ListDatasets retrieves all datasets of a project ordered by ID
func (r *AnnotationRepository) ListDatasets(ctx context.Context, projectID int64) ([]models.Dataset, error) {
	query := `
		SELECT id, project_id, name, items_count
		FROM datasets
		WHERE project_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var datasets []models.Dataset
	for rows.Next() {
		var ds models.Dataset
		if err := rows.Scan(&ds.ID, &ds.ProjectID, &ds.Name, &ds.ItemsCount); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}

	return datasets, nil
}

// ListVideos retrieves all videos of a dataset ordered by ID
func (r *AnnotationRepository) ListVideos(ctx context.Context, datasetID int64) ([]models.VideoRef, error) {
	query := `
		SELECT v.id, v.name, d.id, d.name
		FROM videos v
		JOIN datasets d ON d.id = v.dataset_id
		WHERE v.dataset_id = $1
		ORDER BY v.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var videos []models.VideoRef
	for rows.Next() {
		var v models.VideoRef
		if err := rows.Scan(&v.ID, &v.Name, &v.DatasetID, &v.DatasetName); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}

	return videos, nil
}

// DownloadAnnotation retrieves and decodes the annotation of a video
func (r *AnnotationRepository) DownloadAnnotation(ctx context.Context, videoID int64) (*models.VideoAnnotation, error) {
	var framesCount int
	var annotationJSON []byte

	query := `
		SELECT v.frames_count, a.annotation
		FROM videos v
		JOIN video_annotations a ON a.video_id = v.id
		WHERE v.id = $1
	`

	err := r.db.QueryRowContext(ctx, query, videoID).Scan(&framesCount, &annotationJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("annotation for video %d: %w", videoID, source.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}

	return decodeAnnotation(videoID, framesCount, annotationJSON)
}

// decodeAnnotation parses a stored annotation document. The row's video ID
// and frame count win over whatever the document carries.
func decodeAnnotation(videoID int64, framesCount int, data []byte) (*models.VideoAnnotation, error) {
	ann := &models.VideoAnnotation{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, ann); err != nil {
			return nil, fmt.Errorf("failed to unmarshal annotation for video %d: %w", videoID, err)
		}
	}
	ann.VideoID = videoID
	ann.FramesCount = framesCount
	if err := validation.Validate.Struct(ann); err != nil {
		return nil, fmt.Errorf("invalid annotation for video %d: %w", videoID, err)
	}
	return ann, nil
}

var _ source.AnnotationSource = (*AnnotationRepository)(nil)
