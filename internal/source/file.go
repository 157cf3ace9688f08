package source

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/benvon/video-tag-stats/internal/validation"
	"gopkg.in/yaml.v3"
)

// ProjectDump is the on-disk layout read by FileSource
type ProjectDump struct {
	Project  models.Project     `yaml:"project"`
	Meta     models.ProjectMeta `yaml:"meta"`
	Datasets []DatasetDump      `yaml:"datasets" validate:"dive"`
}

// DatasetDump is one dataset of a ProjectDump
type DatasetDump struct {
	ID     int64       `yaml:"id" validate:"required"`
	Name   string      `yaml:"name" validate:"required"`
	Videos []VideoDump `yaml:"videos" validate:"dive"`
}

// VideoDump is one video of a DatasetDump together with its annotation
type VideoDump struct {
	ID          int64                  `yaml:"id" validate:"required"`
	Name        string                 `yaml:"name"`
	FramesCount int                    `yaml:"framesCount"`
	Tags        []models.TagOccurrence `yaml:"tags" validate:"dive"`
}

// FileSource serves a single project from a YAML dump. The file is read
// lazily on first use and can be re-read with Reload.
type FileSource struct {
	path string

	mu       sync.RWMutex
	loaded   bool
	project  models.Project
	meta     models.ProjectMeta
	datasets []models.Dataset
	videos   map[int64][]models.VideoRef
	anns     map[int64]*models.VideoAnnotation
}

// NewFileSource creates a source backed by the YAML file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file the source reads from
func (s *FileSource) Path() string {
	return s.path
}

// Reload re-reads the dump from disk
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read project dump: %w", err)
	}
	var dump ProjectDump
	if err := yaml.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("failed to parse project dump: %w", err)
	}
	if err := validation.Validate.Struct(dump); err != nil {
		return fmt.Errorf("invalid project dump: %w", err)
	}

	datasets := make([]models.Dataset, 0, len(dump.Datasets))
	videos := make(map[int64][]models.VideoRef, len(dump.Datasets))
	anns := make(map[int64]*models.VideoAnnotation)
	items := 0
	for _, d := range dump.Datasets {
		datasets = append(datasets, models.Dataset{
			ID:         d.ID,
			ProjectID:  dump.Project.ID,
			Name:       d.Name,
			ItemsCount: len(d.Videos),
		})
		refs := make([]models.VideoRef, 0, len(d.Videos))
		for _, v := range d.Videos {
			refs = append(refs, models.VideoRef{ID: v.ID, Name: v.Name, DatasetID: d.ID, DatasetName: d.Name})
			anns[v.ID] = &models.VideoAnnotation{VideoID: v.ID, FramesCount: v.FramesCount, Tags: v.Tags}
		}
		videos[d.ID] = refs
		items += len(d.Videos)
	}
	if dump.Project.ItemsCount == 0 {
		dump.Project.ItemsCount = items
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = dump.Project
	s.meta = dump.Meta
	s.datasets = datasets
	s.videos = videos
	s.anns = anns
	s.loaded = true
	return nil
}

func (s *FileSource) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Reload()
}

// GetProject returns the dumped project if its id matches
func (s *FileSource) GetProject(_ context.Context, projectID int64) (*models.Project, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.project.ID != projectID {
		return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	p := s.project
	return &p, nil
}

// GetProjectMeta returns the dumped tag vocabulary
func (s *FileSource) GetProjectMeta(ctx context.Context, projectID int64) (*models.ProjectMeta, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta := models.ProjectMeta{Tags: append([]models.TagDefinition(nil), s.meta.Tags...)}
	return &meta, nil
}

// GetDataset looks a dataset up by id
func (s *FileSource) GetDataset(_ context.Context, datasetID int64) (*models.Dataset, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.datasets {
		if d.ID == datasetID {
			ds := d
			return &ds, nil
		}
	}
	return nil, fmt.Errorf("dataset %d: %w", datasetID, ErrNotFound)
}

// ListDatasets returns datasets in dump order
func (s *FileSource) ListDatasets(ctx context.Context, projectID int64) ([]models.Dataset, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Dataset(nil), s.datasets...), nil
}

// ListVideos returns a dataset's videos in dump order
func (s *FileSource) ListVideos(_ context.Context, datasetID int64) ([]models.VideoRef, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs, ok := s.videos[datasetID]
	if !ok {
		return nil, fmt.Errorf("dataset %d: %w", datasetID, ErrNotFound)
	}
	return append([]models.VideoRef(nil), refs...), nil
}

// DownloadAnnotation returns the annotation stored with a video
func (s *FileSource) DownloadAnnotation(_ context.Context, videoID int64) (*models.VideoAnnotation, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ann, ok := s.anns[videoID]
	if !ok {
		return nil, fmt.Errorf("video %d: %w", videoID, ErrNotFound)
	}
	out := *ann
	out.Tags = append([]models.TagOccurrence(nil), ann.Tags...)
	return &out, nil
}

var _ AnnotationSource = (*FileSource)(nil)
