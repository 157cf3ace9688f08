package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/benvon/video-tag-stats/internal/queue"
	"github.com/benvon/video-tag-stats/internal/runs"
	"github.com/benvon/video-tag-stats/internal/source"
	"github.com/benvon/video-tag-stats/internal/stats"
	"github.com/google/uuid"
)

// mockSource serves a fixed project from memory
type mockSource struct {
	project     *models.Project
	meta        *models.ProjectMeta
	datasets    []models.Dataset
	videos      map[int64][]models.VideoRef
	annotations map[int64]*models.VideoAnnotation

	// downloadErr maps video IDs to injected download errors
	downloadErr map[int64]error
	listErr     error

	mu        sync.Mutex
	downloads []int64
}

func (m *mockSource) GetProject(ctx context.Context, projectID int64) (*models.Project, error) {
	if m.project == nil || m.project.ID != projectID {
		return nil, fmt.Errorf("project %d: %w", projectID, source.ErrNotFound)
	}
	p := *m.project
	return &p, nil
}

func (m *mockSource) GetProjectMeta(ctx context.Context, projectID int64) (*models.ProjectMeta, error) {
	if m.meta == nil {
		return &models.ProjectMeta{}, nil
	}
	return m.meta, nil
}

func (m *mockSource) GetDataset(ctx context.Context, datasetID int64) (*models.Dataset, error) {
	for i := range m.datasets {
		if m.datasets[i].ID == datasetID {
			ds := m.datasets[i]
			return &ds, nil
		}
	}
	return nil, fmt.Errorf("dataset %d: %w", datasetID, source.ErrNotFound)
}

func (m *mockSource) ListDatasets(ctx context.Context, projectID int64) ([]models.Dataset, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.datasets, nil
}

func (m *mockSource) ListVideos(ctx context.Context, datasetID int64) ([]models.VideoRef, error) {
	return m.videos[datasetID], nil
}

func (m *mockSource) DownloadAnnotation(ctx context.Context, videoID int64) (*models.VideoAnnotation, error) {
	m.mu.Lock()
	m.downloads = append(m.downloads, videoID)
	m.mu.Unlock()
	if err := m.downloadErr[videoID]; err != nil {
		return nil, err
	}
	ann, ok := m.annotations[videoID]
	if !ok {
		return nil, fmt.Errorf("video %d: %w", videoID, source.ErrNotFound)
	}
	return ann, nil
}

var _ source.AnnotationSource = (*mockSource)(nil)

// mockProgress records every progress notification
type mockProgress struct {
	mu         sync.Mutex
	startTotal int
	started    int
	updates    [][2]int
	err        error
}

func (m *mockProgress) Started(ctx context.Context, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	m.startTotal = total
	return m.err
}

func (m *mockProgress) Progress(ctx context.Context, current, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, [2]int{current, total})
	return m.err
}

var _ ProgressReporter = (*mockProgress)(nil)

// mockRunStore tracks run store calls
type mockRunStore struct {
	mu            sync.Mutex
	startCalls    []int
	progressCalls [][2]int
	completed     *stats.Tables
	indices       *stats.Indices
	failures      []models.VideoFailure
	failReason    string
	completeErr   error
}

func (m *mockRunStore) Create(ctx context.Context, run *runs.Run) error { return nil }

func (m *mockRunStore) Start(ctx context.Context, id uuid.UUID, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls = append(m.startCalls, total)
	return nil
}

func (m *mockRunStore) SetProgress(ctx context.Context, id uuid.UUID, current, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressCalls = append(m.progressCalls, [2]int{current, total})
	return nil
}

func (m *mockRunStore) Complete(ctx context.Context, id uuid.UUID, tables *stats.Tables, indices *stats.Indices, failures []models.VideoFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	m.completed = tables
	m.indices = indices
	m.failures = failures
	return nil
}

func (m *mockRunStore) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReason = reason
	return nil
}

func (m *mockRunStore) Get(ctx context.Context, id uuid.UUID) (*runs.Run, error) {
	return nil, runs.ErrRunNotFound
}

var _ runs.Store = (*mockRunStore)(nil)

// mockMessage is a queue message with ack tracking
type mockMessage struct {
	job       *queue.Job
	acked     bool
	nacked    bool
	requeued  bool
	ackCalls  int
	nackCalls int
}

func (m *mockMessage) Ack() error {
	m.acked = true
	m.ackCalls++
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	m.nackCalls++
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

// mockJobQueue records enqueued jobs
type mockJobQueue struct {
	mu         sync.Mutex
	enqueued   []*queue.Job
	enqueueErr error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

func strPtr(s string) *string {
	return &s
}

func int64Ptr(n int64) *int64 {
	return &n
}

// trafficProject builds a two-dataset project:
//
//	ds1: video 1 {quality=good, color=red frames 1-4}, video 2 {quality=bad}
//	ds2: video 3 {quality=good, color=red frames 10-11, color=blue frames 20-20}
func trafficProject() *mockSource {
	ds1 := models.Dataset{ID: 100, ProjectID: 42, Name: "ds1", ItemsCount: 2}
	ds2 := models.Dataset{ID: 200, ProjectID: 42, Name: "ds2", ItemsCount: 1}
	ref := func(id int64, ds models.Dataset) models.VideoRef {
		return models.VideoRef{ID: id, Name: fmt.Sprintf("video-%d.mp4", id), DatasetID: ds.ID, DatasetName: ds.Name}
	}
	return &mockSource{
		project: &models.Project{ID: 42, Name: "traffic", Type: models.ProjectTypeVideos, ItemsCount: 3},
		meta: &models.ProjectMeta{Tags: []models.TagDefinition{
			{Name: "quality", ValueType: "oneof_string"},
			{Name: "color", ValueType: "any_string"},
		}},
		datasets: []models.Dataset{ds1, ds2},
		videos: map[int64][]models.VideoRef{
			100: {ref(1, ds1), ref(2, ds1)},
			200: {ref(3, ds2)},
		},
		annotations: map[int64]*models.VideoAnnotation{
			1: {VideoID: 1, Tags: []models.TagOccurrence{
				{Name: "quality", Value: strPtr("good")},
				{Name: "color", Value: strPtr("red"), FrameRange: &models.FrameRange{Start: 1, End: 4}},
			}},
			2: {VideoID: 2, Tags: []models.TagOccurrence{
				{Name: "quality", Value: strPtr("bad")},
			}},
			3: {VideoID: 3, Tags: []models.TagOccurrence{
				{Name: "quality", Value: strPtr("good")},
				{Name: "color", Value: strPtr("red"), FrameRange: &models.FrameRange{Start: 10, End: 11}},
				{Name: "color", Value: strPtr("blue"), FrameRange: &models.FrameRange{Start: 20, End: 20}},
			}},
		},
	}
}
