// Package stats counts tag usage over annotated videos and assembles the
// resulting tables.
package stats

import (
	"errors"
	"fmt"

	"github.com/benvon/video-tag-stats/internal/models"
)

// ErrNoDataset is returned when a video is added before any dataset was begun
var ErrNoDataset = errors.New("no dataset begun")

// Options controls table layout
type Options struct {
	// SingleDataset drops the total columns: only the one dataset's raw counts are shown.
	SingleDataset bool
}

// Aggregator accumulates counters for one run. It is not safe for concurrent use.
type Aggregator struct {
	tags     []string
	opts     Options
	datasets []*DatasetCounters
	current  *DatasetCounters
	indices  Indices
	videos   int
}

// NewAggregator creates an aggregator over the declared tag vocabulary
func NewAggregator(tags []models.TagDefinition, opts Options) *Aggregator {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return &Aggregator{
		tags:    names,
		opts:    opts,
		indices: newIndices(),
	}
}

// BeginDataset starts a new dataset column group. Subsequent videos count
// towards it until the next call.
func (a *Aggregator) BeginDataset(name string) {
	a.current = NewDatasetCounters(name)
	a.datasets = append(a.datasets, a.current)
}

// AddVideo counts every tag of one video. The video is checked as a whole
// first: if any frame range is reversed nothing is counted.
func (a *Aggregator) AddVideo(video models.VideoRef, tags []models.TagOccurrence) error {
	if a.current == nil {
		return ErrNoDataset
	}
	for _, occ := range tags {
		if occ.FrameRange == nil {
			continue
		}
		if err := occ.FrameRange.Validate(); err != nil {
			return fmt.Errorf("video %d tag %q: %w", video.ID, occ.Name, err)
		}
	}

	ds := a.current.Dataset
	for _, occ := range tags {
		value := occ.ValueKey()
		switch classify(occ) {
		case pathWholeVideo:
			a.current.recordWholeVideoTag(occ.Name)
			a.indices.Tags.add(occ.Name, ds, video)
			a.current.recordWholeVideoTagValue(occ.Name, value)
			a.indices.TagValues.add(occ.Name, value, ds, video)
		case pathFrameRanged:
			a.current.recordFrameTag(occ.Name, *occ.FrameRange)
			a.indices.FrameTags.add(occ.Name, ds, video)
			a.current.recordFrameTagValue(occ.Name, value, *occ.FrameRange)
			a.indices.FrameTagValues.add(occ.Name, value, ds, video)
		}
	}
	a.videos++
	return nil
}

// Datasets returns the per-dataset counters in visiting order
func (a *Aggregator) Datasets() []*DatasetCounters {
	return a.datasets
}

// Indices returns the video indices built so far
func (a *Aggregator) Indices() Indices {
	return a.indices
}

// VideosCounted returns the number of videos successfully added
func (a *Aggregator) VideosCounted() int {
	return a.videos
}

// Tables assembles the four reports from the current counters
func (a *Aggregator) Tables() Tables {
	return BuildTables(a.tags, a.datasets, a.opts)
}
