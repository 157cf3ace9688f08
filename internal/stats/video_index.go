package stats

import "github.com/benvon/video-tag-stats/internal/models"

// TotalKey is the index key that accumulates videos across all datasets. A
// dataset literally named "total" shares this key; its videos are recorded
// once.
const TotalKey = "total"

// VideoIndex maps tag → dataset (or TotalKey) → contributing videos.
// Lists are append-only and not deduplicated: a tag occurring twice in one
// video lists that video twice.
type VideoIndex map[string]map[string][]models.VideoRef

func (ix VideoIndex) add(tag, dataset string, video models.VideoRef) {
	byDataset, ok := ix[tag]
	if !ok {
		byDataset = make(map[string][]models.VideoRef)
		ix[tag] = byDataset
	}
	appendVideo(byDataset, dataset, video)
}

func appendVideo(byDataset map[string][]models.VideoRef, dataset string, video models.VideoRef) {
	byDataset[dataset] = append(byDataset[dataset], video)
	if dataset != TotalKey {
		byDataset[TotalKey] = append(byDataset[TotalKey], video)
	}
}

// Videos returns the videos recorded for tag under dataset (or TotalKey)
func (ix VideoIndex) Videos(tag, dataset string) []models.VideoRef {
	return ix[tag][dataset]
}

// ValueVideoIndex maps tag → value → dataset (or TotalKey) → contributing videos
type ValueVideoIndex map[string]map[string]map[string][]models.VideoRef

func (ix ValueVideoIndex) add(tag, value, dataset string, video models.VideoRef) {
	byValue, ok := ix[tag]
	if !ok {
		byValue = make(map[string]map[string][]models.VideoRef)
		ix[tag] = byValue
	}
	byDataset, ok := byValue[value]
	if !ok {
		byDataset = make(map[string][]models.VideoRef)
		byValue[value] = byDataset
	}
	appendVideo(byDataset, dataset, video)
}

// Videos returns the videos recorded for (tag, value) under dataset (or TotalKey)
func (ix ValueVideoIndex) Videos(tag, value, dataset string) []models.VideoRef {
	return ix[tag][value][dataset]
}

// Indices groups the four video indices produced by a run
type Indices struct {
	Tags           VideoIndex      `json:"tags"`
	TagValues      ValueVideoIndex `json:"tag_values"`
	FrameTags      VideoIndex      `json:"frame_tags"`
	FrameTagValues ValueVideoIndex `json:"frame_tag_values"`
}

func newIndices() Indices {
	return Indices{
		Tags:           make(VideoIndex),
		TagValues:      make(ValueVideoIndex),
		FrameTags:      make(VideoIndex),
		FrameTagValues: make(ValueVideoIndex),
	}
}
