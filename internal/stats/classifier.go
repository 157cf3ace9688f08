package stats

import "github.com/benvon/video-tag-stats/internal/models"

type tagPath int

const (
	pathWholeVideo tagPath = iota
	pathFrameRanged
)

// classify routes an occurrence by the presence of its frame range. Decoding
// already dropped frame ranges that are not a [start, end] pair, so those tags
// count as whole-video tags.
func classify(occ models.TagOccurrence) tagPath {
	if occ.FrameRange == nil {
		return pathWholeVideo
	}
	return pathFrameRanged
}
