package stats

import "github.com/benvon/video-tag-stats/internal/models"

// ValueCounts is a tag → value → count mapping that remembers first-seen order
// of tags, and of values within each tag.
type ValueCounts struct {
	tags   []string
	values map[string]*orderedCounts
}

type orderedCounts struct {
	keys   []string
	counts map[string]int
}

// NewValueCounts creates an empty ValueCounts
func NewValueCounts() *ValueCounts {
	return &ValueCounts{values: make(map[string]*orderedCounts)}
}

// forTag returns the value counts of tag, inserting an empty set on first use
func (v *ValueCounts) forTag(tag string) *orderedCounts {
	oc, ok := v.values[tag]
	if !ok {
		oc = &orderedCounts{counts: make(map[string]int)}
		v.values[tag] = oc
		v.tags = append(v.tags, tag)
	}
	return oc
}

// Add increments the count of (tag, value) by n
func (v *ValueCounts) Add(tag, value string, n int) {
	oc := v.forTag(tag)
	if _, ok := oc.counts[value]; !ok {
		oc.keys = append(oc.keys, value)
	}
	oc.counts[value] += n
}

// Get returns the count of (tag, value); absent pairs count as 0
func (v *ValueCounts) Get(tag, value string) int {
	oc, ok := v.values[tag]
	if !ok {
		return 0
	}
	return oc.counts[value]
}

// Each visits pairs in tag first-seen order, then value first-seen order
func (v *ValueCounts) Each(fn func(tag, value string, n int)) {
	for _, tag := range v.tags {
		oc := v.values[tag]
		for _, value := range oc.keys {
			fn(tag, value, oc.counts[value])
		}
	}
}

// Len returns the number of distinct (tag, value) pairs
func (v *ValueCounts) Len() int {
	n := 0
	for _, oc := range v.values {
		n += len(oc.keys)
	}
	return n
}

// DatasetCounters holds the counters of one dataset
type DatasetCounters struct {
	Dataset string

	TagCount      map[string]int
	TagValueCount *ValueCounts

	// Coverage maps sum frame-range lengths, occurrence maps count instances.
	FrameTagCoverage         map[string]int
	FrameTagOccurrences      map[string]int
	FrameTagValueCoverage    *ValueCounts
	FrameTagValueOccurrences *ValueCounts
}

// NewDatasetCounters creates zeroed counters for a dataset
func NewDatasetCounters(dataset string) *DatasetCounters {
	return &DatasetCounters{
		Dataset:                  dataset,
		TagCount:                 make(map[string]int),
		TagValueCount:            NewValueCounts(),
		FrameTagCoverage:         make(map[string]int),
		FrameTagOccurrences:      make(map[string]int),
		FrameTagValueCoverage:    NewValueCounts(),
		FrameTagValueOccurrences: NewValueCounts(),
	}
}

func (c *DatasetCounters) recordWholeVideoTag(tag string) {
	c.TagCount[tag]++
}

func (c *DatasetCounters) recordWholeVideoTagValue(tag, value string) {
	c.TagValueCount.Add(tag, value, 1)
}

func (c *DatasetCounters) recordFrameTag(tag string, fr models.FrameRange) {
	c.FrameTagCoverage[tag] += fr.Len()
	c.FrameTagOccurrences[tag]++
}

func (c *DatasetCounters) recordFrameTagValue(tag, value string, fr models.FrameRange) {
	c.FrameTagValueCoverage.Add(tag, value, fr.Len())
	c.FrameTagValueOccurrences.Add(tag, value, 1)
}
