package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFrameRange is returned for a frame range whose end precedes its start
var ErrInvalidFrameRange = errors.New("invalid frame range")

// FrameRange is an inclusive [Start, End] frame interval.
// On the wire it is a two-element array: [start, end].
type FrameRange struct {
	Start int
	End   int
}

// Len returns the number of frames covered by the range
func (r FrameRange) Len() int {
	return r.End - r.Start + 1
}

// Validate rejects ranges with End < Start
func (r FrameRange) Validate() error {
	if r.End < r.Start {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidFrameRange, r.Start, r.End)
	}
	return nil
}

// MarshalJSON encodes the range as [start, end]
func (r FrameRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON decodes a [start, end] pair
func (r *FrameRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("frame range must have 2 elements, got %d", len(pair))
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// TagOccurrence is one instance of a tag attached to a video.
// Value and FrameRange are optional; a nil FrameRange marks a whole-video tag.
type TagOccurrence struct {
	Name       string      `json:"name" validate:"required"`
	Value      *string     `json:"value,omitempty"`
	FrameRange *FrameRange `json:"frameRange,omitempty"`
}

// ValueKey returns the value used to key per-value counters.
// An absent value and an empty string value share the key "". Exports from
// the annotation tool render an absent value as "None", a key distinct from
// ""; those two rows are merged here.
func (t TagOccurrence) ValueKey() string {
	if t.Value == nil {
		return ""
	}
	return *t.Value
}

// UnmarshalJSON accepts string or numeric values and treats a frame range that is
// not a [start, end] integer pair as absent.
func (t *TagOccurrence) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       string          `json:"name"`
		Value      json.RawMessage `json:"value"`
		FrameRange json.RawMessage `json:"frameRange"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Name = raw.Name
	t.Value = decodeJSONValue(raw.Value)
	t.FrameRange = nil
	if len(raw.FrameRange) > 0 {
		var fr FrameRange
		if err := fr.UnmarshalJSON(raw.FrameRange); err == nil {
			t.FrameRange = &fr
		}
	}
	return nil
}

func decodeJSONValue(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	s = string(raw)
	return &s
}

// UnmarshalYAML mirrors UnmarshalJSON for project dumps written in YAML
func (t *TagOccurrence) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name       string    `yaml:"name"`
		Value      yaml.Node `yaml:"value"`
		FrameRange yaml.Node `yaml:"frameRange"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	t.Name = raw.Name
	t.Value = nil
	if raw.Value.Kind == yaml.ScalarNode && raw.Value.Tag != "!!null" {
		v := raw.Value.Value
		t.Value = &v
	}
	t.FrameRange = nil
	if raw.FrameRange.Kind == yaml.SequenceNode {
		var pair []int
		if err := raw.FrameRange.Decode(&pair); err == nil && len(pair) == 2 {
			t.FrameRange = &FrameRange{Start: pair[0], End: pair[1]}
		}
	}
	return nil
}

// VideoAnnotation is the parsed annotation of a single video
type VideoAnnotation struct {
	VideoID     int64           `json:"videoId" yaml:"videoId"`
	FramesCount int             `json:"framesCount" yaml:"framesCount"`
	Tags        []TagOccurrence `json:"tags" yaml:"tags" validate:"dive"`
}

// String renders a tag occurrence as name[=value][@start-end] for log output
func (t TagOccurrence) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	if t.Value != nil {
		b.WriteString("=")
		b.WriteString(*t.Value)
	}
	if t.FrameRange != nil {
		fmt.Fprintf(&b, "@%d-%d", t.FrameRange.Start, t.FrameRange.End)
	}
	return b.String()
}
