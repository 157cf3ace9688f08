package models

// ProjectType identifies what kind of items a project holds
type ProjectType string

const (
	ProjectTypeVideos      ProjectType = "videos"
	ProjectTypeImages      ProjectType = "images"
	ProjectTypePointClouds ProjectType = "point_clouds"
)

// Project is the top-level container of datasets
type Project struct {
	ID          int64       `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Type        ProjectType `json:"type" yaml:"type" validate:"required,project_type"`
	ItemsCount  int         `json:"items_count" yaml:"itemsCount"`
	TeamID      int64       `json:"team_id,omitempty" yaml:"teamId"`
	WorkspaceID int64       `json:"workspace_id,omitempty" yaml:"workspaceId"`
}

// TagDefinition declares one tag of the project vocabulary.
// The declaration order of a project's tags is the row order of per-tag reports.
type TagDefinition struct {
	Name      string `json:"name" yaml:"name" validate:"required"`
	ValueType string `json:"value_type,omitempty" yaml:"valueType"`
}

// ProjectMeta holds the project's tag vocabulary
type ProjectMeta struct {
	Tags []TagDefinition `json:"tags" yaml:"tags" validate:"dive"`
}

// TagNames returns the declared tag names in declaration order
func (m *ProjectMeta) TagNames() []string {
	names := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Dataset is a named grouping of videos within a project
type Dataset struct {
	ID         int64  `json:"id" yaml:"id"`
	ProjectID  int64  `json:"project_id" yaml:"projectId"`
	Name       string `json:"name" yaml:"name"`
	ItemsCount int    `json:"items_count" yaml:"itemsCount"`
}

// VideoRef identifies a video for traceability
type VideoRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DatasetID   int64  `json:"dataset_id"`
	DatasetName string `json:"dataset_name"`
}

// VideoFailure records a video that was skipped during a run
type VideoFailure struct {
	Video  VideoRef `json:"video"`
	Reason string   `json:"reason"`
}
