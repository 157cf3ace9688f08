package models

import "strconv"

// ReportKind names one of the four statistics tables
type ReportKind string

const (
	ReportKindTags           ReportKind = "tags"
	ReportKindTagValues      ReportKind = "tag_values"
	ReportKindFrameTags      ReportKind = "frame_tags"
	ReportKindFrameTagValues ReportKind = "frame_tag_values"
)

// TotalLabel labels the trailing row of every report
const TotalLabel = "Total"

// ReportRow is one table row. Counts holds the numeric columns that follow the
// label columns, in the order given by Report.Columns.
type ReportRow struct {
	Index   int    `json:"index"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Dataset string `json:"dataset,omitempty"`
	Counts  []int  `json:"counts"`
}

// Report is an ordered table whose last row is the synthetic "Total" row
type Report struct {
	Kind    ReportKind  `json:"kind"`
	Columns []string    `json:"columns"`
	Rows    []ReportRow `json:"rows"`
}

// HasValueColumn reports whether rows carry a tag value label column
func (r Report) HasValueColumn() bool {
	return r.Kind == ReportKindTagValues || r.Kind == ReportKindFrameTagValues
}

// DataRows returns all rows except the trailing total row
func (r Report) DataRows() []ReportRow {
	if len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[:len(r.Rows)-1]
}

// TotalRow returns the trailing total row
func (r Report) TotalRow() ReportRow {
	if len(r.Rows) == 0 {
		return ReportRow{}
	}
	return r.Rows[len(r.Rows)-1]
}

// Cells renders a row as strings aligned with Columns
func (r Report) Cells(row ReportRow) []string {
	cells := make([]string, 0, len(r.Columns))
	cells = append(cells, strconv.Itoa(row.Index), row.Tag)
	if r.HasValueColumn() {
		cells = append(cells, row.Value)
	}
	for _, c := range row.Counts {
		cells = append(cells, strconv.Itoa(c))
	}
	return cells
}
