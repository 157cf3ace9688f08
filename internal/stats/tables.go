package stats

import "github.com/benvon/video-tag-stats/internal/models"

const (
	columnIndex    = "#"
	columnTag      = "tag"
	columnTagValue = "tag_value"
	columnTotal    = "total"
	countSuffix    = "_cnt"
)

// Tables holds the four reports of a run
type Tables struct {
	Tags           models.Report `json:"tags"`
	TagValues      models.Report `json:"tag_values"`
	FrameTags      models.Report `json:"frame_tags"`
	FrameTagValues models.Report `json:"frame_tag_values"`
}

// All returns the reports in presentation order
func (t *Tables) All() []*models.Report {
	return []*models.Report{&t.Tags, &t.TagValues, &t.FrameTags, &t.FrameTagValues}
}

// BuildTables assembles the four reports. tags gives the declared row order of
// the per-tag reports; datasets gives column order and the grouping of the
// per-value reports.
func BuildTables(tags []string, datasets []*DatasetCounters, opts Options) Tables {
	return Tables{
		Tags:           buildTagTable(tags, datasets, opts),
		TagValues:      buildTagValueTable(datasets, opts),
		FrameTags:      buildFrameTagTable(tags, datasets, opts),
		FrameTagValues: buildFrameTagValueTable(datasets, opts),
	}
}

func buildTagTable(tags []string, datasets []*DatasetCounters, opts Options) models.Report {
	report := models.Report{Kind: models.ReportKindTags, Columns: []string{columnIndex, columnTag}}
	if !opts.SingleDataset {
		report.Columns = append(report.Columns, columnTotal)
	}
	for _, ds := range datasets {
		report.Columns = append(report.Columns, ds.Dataset)
	}

	for idx, tag := range tags {
		var counts []int
		if !opts.SingleDataset {
			counts = append(counts, 0)
		}
		for _, ds := range datasets {
			n := ds.TagCount[tag]
			counts = append(counts, n)
			if !opts.SingleDataset {
				counts[0] += n
			}
		}
		report.Rows = append(report.Rows, models.ReportRow{Index: idx, Tag: tag, Counts: counts})
	}

	appendTotalRow(&report)
	return report
}

func buildTagValueTable(datasets []*DatasetCounters, opts Options) models.Report {
	report := models.Report{Kind: models.ReportKindTagValues, Columns: []string{columnIndex, columnTag, columnTagValue}}
	report.Columns = append(report.Columns, valueCountColumns(datasets, opts, false)...)

	idx := 0
	for _, ds := range datasets {
		ds.TagValueCount.Each(func(tag, value string, n int) {
			report.Rows = append(report.Rows, models.ReportRow{
				Index:   idx,
				Tag:     tag,
				Value:   value,
				Dataset: ds.Dataset,
				Counts:  []int{n},
			})
			idx++
		})
	}

	appendTotalRow(&report)
	return report
}

func buildFrameTagTable(tags []string, datasets []*DatasetCounters, opts Options) models.Report {
	report := models.Report{Kind: models.ReportKindFrameTags, Columns: []string{columnIndex, columnTag}}
	if !opts.SingleDataset {
		report.Columns = append(report.Columns, columnTotal, columnTotal+countSuffix)
	}
	for _, ds := range datasets {
		report.Columns = append(report.Columns, ds.Dataset, ds.Dataset+countSuffix)
	}

	for idx, tag := range tags {
		var counts []int
		if !opts.SingleDataset {
			counts = append(counts, 0, 0)
		}
		for _, ds := range datasets {
			coverage, occurrences := ds.FrameTagCoverage[tag], ds.FrameTagOccurrences[tag]
			counts = append(counts, coverage, occurrences)
			if !opts.SingleDataset {
				counts[0] += coverage
				counts[1] += occurrences
			}
		}
		report.Rows = append(report.Rows, models.ReportRow{Index: idx, Tag: tag, Counts: counts})
	}

	appendTotalRow(&report)
	return report
}

func buildFrameTagValueTable(datasets []*DatasetCounters, opts Options) models.Report {
	report := models.Report{Kind: models.ReportKindFrameTagValues, Columns: []string{columnIndex, columnTag, columnTagValue}}
	report.Columns = append(report.Columns, valueCountColumns(datasets, opts, true)...)

	idx := 0
	for _, ds := range datasets {
		ds.FrameTagValueCoverage.Each(func(tag, value string, coverage int) {
			report.Rows = append(report.Rows, models.ReportRow{
				Index:   idx,
				Tag:     tag,
				Value:   value,
				Dataset: ds.Dataset,
				Counts:  []int{coverage, ds.FrameTagValueOccurrences.Get(tag, value)},
			})
			idx++
		})
	}

	appendTotalRow(&report)
	return report
}

// valueCountColumns names the count columns of the per-value reports. Those
// reports keep one row per dataset, so aggregate mode has a single total
// column group and single-dataset mode is labelled with the dataset itself.
func valueCountColumns(datasets []*DatasetCounters, opts Options, withOccurrences bool) []string {
	label := columnTotal
	if opts.SingleDataset {
		if len(datasets) == 0 {
			return nil
		}
		label = datasets[0].Dataset
	}
	if withOccurrences {
		return []string{label, label + countSuffix}
	}
	return []string{label}
}

// appendTotalRow appends the "Total" row: its index is the number of data rows
// and each count is the column-wise sum over the data rows.
func appendTotalRow(report *models.Report) {
	width := len(report.Columns) - 2
	if report.HasValueColumn() {
		width--
	}
	if width < 0 {
		width = 0
	}
	sums := make([]int, width)
	for _, row := range report.Rows {
		for i, n := range row.Counts {
			if i < width {
				sums[i] += n
			}
		}
	}
	total := models.ReportRow{Index: len(report.Rows), Tag: models.TotalLabel, Counts: sums}
	if report.HasValueColumn() {
		total.Value = models.TotalLabel
	}
	report.Rows = append(report.Rows, total)
}
