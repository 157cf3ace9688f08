package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/benvon/video-tag-stats/internal/runs"
	"github.com/benvon/video-tag-stats/internal/workers"
	"go.uber.org/zap"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var reportTitles = map[models.ReportKind]string{
	models.ReportKindTags:           "Tags",
	models.ReportKindTagValues:      "Tag values",
	models.ReportKindFrameTags:      "Frame tags",
	models.ReportKindFrameTagValues: "Frame tag values",
}

// printResult writes the four reports, optionally followed by the video indices
func printResult(w io.Writer, result *workers.RunResult, format string, showIndex bool) error {
	switch format {
	case formatJSON:
		out := map[string]any{
			"project":          result.Project,
			"tables":           result.Tables,
			"videos_processed": result.VideosProcessed,
		}
		if len(result.FailedVideos) > 0 {
			out["failed_videos"] = result.FailedVideos
		}
		if showIndex {
			out["indices"] = result.Indices
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	case formatText:
		for i, report := range result.Tables.All() {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if err := printReport(w, report); err != nil {
				return err
			}
		}
		if len(result.FailedVideos) > 0 {
			if _, err := fmt.Fprintf(w, "\nSkipped videos: %d\n", len(result.FailedVideos)); err != nil {
				return err
			}
			for _, f := range result.FailedVideos {
				if _, err := fmt.Fprintf(w, "  %d %s: %s\n", f.Video.ID, f.Video.Name, f.Reason); err != nil {
					return err
				}
			}
		}
		if showIndex {
			if _, err := fmt.Fprintln(w, "\nVideo indices:"); err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Indices)
		}
		return nil

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printReport(w io.Writer, report *models.Report) error {
	if _, err := fmt.Fprintf(w, "%s\n", reportTitles[report.Kind]); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintln(tw, strings.Join(report.Columns, "\t")+"\t"); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(report.Cells(row), "\t")+"\t"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// logProgress reports progress on stderr whenever the percentage moves
type logProgress struct {
	logger *zap.Logger
	last   int
}

func (p *logProgress) Started(_ context.Context, total int) error {
	p.last = -1
	p.logger.Info("stats_progress_started", zap.Int("total", total))
	return nil
}

func (p *logProgress) Progress(_ context.Context, current, total int) error {
	pct := runs.Percent(current, total)
	if pct == p.last {
		return nil
	}
	p.last = pct
	p.logger.Info("stats_progress",
		zap.Int("current", current),
		zap.Int("total", total),
		zap.Int("percent", pct),
	)
	return nil
}

var _ workers.ProgressReporter = (*logProgress)(nil)
