package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/benvon/video-tag-stats/internal/app"
	"github.com/benvon/video-tag-stats/internal/workers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var (
		flags     RunFlags
		format    string
		showIndex bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute tag statistics for a project",
		Long:  "Compute the tag, tag value, frame tag and frame tag value reports for a project, or for one dataset with --dataset, and print them to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			src, err := app.OpenSource(ctx, e.cfg, e.logger)
			if err != nil {
				return fmt.Errorf("failed to open annotation source: %w", err)
			}
			defer func() {
				if err := src.Close(); err != nil {
					e.logger.Warn("failed_to_close_annotation_source", zap.Error(err))
				}
			}()

			runner, err := workers.NewStatsRunner(src, e.cfg.FailurePolicy, e.logger)
			if err != nil {
				return err
			}
			return runAndPrint(ctx, cmd.OutOrStdout(), runner, flags, format, showIndex, e.logger)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text or json")
	cmd.Flags().BoolVar(&showIndex, "show-index", false, "also print the videos behind every count")
	return cmd
}

func runAndPrint(ctx context.Context, w io.Writer, runner *workers.StatsRunner, flags RunFlags, format string, showIndex bool, logger *zap.Logger) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unknown output format %q", format)
	}
	result, err := runner.Run(ctx, workers.RunRequest{
		TeamID:      flags.TeamID,
		WorkspaceID: flags.WorkspaceID,
		ProjectID:   flags.ProjectID,
		DatasetID:   flags.datasetFilter(),
	}, &logProgress{logger: logger})
	if err != nil {
		return fmt.Errorf("stats run failed: %w", err)
	}
	return printResult(w, result, format, showIndex)
}
