package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/video-tag-stats/internal/app"
	"github.com/benvon/video-tag-stats/internal/validation"
	"github.com/benvon/video-tag-stats/internal/watch"
	"github.com/benvon/video-tag-stats/internal/workers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	var (
		flags     RunFlags
		format    string
		showIndex bool
		debounce  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recompute statistics whenever the project dump changes",
		Long:  "Run once, then re-read SOURCE_PATH and print fresh reports after every change. Requires SOURCE_KIND=file",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if e.cfg.SourceKind != validation.SourceKindFile {
				return fmt.Errorf("watch requires SOURCE_KIND=%s", validation.SourceKindFile)
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			src, err := app.OpenSource(ctx, e.cfg, e.logger)
			if err != nil {
				return fmt.Errorf("failed to open annotation source: %w", err)
			}
			defer func() { _ = src.Close() }()

			runner, err := workers.NewStatsRunner(src, e.cfg.FailurePolicy, e.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rerun := func(ctx context.Context) error {
				return runAndPrint(ctx, out, runner, flags, format, showIndex, e.logger)
			}
			if err := rerun(ctx); err != nil {
				e.logger.Error("initial_stats_run_failed", zap.Error(err))
			}

			w := watch.New(src.File.Path(), debounce, func(ctx context.Context) error {
				if err := src.File.Reload(); err != nil {
					return err
				}
				return rerun(ctx)
			}, e.logger)
			return w.Run(ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text or json")
	cmd.Flags().BoolVar(&showIndex, "show-index", false, "also print the videos behind every count")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before rerunning after a change")
	return cmd
}
