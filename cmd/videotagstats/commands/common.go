package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/video-tag-stats/internal/config"
	"github.com/benvon/video-tag-stats/internal/logger"
	"github.com/benvon/video-tag-stats/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "video-tag-stats-cli"

// RunFlags selects the project or dataset a command works on
type RunFlags struct {
	ProjectID   int64
	DatasetID   int64
	TeamID      int64
	WorkspaceID int64
}

func (f *RunFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.ProjectID, "project", 0, "project id (required)")
	cmd.Flags().Int64Var(&f.DatasetID, "dataset", 0, "restrict the run to one dataset")
	cmd.Flags().Int64Var(&f.TeamID, "team", 0, "team id, logged with the run")
	cmd.Flags().Int64Var(&f.WorkspaceID, "workspace", 0, "workspace id, logged with the run")
	_ = cmd.MarkFlagRequired("project")
}

// datasetFilter returns nil when no --dataset was given
func (f *RunFlags) datasetFilter() *int64 {
	if f.DatasetID == 0 {
		return nil
	}
	id := f.DatasetID
	return &id
}

// env is what every subcommand needs before doing work
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	shutdown func(context.Context) error
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	log, err := logger.NewCLILogger(debug || cfg.WorkerDebugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	shutdown, err := telemetry.Setup(cmd.Context(), cfg.OTELEnabled, serviceName, cfg.OTELEndpoint, log)
	if err != nil {
		log.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}

	return &env{cfg: cfg, logger: log, shutdown: shutdown}, nil
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.shutdown(ctx); err != nil {
		e.logger.Warn("failed_to_shutdown_otel_tracer", zap.Error(err))
	}
	_ = logger.Sync(e.logger)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
