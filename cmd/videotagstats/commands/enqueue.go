package commands

import (
	"fmt"

	"github.com/benvon/video-tag-stats/internal/app"
	"github.com/benvon/video-tag-stats/internal/queue"
	"github.com/benvon/video-tag-stats/internal/runs"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewEnqueueCmd creates the enqueue command
func NewEnqueueCmd() *cobra.Command {
	var flags RunFlags

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a stats run for the worker",
		Long:  "Create a pending run in Redis and publish a stats_run job to RabbitMQ. Prints the run id, which the API serves at /api/v1/runs/{id}",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.cfg.RequireQueue(); err != nil {
				return err
			}
			if flags.ProjectID <= 0 {
				return fmt.Errorf("--project must be positive")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			redisClient, err := app.NewRedisClient(ctx, e.cfg.RedisURL)
			if err != nil {
				return err
			}
			defer func() { _ = redisClient.Close() }()

			jobQueue, err := app.ConnectQueue(ctx, e.cfg.RabbitMQURL, e.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := jobQueue.Close(); err != nil {
					e.logger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()

			store := runs.NewRedisStore(redisClient, e.cfg.RunResultTTL)
			run := &runs.Run{ID: uuid.New(), ProjectID: flags.ProjectID, DatasetID: flags.datasetFilter()}
			if err := store.Create(ctx, run); err != nil {
				return fmt.Errorf("failed to create run: %w", err)
			}

			job := queue.NewStatsRunJob(run.ID, run.ProjectID, run.DatasetID)
			job.TeamID = flags.TeamID
			job.WorkspaceID = flags.WorkspaceID
			if err := jobQueue.Enqueue(ctx, job); err != nil {
				_ = store.Fail(ctx, run.ID, "failed to enqueue run")
				return fmt.Errorf("failed to enqueue job: %w", err)
			}

			e.logger.Info("stats_run_enqueued",
				zap.String("run_id", run.ID.String()),
				zap.String("job_id", job.ID.String()),
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), run.ID.String())
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
