package main

import (
	"fmt"
	"os"

	"github.com/benvon/video-tag-stats/cmd/videotagstats/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "videotagstats",
		Short:         "Tag usage statistics for video annotation projects",
		Long:          "CLI tool for computing per-dataset tag and frame tag statistics of a video project, locally or through the worker queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(commands.NewRunCmd())
	rootCmd.AddCommand(commands.NewEnqueueCmd())
	rootCmd.AddCommand(commands.NewWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
