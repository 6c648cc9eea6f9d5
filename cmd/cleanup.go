package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/downloader"
	"github.com/tlemarchand/shelfer/internal/logger"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale download artifacts from the source directory",
	Long: `Scan the source directory and remove partial download artifacts
(.part, .ytdl and fragment files) older than the retention period
(default: 24 hours).

Stale artifacts accumulate when downloads are interrupted. Recent ones are
kept so a rerun can resume them.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		retentionHours, _ := cmd.Flags().GetInt("retention-hours")

		cfg := config.Get()
		logger.InitializeLoggers(cfg.GetAppLogLevel(), cfg.GetDatabaseLogLevel())

		fmt.Println("=== Download Artifact Cleanup ===")
		if dryRun {
			fmt.Println("Mode: DRY RUN (no files will be deleted)")
		}
		fmt.Printf("Directory: %s\n", cfg.Library.SourceDir)
		fmt.Printf("Retention: %d hours\n\n", retentionHours)

		err := downloader.CleanupStaleArtifacts(downloader.CleanupOptions{
			Dir:            cfg.Library.SourceDir,
			RetentionHours: retentionHours,
			DryRun:         dryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during cleanup: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("\nCleanup complete!")
	},
}

func init() {
	cleanupCmd.Flags().Bool("dry-run", false, "show what would be deleted without deleting")
	cleanupCmd.Flags().Int("retention-hours", 24, "keep artifacts newer than this many hours")
}
