package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/database"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/reconcile"
)

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Build the organized link farm from the catalog and source directory",
	Long: `Match every catalog item against the files in the source directory and
build the organized view: one symlink per tag and performer bucket, an
untagged bucket for files the catalog knows nothing about, and a flat
per-source-directory view.

The operation is idempotent; links that already point at the right file are
left alone. Use --dry-run to preview without touching the filesystem.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg := config.Get()
		logger.InitializeLoggers(cfg.GetAppLogLevel(), cfg.GetDatabaseLogLevel())

		if err := database.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		defer database.Close()

		report, err := reconcile.RunFromConfig(database.Get(), dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Organize failed: %v\n", err)
			os.Exit(1)
		}

		printReport(report)

		if len(report.Failures) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	organizeCmd.Flags().Bool("dry-run", false, "preview without creating links or sidecars")
}

func printReport(report *reconcile.Report) {
	if report.DryRun {
		fmt.Println("\nMode: DRY RUN (no filesystem changes were made)")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Run ID", report.RunID},
		{"Catalog items", report.ItemsTotal},
		{"Matched", report.ItemsMatched},
		{"Unmatched", len(report.Unmatched)},
		{"Skipped (malformed)", report.ItemsSkipped},
		{"Files scanned", report.FilesTotal},
		{"Files untagged", report.FilesUntagged},
		{"Links created", report.LinksCreated},
		{"Links already correct", report.LinksExisting},
		{"Link failures", len(report.Failures)},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	tw.Render()

	if len(report.PerBucket) > 0 {
		buckets := make([]string, 0, len(report.PerBucket))
		for bucket := range report.PerBucket {
			buckets = append(buckets, bucket)
		}
		sort.Strings(buckets)

		bt := table.NewWriter()
		bt.SetOutputMirror(os.Stdout)
		bt.SetStyle(table.StyleRounded)
		bt.AppendHeader(table.Row{"Bucket", "New links"})
		for _, bucket := range buckets {
			bt.AppendRow(table.Row{bucket, strconv.Itoa(report.PerBucket[bucket])})
		}
		bt.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
		})
		bt.Render()
	}

	if len(report.Unmatched) > 0 {
		fmt.Printf("\nUnmatched items (%d):\n", len(report.Unmatched))
		for _, u := range report.Unmatched {
			fmt.Printf("  %s  (%s)\n", u.EffectiveName, u.SourceURL)
		}
	}

	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "link failure: %s -> %s: %s\n", f.Target, f.Bucket, f.Error)
	}
}
