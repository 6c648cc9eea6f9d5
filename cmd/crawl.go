package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/crawler"
	"github.com/tlemarchand/shelfer/internal/database"
	"github.com/tlemarchand/shelfer/internal/logger"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the content site and refresh the catalog",
	Long: `Crawl the configured site, starting from its sitemap when one is
available and falling back to paginating the updates listing. Discovered
items, tags and performers are stored in the catalog database.

Use --details to also visit each content page for full metadata
(description, duration, tags, performers).`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		details, _ := cmd.Flags().GetBool("details")
		force, _ := cmd.Flags().GetBool("force")

		cfg := config.Get()
		logger.InitializeLoggers(cfg.GetAppLogLevel(), cfg.GetDatabaseLogLevel())

		if err := database.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		defer database.Close()

		c, err := crawler.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create crawler: %v\n", err)
			os.Exit(1)
		}

		stats, err := c.Crawl(context.Background(), crawler.Options{
			Limit:        limit,
			FetchDetails: details,
			Force:        force,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crawl failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nCrawl complete:\n")
		fmt.Printf("  Pages fetched:   %d\n", stats.PagesFetched)
		fmt.Printf("  Items found:     %d\n", stats.ItemsDiscovered)
		fmt.Printf("  Items stored:    %d\n", stats.ItemsUpserted)
		fmt.Printf("  Categories:      %d\n", stats.Categories)
		fmt.Printf("  Errors:          %d\n", stats.Errors)
		fmt.Printf("  Duration:        %s\n", stats.Duration.Round(time.Millisecond))

		if stats.Errors > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	crawlCmd.Flags().Int("limit", 0, "maximum number of items to store (0 = unlimited)")
	crawlCmd.Flags().Bool("details", false, "visit each content page for full metadata")
	crawlCmd.Flags().Bool("force", false, "refetch details for items that already have metadata")
}
