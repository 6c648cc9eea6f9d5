package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/database"
	"github.com/tlemarchand/shelfer/internal/downloader"
	"github.com/tlemarchand/shelfer/internal/errors"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/models"
	"github.com/tlemarchand/shelfer/internal/shutdown"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download media files for catalog items that are still pending",
	Long: `Download every catalog item whose media file has not been fetched yet,
using the configured external downloader. Items without a manifest URL are
skipped. Downloads stop early when free disk space falls below the
configured minimum.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg := config.Get()
		logger.InitializeLoggers(cfg.GetAppLogLevel(), cfg.GetDatabaseLogLevel())
		log := logger.AppLogger()

		if err := database.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
			os.Exit(1)
		}

		handler := shutdown.New(30 * time.Second)
		handler.Register(func(ctx context.Context) error {
			return database.Close()
		})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-handler.ShutdownChan()
			cancel()
		}()

		db := database.Get()

		var items []models.CatalogItem
		query := db.Where("download_state IN ?", []models.DownloadState{
			models.DownloadStatePending,
			models.DownloadStateFailed,
		}).Where("manifest_url <> ''").Order("id")
		if limit > 0 {
			query = query.Limit(limit)
		}
		if err := query.Find(&items).Error; err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load pending items: %v\n", err)
			os.Exit(1)
		}

		if len(items) == 0 {
			fmt.Println("Nothing to download.")
			handler.Shutdown()
			return
		}

		d := downloader.New(&cfg.Downloader, &cfg.Site, cfg.Library.SourceDir, db)

		var done, skipped, failed int
	loop:
		for i := range items {
			if ctx.Err() != nil {
				log.Warn("shutdown requested, stopping downloads")
				break
			}

			result, err := d.Download(ctx, &items[i])
			switch {
			case err != nil && errors.GetErrorCode(err) == errors.CodeDiskSpace:
				fmt.Fprintf(os.Stderr, "Stopping: %v\n", err)
				failed++
				break loop
			case err != nil:
				log.Error(fmt.Sprintf("download failed: %s", items[i].SourceURL), err)
				failed++
			case result.Skipped:
				skipped++
			default:
				done++
			}
		}

		fmt.Printf("\nDownloads complete: %d fetched, %d already present, %d failed\n",
			done, skipped, failed)

		handler.Shutdown()
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	downloadCmd.Flags().Int("limit", 0, "maximum number of downloads (0 = unlimited)")
}
