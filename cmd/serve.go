package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tlemarchand/shelfer/internal/api"
	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/database"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/shutdown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Expose the catalog, run history and organize trigger over HTTP.
The server shuts down cleanly on SIGINT/SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
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

		server := api.NewServer()

		log.WithFields(map[string]interface{}{
			"port": cfg.API.Port,
		}).Info("starting API server")

		go func() {
			if err := server.Run(cfg.API.Port); err != nil {
				log.Error("API server stopped", err)
				handler.TriggerShutdown()
			}
		}()

		handler.Wait()
	},
}
