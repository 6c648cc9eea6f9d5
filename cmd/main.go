package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tlemarchand/shelfer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "shelfer",
	Short: "Shelfer crawls a content site and organizes downloaded videos into a browsable library",
	Long: `Shelfer keeps a local video library in sync with a content site. It crawls
the site for titles, tags and performers, downloads missing videos, and builds
a symlink farm that groups every file by tag, performer and source directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Shelfer",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Shelfer v0.1.0")
	},
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yml)")
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(organizeCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	// Skip config loading for version command
	if len(os.Args) > 1 && os.Args[1] == "version" {
		return
	}

	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
