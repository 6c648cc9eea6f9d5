package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tlemarchand/shelfer/internal/logger"
)

const defaultRetentionHours = 24

// staleSuffixes are the in-flight artifacts yt-dlp leaves behind when a
// download is interrupted.
var staleSuffixes = []string{".part", ".ytdl", ".tmp"}

// CleanupOptions holds configuration for stale artifact cleanup
type CleanupOptions struct {
	Dir            string
	RetentionHours int
	DryRun         bool
}

// CleanupStaleArtifacts removes interrupted download leftovers older than
// the retention period. Recent artifacts are kept so a rerun can resume
// them.
func CleanupStaleArtifacts(opts CleanupOptions) error {
	log := logger.AppLogger()

	if opts.RetentionHours == 0 {
		opts.RetentionHours = defaultRetentionHours
	}
	cutoffTime := time.Now().Add(-time.Duration(opts.RetentionHours) * time.Hour)

	log.Info(fmt.Sprintf("Scanning for stale download artifacts in: %s", opts.Dir))

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return fmt.Errorf("failed to read download directory: %w", err)
	}

	var removed, skipped int
	for _, entry := range entries {
		if entry.IsDir() || !isStaleArtifact(entry.Name()) {
			continue
		}

		path := filepath.Join(opts.Dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			log.Warn(fmt.Sprintf("Failed to stat %s: %v", path, err))
			continue
		}

		if info.ModTime().After(cutoffTime) {
			skipped++
			continue
		}

		if opts.DryRun {
			log.Info(fmt.Sprintf("[DRY RUN] Would remove: %s (age: %s)",
				path, time.Since(info.ModTime()).Round(time.Hour)))
			removed++
			continue
		}

		if err := os.Remove(path); err != nil {
			log.Error(fmt.Sprintf("Failed to remove %s", path), err)
		} else {
			log.Info(fmt.Sprintf("Removed stale artifact: %s (age: %s)",
				path, time.Since(info.ModTime()).Round(time.Hour)))
			removed++
		}
	}

	log.Info(fmt.Sprintf("Cleanup complete: %d removed, %d skipped (too recent)", removed, skipped))
	return nil
}

func isStaleArtifact(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, ".part-frag") {
		return true
	}
	for _, suffix := range staleSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
