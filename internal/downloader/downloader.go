package downloader

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/tlemarchand/shelfer/internal/config"
	apperrors "github.com/tlemarchand/shelfer/internal/errors"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/models"
	"github.com/tlemarchand/shelfer/internal/normalize"
)

// Result summarizes one download attempt
type Result struct {
	DestPath string
	Skipped  bool
	Duration time.Duration
}

// Downloader fetches media files through an external yt-dlp process. The
// binary handles segmented manifests and resumption; this wrapper decides
// the destination name, guards disk space and tracks state in the catalog.
type Downloader struct {
	cfg     *config.DownloaderConfig
	site    *config.SiteConfig
	destDir string
	logger  *logger.Logger
	db      *gorm.DB
}

// New creates a new downloader writing into destDir. The db handle may be
// nil; download state tracking is then skipped.
func New(cfg *config.DownloaderConfig, site *config.SiteConfig, destDir string, db *gorm.DB) *Downloader {
	return &Downloader{
		cfg:     cfg,
		site:    site,
		destDir: destDir,
		logger:  logger.AppLogger(),
		db:      db,
	}
}

// Download fetches the item's media file. Items whose destination already
// exists are skipped; items without a manifest URL fail immediately.
func (d *Downloader) Download(ctx context.Context, item *models.CatalogItem) (*Result, error) {
	if item.ManifestURL == "" {
		return nil, apperrors.DownloaderError("catalog item has no manifest URL", nil).
			WithContext("source_url", item.SourceURL)
	}

	baseName := normalize.FileName(item.EffectiveName())
	if baseName == "" {
		return nil, apperrors.DownloaderError("catalog item yields no usable file name", nil).
			WithContext("source_url", item.SourceURL)
	}

	if existing := d.findExisting(baseName); existing != "" {
		d.logger.WithFields(map[string]interface{}{
			"path": existing,
		}).Info("download skipped, file already present")
		return &Result{DestPath: existing, Skipped: true}, nil
	}

	if err := EnsureMinFree(d.destDir, d.cfg.MinFreeGB); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(d.destDir, 0755); err != nil {
		return nil, apperrors.FilesystemError(d.destDir, err)
	}

	startTime := time.Now()
	if err := d.runYtDlp(ctx, item.ManifestURL, baseName); err != nil {
		d.setState(item, models.DownloadStateFailed)
		return nil, err
	}

	dest := d.findExisting(baseName)
	if dest == "" {
		d.setState(item, models.DownloadStateFailed)
		return nil, apperrors.DownloaderError("downloader exited cleanly but produced no file", nil).
			WithContext("base_name", baseName)
	}

	d.setState(item, models.DownloadStateDownloaded)

	result := &Result{DestPath: dest, Duration: time.Since(startTime)}
	d.logger.WithFields(map[string]interface{}{
		"path":     dest,
		"duration": result.Duration.String(),
	}).Info("download complete")

	return result, nil
}

// runYtDlp shells out to the configured binary. Output is inherited so
// progress stays visible on the terminal.
func (d *Downloader) runYtDlp(ctx context.Context, manifestURL, baseName string) error {
	timeout := time.Duration(d.cfg.TimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := []string{
		"--concurrent-fragments", "8",
		"--fragment-retries", "1",
		"--abort-on-error",
	}
	if d.site.BaseURL != "" {
		args = append(args, "--referer", d.site.BaseURL)
	}
	if d.site.SessionCookie != "" {
		args = append(args, "--add-header", "Cookie:"+d.site.SessionCookie)
	}
	args = append(args,
		"-o", filepath.Join(d.destDir, baseName+".%(ext)s"),
		manifestURL,
	)

	cmd := exec.CommandContext(ctx, d.cfg.Binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	d.logger.WithFields(map[string]interface{}{
		"binary": d.cfg.Binary,
		"name":   baseName,
	}).Info("starting download")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.DownloaderError("download timed out", ctx.Err()).
				WithContext("manifest_url", manifestURL)
		}
		return apperrors.DownloaderError("downloader process failed", err).
			WithContext("manifest_url", manifestURL)
	}
	return nil
}

// findExisting returns the path of an already downloaded file for baseName,
// regardless of which extension the downloader picked.
func (d *Downloader) findExisting(baseName string) string {
	matches, err := filepath.Glob(filepath.Join(d.destDir, baseName+".*"))
	if err != nil {
		return ""
	}
	for _, match := range matches {
		ext := filepath.Ext(match)
		// In-flight artifacts are not finished downloads.
		if ext == ".part" || ext == ".ytdl" || ext == ".tmp" {
			continue
		}
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			return match
		}
	}
	return ""
}

func (d *Downloader) setState(item *models.CatalogItem, state models.DownloadState) {
	item.DownloadState = state
	if d.db == nil || item.ID == 0 {
		return
	}
	if err := d.db.Model(item).Update("download_state", state).Error; err != nil {
		d.logger.WithFields(map[string]interface{}{
			"source_url": item.SourceURL,
		}).Warn("failed to persist download state")
	}
}
