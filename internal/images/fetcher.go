package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tlemarchand/shelfer/internal/circuitbreaker"
	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/retry"
)

// ErrImageSizeExceeded is returned when an image exceeds the size limit
var ErrImageSizeExceeded = fmt.Errorf("image size exceeds maximum limit")

// Fetcher downloads thumbnails and portraits referenced by catalog items.
// Writes are atomic (temp file + rename) and an existing destination is
// never replaced.
type Fetcher struct {
	cfg            *config.ImagesConfig
	logger         *logger.Logger
	httpClient     *http.Client
	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewFetcher creates a new image fetcher
func NewFetcher(cfg *config.ImagesConfig, log *logger.Logger) *Fetcher {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	retryConfig := retry.Config{
		MaxAttempts:       cfg.RetryAttempts,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}

	cbConfig := circuitbreaker.Config{
		MaxFailures:         5,
		Timeout:             60 * time.Second,
		MaxHalfOpenRequests: 1,
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}

	return &Fetcher{
		cfg:            cfg,
		logger:         log,
		httpClient:     httpClient,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}
}

// Fetch downloads rawURL to destPath. An already existing destination is
// left untouched and counts as success.
func (f *Fetcher) Fetch(rawURL, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		return nil
	}

	err := f.circuitBreaker.Execute(func() error {
		return retry.Do(context.Background(), f.retryConfig, func() error {
			return f.fetchOnce(rawURL, destPath)
		}, f.isRetryableError)
	})

	if err != nil {
		f.logger.WithFields(map[string]interface{}{
			"url":  rawURL,
			"dest": destPath,
		}).Error("image download failed", err)
		return err
	}

	f.logger.WithFields(map[string]interface{}{
		"url":  rawURL,
		"dest": destPath,
	}).Debug("image downloaded")

	return nil
}

func (f *Fetcher) fetchOnce(rawURL, destPath string) error {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		f.logger.WithFields(map[string]interface{}{
			"content_type": contentType,
			"url":          rawURL,
		}).Warn("unexpected content type, proceeding anyway")
	}

	maxSize := f.cfg.MaxSizeMB * 1024 * 1024
	if resp.ContentLength > 0 && resp.ContentLength > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d MB", ErrImageSizeExceeded, resp.ContentLength, f.cfg.MaxSizeMB)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(destPath), ".img_download_*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		tempFile.Close()
		os.Remove(tempPath)
	}()

	written, err := io.Copy(tempFile, io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if written > maxSize {
		return fmt.Errorf("%w: download exceeds %d MB", ErrImageSizeExceeded, f.cfg.MaxSizeMB)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("failed to move image into place: %w", err)
	}

	return nil
}

// isRetryableError decides whether a download error is worth retrying.
// Size violations never are.
func (f *Fetcher) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), ErrImageSizeExceeded.Error()) {
		return false
	}
	// 4xx responses won't improve with retries, except 429.
	msg := err.Error()
	if strings.Contains(msg, "HTTP error: 4") && !strings.Contains(msg, "HTTP error: 429") {
		return false
	}
	return true
}
