package sidecar

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/models"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// ImageFetcher downloads a remote image to a local path. Implementations
// must leave an existing destination file untouched.
type ImageFetcher interface {
	Fetch(rawURL, destPath string) error
}

// Config holds sidecar writer configuration
type Config struct {
	// OrganizeRoot is where model bucket directories live; actress.nfo files
	// are placed there, next to the links.
	OrganizeRoot string
}

// Writer emits metadata sidecar files for media library scrapers. Every
// write is conditional on the file being absent, so repeated runs never
// clobber user edits.
type Writer struct {
	cfg     Config
	fetcher ImageFetcher
	logger  *logger.Logger
}

// New creates a new sidecar writer. The image fetcher may be nil, in which
// case thumbnail files are skipped.
func New(cfg Config, fetcher ImageFetcher) *Writer {
	return &Writer{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger.AppLogger(),
	}
}

type movieNFO struct {
	XMLName xml.Name `xml:"movie"`

	Title     string `xml:"title"`
	Plot      string `xml:"plot,omitempty"`
	Studio    string `xml:"studio,omitempty"`
	Premiered string `xml:"premiered,omitempty"`
	Runtime   string `xml:"runtime,omitempty"`
	Thumb     string `xml:"thumb,omitempty"`

	Actors []movieActor `xml:"actor,omitempty"`
	Genres []string     `xml:"genre,omitempty"`
}

type movieActor struct {
	Name  string `xml:"name"`
	Thumb string `xml:"thumb,omitempty"`
}

type personNFO struct {
	XMLName xml.Name `xml:"person"`

	Name  string `xml:"name"`
	Type  string `xml:"type"`
	Thumb string `xml:"thumb"`
}

// EnsureVideoSidecars writes the per-video NFO and thumbnail next to the
// video file, plus an actress.nfo in each model bucket directory the item
// links into. Files that already exist are left alone.
func (w *Writer) EnsureVideoSidecars(item *models.CatalogItem, videoPath string) error {
	stem := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))

	if err := w.ensureMovieNFO(item, stem+".nfo"); err != nil {
		return err
	}

	if w.fetcher != nil && item.ThumbnailURL != "" {
		if err := w.ensureThumbnail(item.ThumbnailURL, stem+".jpg"); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"video": videoPath,
			}).Warn("thumbnail fetch failed")
		}
	}

	for i := range item.Categories {
		cat := &item.Categories[i]
		if cat.Kind != models.CategoryKindModel {
			continue
		}
		bucketDir := filepath.Join(w.cfg.OrganizeRoot, cat.BucketDir())
		if err := w.ensureActressNFO(bucketDir, cat.Name, cat.ImageURL); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"model": cat.Name,
			}).Warn("actress sidecar write failed")
		}
	}

	return nil
}

func (w *Writer) ensureMovieNFO(item *models.CatalogItem, nfoPath string) error {
	if fileExists(nfoPath) {
		return nil
	}

	nfo := movieNFO{
		Title:     item.EffectiveName(),
		Plot:      strings.TrimSpace(item.Description),
		Studio:    hostOf(item.SourceURL),
		Premiered: strings.TrimSpace(item.ReleaseDate),
		Runtime:   strings.TrimSpace(item.Duration),
		Thumb:     strings.TrimSpace(item.ThumbnailURL),
	}

	for i := range item.Categories {
		cat := &item.Categories[i]
		switch cat.Kind {
		case models.CategoryKindModel:
			nfo.Actors = append(nfo.Actors, movieActor{
				Name:  cat.Name,
				Thumb: strings.TrimSpace(cat.ImageURL),
			})
		case models.CategoryKindTag:
			nfo.Genres = append(nfo.Genres, cat.Name)
		}
	}

	return writeXML(nfoPath, nfo)
}

func (w *Writer) ensureActressNFO(bucketDir, name, portraitURL string) error {
	// Bucket directories are created lazily by the linker; a missing one
	// means the model has no links yet and gets no sidecar either.
	if info, err := os.Stat(bucketDir); err != nil || !info.IsDir() {
		return nil
	}

	nfoPath := filepath.Join(bucketDir, "actress.nfo")
	if fileExists(nfoPath) {
		return nil
	}

	nfo := personNFO{
		Name:  name,
		Type:  "Actor",
		Thumb: strings.TrimSpace(portraitURL),
	}

	if err := writeXML(nfoPath, nfo); err != nil {
		return err
	}

	if w.fetcher != nil && portraitURL != "" {
		if err := w.ensureThumbnail(portraitURL, filepath.Join(bucketDir, "folder.jpg")); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"model": name,
			}).Warn("portrait fetch failed")
		}
	}

	return nil
}

func (w *Writer) ensureThumbnail(rawURL, destPath string) error {
	if fileExists(destPath) {
		return nil
	}
	return w.fetcher.Fetch(rawURL, destPath)
}

func writeXML(path string, v interface{}) error {
	body, err := xml.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, append([]byte(xmlHeader), body...), 0644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
