package reconcile

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/tlemarchand/shelfer/internal/errors"
	"github.com/tlemarchand/shelfer/internal/linkfarm"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/matcher"
	"github.com/tlemarchand/shelfer/internal/models"
	"github.com/tlemarchand/shelfer/internal/normalize"
	"github.com/tlemarchand/shelfer/internal/scan"
)

const (
	// UntaggedBucket is the fixed bucket for files with no category links.
	UntaggedBucket = "tag no tag"

	// SourceBucketPrefix prefixes the flat per-source-directory fallback view.
	SourceBucketPrefix = "source "
)

// Config holds reconciliation engine configuration
type Config struct {
	// OrganizeRoot is the directory the link farm is built under. It is the
	// only path the engine creates unconditionally; failure to create it
	// aborts the run.
	OrganizeRoot string

	// DryRun propagates to the link farm builder and suppresses sidecar
	// writes.
	DryRun bool
}

// SidecarWriter is asked to emit per-video sidecar files after a successful
// match. Implementations must only write what is currently absent.
type SidecarWriter interface {
	EnsureVideoSidecars(item *models.CatalogItem, videoPath string) error
}

// UnmatchedItem identifies a catalog item no file could be found for,
// surfaced for manual follow-up.
type UnmatchedItem struct {
	SourceURL     string `json:"source_url"`
	EffectiveName string `json:"effective_name"`
}

// LinkFailure records a link operation that could not be completed.
type LinkFailure struct {
	Target string `json:"target"`
	Bucket string `json:"bucket"`
	Error  string `json:"error"`
}

// Report summarizes one reconciliation run.
type Report struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	ItemsTotal   int `json:"items_total"`
	ItemsSkipped int `json:"items_skipped"`
	ItemsMatched int `json:"items_matched"`

	Unmatched []UnmatchedItem `json:"unmatched"`

	LinksCreated  int           `json:"links_created"`
	LinksExisting int           `json:"links_existing"`
	Failures      []LinkFailure `json:"failures"`

	FilesTotal    int `json:"files_total"`
	FilesUntagged int `json:"files_untagged"`

	// PerBucket counts links created this run per bucket directory.
	PerBucket map[string]int `json:"per_bucket,omitempty"`
}

// Mutations reports how many filesystem changes the run made.
func (r *Report) Mutations() int {
	return r.LinksCreated
}

// Engine reconciles a crawled catalog against a scanned file corpus and
// drives the link farm builder. Single-threaded by design: link and
// directory creation stay trivially idempotent when nothing races them.
type Engine struct {
	cfg      Config
	matcher  *matcher.Matcher
	builder  *linkfarm.Builder
	sidecars SidecarWriter
	logger   *logger.Logger
}

// New creates a new reconciliation engine. The sidecar writer may be nil
// when no sidecars are wanted (e.g. dry runs or tests).
func New(cfg Config, m *matcher.Matcher, b *linkfarm.Builder, sidecars SidecarWriter) *Engine {
	return &Engine{
		cfg:      cfg,
		matcher:  m,
		builder:  b,
		sidecars: sidecars,
		logger:   logger.AppLogger(),
	}
}

// Run processes every catalog item against the corpus and performs the
// untagged and source sweeps. A single item's failure never aborts the run;
// only an unusable organize root does.
func (e *Engine) Run(items []models.CatalogItem, corpus *scan.Corpus) (*Report, error) {
	report := &Report{
		RunID:      uuid.NewString(),
		DryRun:     e.cfg.DryRun,
		StartedAt:  time.Now().UTC(),
		FilesTotal: corpus.Len(),
		PerBucket:  make(map[string]int),
	}

	if !e.cfg.DryRun {
		if err := os.MkdirAll(e.cfg.OrganizeRoot, 0755); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSetupFailed, "cannot create organize root").
				WithContext("path", e.cfg.OrganizeRoot)
		}
	}

	usable := e.dropMalformed(items, report)
	disambiguateTitles(usable)

	for i := range usable {
		e.processItem(&usable[i], corpus, report)
	}

	e.untaggedSweep(corpus, report)
	e.sourceSweep(corpus, report)

	report.FinishedAt = time.Now().UTC()

	e.logger.WithFields(map[string]interface{}{
		"run_id":    report.RunID,
		"items":     report.ItemsTotal,
		"matched":   report.ItemsMatched,
		"unmatched": len(report.Unmatched),
		"created":   report.LinksCreated,
		"existing":  report.LinksExisting,
		"failures":  len(report.Failures),
		"dry_run":   report.DryRun,
	}).Info("reconciliation run complete")

	return report, nil
}

// dropMalformed filters out items that must never reach matching and counts
// them as skipped.
func (e *Engine) dropMalformed(items []models.CatalogItem, report *Report) []models.CatalogItem {
	report.ItemsTotal = len(items)

	usable := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.SourceURL) == "" {
			report.ItemsSkipped++
			e.logger.WithFields(map[string]interface{}{
				"title": item.Title,
			}).Warn("catalog item without source URL skipped")
			continue
		}
		usable = append(usable, item)
	}
	return usable
}

// disambiguateTitles rewrites the working title of every item whose
// case-folded title collides with another item's, deriving a replacement
// from the source URL so the group's members no longer shadow each other
// during matching or link naming.
func disambiguateTitles(items []models.CatalogItem) {
	groups := make(map[string][]int)
	for i := range items {
		title := strings.ToLower(strings.TrimSpace(items[i].Title))
		if title == "" {
			continue
		}
		groups[title] = append(groups[title], i)
	}

	for _, idxs := range groups {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			if derived := normalize.TitleFromURL(items[i].SourceURL); derived != "" {
				items[i].DisambiguatedTitle = derived
			}
		}
	}
}

func (e *Engine) processItem(item *models.CatalogItem, corpus *scan.Corpus, report *Report) {
	effective := item.EffectiveName()
	if effective == "" {
		report.Unmatched = append(report.Unmatched, UnmatchedItem{
			SourceURL:     item.SourceURL,
			EffectiveName: "",
		})
		return
	}

	key := normalize.Key(effective)
	videoPath, ok := e.matcher.Find(key, corpus.Files())
	if !ok {
		report.Unmatched = append(report.Unmatched, UnmatchedItem{
			SourceURL:     item.SourceURL,
			EffectiveName: effective,
		})
		return
	}

	report.ItemsMatched++

	buckets := e.bucketsFor(item)
	for _, bucket := range buckets {
		e.link(videoPath, bucket, report)
	}

	if e.sidecars != nil && !e.cfg.DryRun {
		if err := e.sidecars.EnsureVideoSidecars(item, videoPath); err != nil {
			e.logger.WithFields(map[string]interface{}{
				"video": videoPath,
			}).Warn("sidecar write failed")
		}
	}
}

// bucketsFor returns the bucket directory names an item links into: one per
// category, or the untagged bucket when the item carries none.
func (e *Engine) bucketsFor(item *models.CatalogItem) []string {
	if len(item.Categories) == 0 {
		return []string{UntaggedBucket}
	}

	seen := make(map[string]struct{}, len(item.Categories))
	buckets := make([]string, 0, len(item.Categories))
	for i := range item.Categories {
		dir := item.Categories[i].BucketDir()
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		buckets = append(buckets, dir)
	}
	return buckets
}

func (e *Engine) link(videoPath, bucket string, report *Report) {
	dir := filepath.Join(e.cfg.OrganizeRoot, bucket)
	res := e.builder.EnsureLink(videoPath, dir)

	switch res.Outcome {
	case linkfarm.Created, linkfarm.RenamedAndCreated:
		report.LinksCreated++
		report.PerBucket[bucket]++
	case linkfarm.AlreadyCorrect:
		report.LinksExisting++
	case linkfarm.Failed:
		report.Failures = append(report.Failures, LinkFailure{
			Target: videoPath,
			Bucket: bucket,
			Error:  res.Err.Error(),
		})
		e.logger.WithFields(map[string]interface{}{
			"target": videoPath,
			"bucket": bucket,
		}).Error("link operation failed", res.Err)
	}
}

// untaggedSweep links every corpus file that received no category link into
// the untagged bucket, so each downloaded file stays reachable from the
// organized tree even when the crawler knows nothing about it.
func (e *Engine) untaggedSweep(corpus *scan.Corpus, report *Report) {
	for _, key := range corpus.Keys() {
		if e.builder.IsTagged(key) {
			continue
		}
		report.FilesUntagged++
		path, _ := corpus.Lookup(key)
		e.link(path, UntaggedBucket, report)
	}
}

// sourceSweep links every corpus file into a flat per-source-directory
// bucket, independent of tagging.
func (e *Engine) sourceSweep(corpus *scan.Corpus, report *Report) {
	for _, key := range corpus.Keys() {
		path, _ := corpus.Lookup(key)
		bucket := SourceBucketPrefix + normalize.FolderName(filepath.Base(filepath.Dir(path)))
		e.link(path, bucket, report)
	}
}
