package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/database"
	"github.com/tlemarchand/shelfer/internal/filter"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/models"
)

// Options holds configuration for a crawl pass
type Options struct {
	// Limit caps how many content pages are visited; 0 means no limit.
	Limit int

	// FetchDetails visits each content page for full metadata. When false
	// only listing-level data (URL, title, thumbnail) is stored.
	FetchDetails bool

	// Force refetches details for items that already carry metadata.
	Force bool
}

// Statistics holds crawl statistics
type Statistics struct {
	PagesFetched    int
	ItemsDiscovered int
	ItemsUpserted   int
	Categories      int
	Errors          int
	Duration        time.Duration
	ErrorMessages   []string
}

// Crawler walks the content site and keeps the catalog tables current. It
// discovers items through the sitemap when one is available and falls back
// to paginating the updates listing.
type Crawler struct {
	cfg    *config.SiteConfig
	client *Client
	filter *filter.Manager
	logger *logger.Logger
	db     *gorm.DB
}

// New creates a new crawler instance
func New() (*Crawler, error) {
	cfg := config.Get()
	log := logger.AppLogger()

	db := database.Get()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	f := filter.NewManager()
	if err := f.LoadFromConfig(); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err,
		}).Warn("failed to load filters, continuing without filters")
	}

	return &Crawler{
		cfg:    &cfg.Site,
		client: NewClient(&cfg.Site, log),
		filter: f,
		logger: log,
		db:     db,
	}, nil
}

// Crawl runs one crawl pass and records it in the crawl log.
func (c *Crawler) Crawl(ctx context.Context, opts Options) (*Statistics, error) {
	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("site.base_url is not configured")
	}
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site.base_url: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"base_url":      c.cfg.BaseURL,
		"limit":         opts.Limit,
		"fetch_details": opts.FetchDetails,
	}).Info("starting crawl")

	logEntry := &models.CrawlLog{
		Action:    "crawl_site",
		Status:    "in_progress",
		StartedAt: time.Now(),
	}
	if err := c.db.Create(logEntry).Error; err != nil {
		return nil, fmt.Errorf("failed to create crawl log: %w", err)
	}

	index := c.loadSitemap(ctx, stats)

	entries := c.discoverEntries(ctx, base, index, stats)
	stats.ItemsDiscovered = len(entries)

	for i := range entries {
		if opts.Limit > 0 && stats.ItemsUpserted >= opts.Limit {
			c.logger.Info(fmt.Sprintf("reached crawl limit of %d items", opts.Limit))
			break
		}
		if err := c.upsertEntry(ctx, &entries[i], opts, stats); err != nil {
			stats.Errors++
			stats.ErrorMessages = append(stats.ErrorMessages,
				fmt.Sprintf("failed to store %s: %v", entries[i].URL, err))
		}
	}

	if index != nil {
		c.storeCategories(index.Tags, models.CategoryKindTag, stats)
		c.storeCategories(index.Models, models.CategoryKindModel, stats)
	}

	stats.Duration = time.Since(startTime)

	status := "success"
	var errMsg string
	if stats.Errors > 0 {
		status = "completed_with_errors"
		errMsg = strings.Join(stats.ErrorMessages, "; ")
	}
	c.updateCrawlLog(logEntry, status, stats, errMsg)

	c.logger.WithFields(map[string]interface{}{
		"discovered": stats.ItemsDiscovered,
		"upserted":   stats.ItemsUpserted,
		"categories": stats.Categories,
		"errors":     stats.Errors,
		"duration":   stats.Duration.String(),
	}).Info("crawl complete")

	return stats, nil
}

// loadSitemap fetches and parses the sitemap; a failure is logged and the
// crawler falls back to listing pagination.
func (c *Crawler) loadSitemap(ctx context.Context, stats *Statistics) *SitemapIndex {
	sitemapURL := strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.SitemapPath
	body, err := c.client.GetRaw(ctx, sitemapURL)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"url": sitemapURL,
		}).Warn("sitemap fetch failed, falling back to listing pagination")
		return nil
	}
	stats.PagesFetched++

	index, err := ParseSitemap(body)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"url": sitemapURL,
		}).Warn("sitemap parse failed, falling back to listing pagination")
		return nil
	}

	c.logger.WithFields(map[string]interface{}{
		"updates": len(index.Updates),
		"tags":    len(index.Tags),
		"models":  len(index.Models),
	}).Info("sitemap parsed")

	return index
}

// discoverEntries produces the content URLs to visit, either straight from
// the sitemap or by walking the paginated updates listing.
func (c *Crawler) discoverEntries(ctx context.Context, base *url.URL, index *SitemapIndex, stats *Statistics) []ListingEntry {
	if index != nil && len(index.Updates) > 0 {
		entries := make([]ListingEntry, 0, len(index.Updates))
		for _, loc := range index.Updates {
			entries = append(entries, ListingEntry{URL: loc})
		}
		return entries
	}

	listingURL := strings.TrimRight(c.cfg.BaseURL, "/") + "/updates"
	doc, err := c.client.GetDocument(ctx, listingURL)
	if err != nil {
		stats.Errors++
		stats.ErrorMessages = append(stats.ErrorMessages,
			fmt.Sprintf("failed to fetch listing %s: %v", listingURL, err))
		return nil
	}
	stats.PagesFetched++

	entries := ParseListing(doc, base)
	maxPage := MaxListingPage(doc)

	for page := 2; page <= maxPage; page++ {
		pageURL := fmt.Sprintf("%s?page=%d", listingURL, page)
		pageDoc, err := c.client.GetDocument(ctx, pageURL)
		if err != nil {
			stats.Errors++
			stats.ErrorMessages = append(stats.ErrorMessages,
				fmt.Sprintf("failed to fetch listing page %d: %v", page, err))
			continue
		}
		stats.PagesFetched++
		entries = append(entries, ParseListing(pageDoc, base)...)
	}

	return dedupeEntries(entries)
}

// upsertEntry stores one discovered item, optionally visiting its page for
// full metadata first.
func (c *Crawler) upsertEntry(ctx context.Context, entry *ListingEntry, opts Options, stats *Statistics) error {
	var item models.CatalogItem
	err := c.db.Where("source_url = ?", entry.URL).First(&item).Error
	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		return err
	}

	item.SourceURL = entry.URL
	if entry.Title != "" {
		item.Title = entry.Title
	}
	if entry.ThumbnailURL != "" {
		item.ThumbnailURL = entry.ThumbnailURL
	}

	needsDetails := opts.FetchDetails && (isNew || opts.Force || item.Description == "")

	var categories []models.Category
	if needsDetails {
		doc, err := c.client.GetDocument(ctx, entry.URL)
		if err != nil {
			return fmt.Errorf("failed to fetch content page: %w", err)
		}
		stats.PagesFetched++

		meta := ParseVideoPage(doc)
		if meta.Title != "" {
			item.Title = meta.Title
		}
		if meta.Description != "" {
			item.Description = meta.Description
		}
		if meta.ThumbnailURL != "" {
			item.ThumbnailURL = meta.ThumbnailURL
		}
		item.ReleaseDate = meta.ReleaseDate
		item.Duration = meta.Duration

		categories = c.resolveCategories(meta)
	}

	if err := c.db.Save(&item).Error; err != nil {
		return err
	}
	if len(categories) > 0 {
		if err := c.db.Model(&item).Association("Categories").Replace(categories); err != nil {
			return err
		}
	}

	stats.ItemsUpserted++
	return nil
}

// resolveCategories maps page metadata to persisted categories, creating
// missing ones and dropping names the filter rejects.
func (c *Crawler) resolveCategories(meta *PageMetadata) []models.Category {
	var categories []models.Category

	appendKind := func(names []string, kind models.CategoryKind) {
		for _, name := range names {
			if !c.filter.MatchesCategory(name) {
				continue
			}
			var cat models.Category
			err := c.db.Where("name = ? AND kind = ?", name, kind).
				FirstOrCreate(&cat, models.Category{Name: name, Kind: kind}).Error
			if err != nil {
				c.logger.WithFields(map[string]interface{}{
					"name": name,
					"kind": string(kind),
				}).Warn("failed to persist category")
				continue
			}
			categories = append(categories, cat)
		}
	}

	appendKind(meta.Tags, models.CategoryKindTag)
	appendKind(meta.Models, models.CategoryKindModel)

	return categories
}

// storeCategories persists the tag and model pages the sitemap names, so
// bucket directories exist even for categories no crawled item references.
func (c *Crawler) storeCategories(urls []string, kind models.CategoryKind, stats *Statistics) {
	for _, loc := range urls {
		name := CategoryNameFromURL(loc)
		if name == "" || !c.filter.MatchesCategory(name) {
			continue
		}
		var cat models.Category
		err := c.db.Where("name = ? AND kind = ?", name, kind).
			FirstOrCreate(&cat, models.Category{Name: name, Kind: kind, SourceURL: loc}).Error
		if err != nil {
			stats.Errors++
			stats.ErrorMessages = append(stats.ErrorMessages,
				fmt.Sprintf("failed to persist category %s: %v", name, err))
			continue
		}
		stats.Categories++
	}
}

func (c *Crawler) updateCrawlLog(logEntry *models.CrawlLog, status string, stats *Statistics, errorMsg string) {
	now := time.Now()
	logEntry.Status = status
	logEntry.ItemCount = stats.ItemsUpserted
	logEntry.CompletedAt = &now
	if errorMsg != "" {
		logEntry.ErrorMessage = &errorMsg
	}

	if err := c.db.Save(logEntry).Error; err != nil {
		c.logger.WithFields(map[string]interface{}{
			"error": err,
		}).Warn("failed to update crawl log")
	}
}

func dedupeEntries(entries []ListingEntry) []ListingEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, entry := range entries {
		if _, ok := seen[entry.URL]; ok {
			continue
		}
		seen[entry.URL] = struct{}{}
		out = append(out, entry)
	}
	return out
}
