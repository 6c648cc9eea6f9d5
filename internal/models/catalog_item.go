package models

import (
	"strings"
	"time"

	"github.com/tlemarchand/shelfer/internal/normalize"
)

// CategoryKind distinguishes tag buckets from performer buckets
type CategoryKind string

const (
	CategoryKindTag   CategoryKind = "tag"
	CategoryKindModel CategoryKind = "model"
)

// DownloadState tracks whether an item's media file has been fetched
type DownloadState string

const (
	DownloadStatePending    DownloadState = "pending"
	DownloadStateDownloaded DownloadState = "downloaded"
	DownloadStateFailed     DownloadState = "failed"
)

// CatalogItem represents one discovered content page. Items are created by a
// crawl pass and treated as immutable by the organizer within a run; the
// disambiguated title is the only field the engine fills in afterwards, and
// only when two items collide on the same case-folded title.
type CatalogItem struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	SourceURL          string        `gorm:"type:text;not null;uniqueIndex:idx_catalog_items_url" json:"source_url"`
	Title              string        `gorm:"type:varchar(512)" json:"title"`
	DisambiguatedTitle string        `gorm:"type:varchar(512)" json:"disambiguated_title,omitempty"`
	ThumbnailURL       string        `gorm:"type:text" json:"thumbnail_url,omitempty"`
	Description        string        `gorm:"type:text" json:"description,omitempty"`
	ReleaseDate        string        `gorm:"type:varchar(32)" json:"release_date,omitempty"`
	Duration           string        `gorm:"type:varchar(32)" json:"duration,omitempty"`
	ManifestURL        string        `gorm:"type:text" json:"manifest_url,omitempty"`
	DownloadState      DownloadState `gorm:"type:varchar(20);not null;default:pending" json:"download_state"`
	CreatedAt          time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null" json:"updated_at"`

	// Associations
	Categories []Category `gorm:"many2many:catalog_item_categories" json:"categories,omitempty"`
}

// TableName specifies the table name for CatalogItem
func (CatalogItem) TableName() string {
	return "catalog_items"
}

// EffectiveName returns the name used for matching and link naming: the
// disambiguated title when set, otherwise the crawled title, otherwise a
// deterministic placeholder derived from the source URL. The result is ""
// only when even the URL yields nothing usable; such items are unmatchable.
func (ci *CatalogItem) EffectiveName() string {
	if name := strings.TrimSpace(ci.DisambiguatedTitle); name != "" {
		return name
	}
	if name := strings.TrimSpace(ci.Title); name != "" {
		return name
	}
	return normalize.TitleFromURL(ci.SourceURL)
}

// CategoryNames returns the unique category names on the item, trimmed, in
// association order.
func (ci *CatalogItem) CategoryNames() []string {
	seen := make(map[string]struct{}, len(ci.Categories))
	names := make([]string, 0, len(ci.Categories))
	for _, cat := range ci.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			continue
		}
		folded := strings.ToLower(name)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Category represents a tag or performer bucket discovered on the site
type Category struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_name_kind" json:"name"`
	Kind      CategoryKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_categories_name_kind" json:"kind"`
	SourceURL string       `gorm:"type:text" json:"source_url,omitempty"`
	ImageURL  string       `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`

	// Associations
	Items []CatalogItem `gorm:"many2many:catalog_item_categories" json:"items,omitempty"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// BucketDir returns the category's directory name inside the organize root,
// e.g. "tag Bondage" or "model Jane Doe".
func (c *Category) BucketDir() string {
	return string(c.Kind) + " " + normalize.FolderName(c.Name)
}
