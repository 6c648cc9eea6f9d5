package testing

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tlemarchand/shelfer/internal/models"
)

// TestDB creates an in-memory SQLite database for testing
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	if err := db.AutoMigrate(
		&models.CatalogItem{},
		&models.Category{},
		&models.CrawlLog{},
		&models.OrganizeRun{},
	); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// CleanupDB removes all records from test database tables
func CleanupDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	db.Exec("DELETE FROM catalog_item_categories")
	db.Exec("DELETE FROM catalog_items")
	db.Exec("DELETE FROM categories")
	db.Exec("DELETE FROM crawl_logs")
	db.Exec("DELETE FROM organize_runs")
}

// CreateCatalogItem creates a test catalog item
func CreateCatalogItem(db *gorm.DB, overrides ...func(*models.CatalogItem)) *models.CatalogItem {
	item := &models.CatalogItem{
		SourceURL:     fmt.Sprintf("https://content.example.com/updates/item-%d", time.Now().UnixNano()),
		Title:         "Test Scene",
		ThumbnailURL:  "https://cdn.example.com/thumb.jpg",
		DownloadState: models.DownloadStatePending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	for _, override := range overrides {
		override(item)
	}

	db.Create(item)
	return item
}

// CreateCategory creates a test category
func CreateCategory(db *gorm.DB, overrides ...func(*models.Category)) *models.Category {
	category := &models.Category{
		Name:      fmt.Sprintf("Tag %d", time.Now().UnixNano()),
		Kind:      models.CategoryKindTag,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, override := range overrides {
		override(category)
	}

	db.Create(category)
	return category
}

// WithSourceURL sets the source URL for a catalog item
func WithSourceURL(url string) func(*models.CatalogItem) {
	return func(item *models.CatalogItem) {
		item.SourceURL = url
	}
}

// WithTitle sets the title for a catalog item
func WithTitle(title string) func(*models.CatalogItem) {
	return func(item *models.CatalogItem) {
		item.Title = title
	}
}

// WithCategories attaches categories to a catalog item
func WithCategories(categories ...models.Category) func(*models.CatalogItem) {
	return func(item *models.CatalogItem) {
		item.Categories = categories
	}
}

// WithDownloadState sets the download state for a catalog item
func WithDownloadState(state models.DownloadState) func(*models.CatalogItem) {
	return func(item *models.CatalogItem) {
		item.DownloadState = state
	}
}

// WithModelKind turns a category into a performer bucket
func WithModelKind() func(*models.Category) {
	return func(category *models.Category) {
		category.Kind = models.CategoryKindModel
	}
}

// WithCategoryName sets the name for a category
func WithCategoryName(name string) func(*models.Category) {
	return func(category *models.Category) {
		category.Name = name
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", message, err)
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual[T comparable](t *testing.T, expected, actual T, message string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", message, expected, actual)
	}
}

// AssertNotNil fails the test if value is nil
func AssertNotNil(t *testing.T, value interface{}, message string) {
	t.Helper()
	if value == nil {
		t.Fatalf("%s: expected non-nil value", message)
	}
}

// AssertCount verifies the count of records in a table
func AssertCount(t *testing.T, db *gorm.DB, model interface{}, expected int64, message string) {
	t.Helper()
	var count int64
	db.Model(model).Count(&count)
	if count != expected {
		t.Fatalf("%s: expected count %d, got %d", message, expected, count)
	}
}

// TableTest represents a table-driven test case
type TableTest[T any] struct {
	Name     string
	Input    T
	Expected interface{}
	WantErr  bool
}

// RunTableTests executes table-driven tests
func RunTableTests[T any](t *testing.T, tests []TableTest[T], testFn func(t *testing.T, tc TableTest[T])) {
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			testFn(t, tc)
		})
	}
}
