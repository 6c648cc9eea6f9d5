package filter

import (
	"fmt"
	"regexp"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/models"
)

// Manager decides which categories and items participate in crawling and
// organizing, based on compiled include/exclude patterns over category names.
type Manager struct {
	includePatterns []*regexp.Regexp
	excludePatterns []*regexp.Regexp
}

// NewManager creates a new filter manager with no patterns; an empty
// manager allows everything.
func NewManager() *Manager {
	return &Manager{
		includePatterns: make([]*regexp.Regexp, 0),
		excludePatterns: make([]*regexp.Regexp, 0),
	}
}

// LoadFromConfig loads and compiles category filters from configuration
func (m *Manager) LoadFromConfig() error {
	cfg := config.Get()

	for _, pattern := range cfg.Filter.IncludePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("failed to compile include pattern '%s': %w", pattern, err)
		}
		m.includePatterns = append(m.includePatterns, compiled)
	}

	for _, pattern := range cfg.Filter.ExcludePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("failed to compile exclude pattern '%s': %w", pattern, err)
		}
		m.excludePatterns = append(m.excludePatterns, compiled)
	}

	return nil
}

// MatchesCategory checks whether a single category name passes the filters.
// Exclude patterns win over include patterns; with no include patterns
// everything not excluded passes.
func (m *Manager) MatchesCategory(name string) bool {
	for _, pattern := range m.excludePatterns {
		if pattern.MatchString(name) {
			return false
		}
	}

	if len(m.includePatterns) == 0 {
		return true
	}
	for _, pattern := range m.includePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// MatchesItem checks whether an item should be processed. An item passes
// when at least one of its categories passes, or when it has no categories
// at all (those still belong in the untagged bucket).
func (m *Manager) MatchesItem(item *models.CatalogItem) bool {
	if len(item.Categories) == 0 {
		return true
	}
	for i := range item.Categories {
		if m.MatchesCategory(item.Categories[i].Name) {
			return true
		}
	}
	return false
}

// ValidatePattern validates a regex pattern
func ValidatePattern(pattern string) error {
	_, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	return nil
}

// GetPatternCount returns the number of compiled patterns
func (m *Manager) GetPatternCount() int {
	return len(m.includePatterns) + len(m.excludePatterns)
}
