package crawler

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// SitemapIndex holds the site URLs relevant to crawling, extracted from the
// sitemap and grouped by what they describe.
type SitemapIndex struct {
	Updates []string // individual content pages under /updates/
	Tags    []string // tag listing pages under /tags/
	Models  []string // performer listing pages under /models/
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// ParseSitemap extracts update, tag and model URLs from sitemap XML. The
// bare /updates, /tags and /models index pages are skipped; only leaf pages
// are kept. Results are deduplicated and sorted.
func ParseSitemap(data []byte) (*SitemapIndex, error) {
	var urlset sitemapURLSet
	if err := xml.Unmarshal(data, &urlset); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap XML: %w", err)
	}

	index := &SitemapIndex{}
	seen := make(map[string]struct{})

	for _, entry := range urlset.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}

		trimmed := strings.TrimRight(loc, "/")
		switch {
		case strings.Contains(loc, "/updates/") && !strings.HasSuffix(trimmed, "/updates"):
			index.Updates = append(index.Updates, loc)
		case strings.Contains(loc, "/tags/") && !strings.HasSuffix(trimmed, "/tags"):
			index.Tags = append(index.Tags, loc)
		case strings.Contains(loc, "/models/") && !strings.HasSuffix(trimmed, "/models"):
			index.Models = append(index.Models, loc)
		}
	}

	sort.Strings(index.Updates)
	sort.Strings(index.Tags)
	sort.Strings(index.Models)

	return index, nil
}

// Len returns the total number of classified URLs.
func (s *SitemapIndex) Len() int {
	return len(s.Updates) + len(s.Tags) + len(s.Models)
}
