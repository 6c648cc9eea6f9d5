package crawler

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListingEntry is one content link discovered on a listing page.
type ListingEntry struct {
	URL          string
	Title        string
	ThumbnailURL string
}

// PageMetadata holds everything extracted from a single content page.
type PageMetadata struct {
	Title        string
	Description  string
	ThumbnailURL string
	ReleaseDate  string
	Duration     string
	Models       []string
	Tags         []string
}

var pageNumberPattern = regexp.MustCompile(`(?:[?&]page=|/page/)(\d+)`)

// ParseListing extracts content links from a listing page. Relative hrefs
// are resolved against base; links to the bare updates index are ignored.
func ParseListing(doc *goquery.Document, base *url.URL) []ListingEntry {
	var entries []ListingEntry
	seen := make(map[string]struct{})

	doc.Find("div.videoBlock").Each(func(_ int, block *goquery.Selection) {
		link := block.Find("a[href*='/updates/']").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == "" || strings.HasSuffix(strings.TrimRight(resolved, "/"), "/updates") {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}

		title := strings.TrimSpace(block.Find("h3").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}

		thumb, _ := block.Find("div.videoPic img").First().Attr("src")

		entries = append(entries, ListingEntry{
			URL:          resolved,
			Title:        title,
			ThumbnailURL: resolveURL(base, thumb),
		})
	})

	// Some layouts put links outside videoBlock containers; catch those too.
	doc.Find("a[href*='/updates/']").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" || strings.HasSuffix(strings.TrimRight(resolved, "/"), "/updates") {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		entries = append(entries, ListingEntry{
			URL:   resolved,
			Title: strings.TrimSpace(link.Text()),
		})
	})

	return entries
}

// MaxListingPage inspects pagination links and returns the highest page
// number found, or 1 when the page carries no pagination.
func MaxListingPage(doc *goquery.Document) int {
	maxPage := 1

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if m := pageNumberPattern.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
				maxPage = n
			}
		}
		// Numeric link text covers pagers whose hrefs hide the page number.
		if n, err := strconv.Atoi(strings.TrimSpace(link.Text())); err == nil && n > maxPage {
			if pageNumberPattern.MatchString(href) || strings.Contains(href, "page") {
				maxPage = n
			}
		}
	})

	return maxPage
}

// ParseVideoPage extracts metadata from a single content page.
func ParseVideoPage(doc *goquery.Document) *PageMetadata {
	meta := &PageMetadata{}

	meta.Title = strings.ToUpper(strings.TrimSpace(doc.Find("h1").First().Text()))

	if thumb, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		meta.ThumbnailURL = strings.TrimSpace(thumb)
	} else if poster, ok := doc.Find("iframe[poster]").Attr("poster"); ok {
		meta.ThumbnailURL = strings.TrimSpace(poster)
	}

	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	} else {
		meta.Description = strings.TrimSpace(doc.Find(".videoDescription p").First().Text())
	}

	doc.Find(".models a, a[href*='/models/']").Each(func(_ int, link *goquery.Selection) {
		name := strings.TrimSpace(link.Text())
		if name != "" && !containsFold(meta.Models, name) {
			meta.Models = append(meta.Models, name)
		}
	})

	doc.Find(".tags a, a[href*='/tags/']").Each(func(_ int, link *goquery.Selection) {
		name := strings.TrimSpace(link.Text())
		// "updates" shows up as a pseudo-tag on some pages; it is navigation,
		// not a category.
		if name == "" || strings.EqualFold(name, "updates") {
			return
		}
		if !containsFold(meta.Tags, name) {
			meta.Tags = append(meta.Tags, name)
		}
	})

	doc.Find(".contentInfo li, .video-info li, .details li").Each(func(_ int, item *goquery.Selection) {
		text := strings.TrimSpace(item.Text())
		parts := strings.SplitN(text, ":", 2)
		if len(parts) != 2 {
			return
		}
		value := strings.TrimSpace(parts[1])
		switch {
		case strings.EqualFold(strings.TrimSpace(parts[0]), "duration"):
			meta.Duration = value
		case strings.EqualFold(strings.TrimSpace(parts[0]), "date"):
			meta.ReleaseDate = value
		}
	})

	return meta
}

// CategoryNameFromURL derives a display name from a tag or model page URL,
// e.g. ".../tags/rope-bondage" becomes "Rope Bondage".
func CategoryNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segment := strings.Trim(u.Path, "/")
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	segment = strings.ReplaceAll(segment, "-", " ")
	segment = strings.ReplaceAll(segment, "_", " ")

	words := strings.Fields(segment)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
