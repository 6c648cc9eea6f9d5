package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	multiSpace      = regexp.MustCompile(`\s+`)
	multiUnderscore = regexp.MustCompile(`_+`)
)

// Key converts a title or filename stem into its canonical comparison form:
// lower-cased, every non letter/digit/space rune replaced by a space, runs of
// whitespace collapsed, ends trimmed. An empty or whitespace-only input
// yields "" and callers must treat "" as unmatchable.
func Key(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))
}

// Tokens splits a normalized key into its whitespace-separated tokens.
// Returns nil for an empty key.
func Tokens(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Fields(key)
}

// FolderName cleans a category or model name for use as a directory name.
// Characters that are invalid on common filesystems are replaced with
// underscores, runs of underscores collapsed, and leading/trailing
// underscores and spaces removed.
func FolderName(name string) string {
	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"/", "_",
		"\\", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)

	cleaned := replacer.Replace(name)
	cleaned = multiUnderscore.ReplaceAllString(cleaned, "_")
	return strings.Trim(cleaned, "_ ")
}

// FileName removes characters that cannot appear in a filename and collapses
// the resulting whitespace. Unlike FolderName it drops invalid characters
// instead of replacing them, matching the naming convention the downloader
// uses for destination files.
func FileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))
}

// TitleFromURL derives a deterministic display title from a page URL: the
// last path segment with hyphens and underscores converted to spaces,
// upper-cased. Used both as the placeholder name for items discovered
// without a title and as the disambiguated name when two items share one.
// Returns "" when the URL carries no usable path segment.
func TitleFromURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	path := trimmed
	if u, err := url.Parse(trimmed); err == nil && u.Path != "" {
		path = u.Path
	}

	// Strip query/fragment leftovers for inputs that did not parse as URLs.
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	path = strings.TrimRight(path, "/")
	segment := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		segment = path[i+1:]
	}
	if segment == "" {
		return ""
	}

	segment = strings.ReplaceAll(segment, "-", " ")
	segment = strings.ReplaceAll(segment, "_", " ")
	segment = multiSpace.ReplaceAllString(segment, " ")

	return strings.ToUpper(strings.TrimSpace(segment))
}
