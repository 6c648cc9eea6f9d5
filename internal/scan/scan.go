package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/normalize"
)

// DefaultExtensions lists the media container extensions indexed by default.
var DefaultExtensions = []string{
	".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v",
}

// Config holds scanner configuration
type Config struct {
	// Recursive walks the whole tree under the root; the default is a flat
	// single-directory scan, which is the common layout for a download
	// folder.
	Recursive bool

	// Extensions overrides the media extension allow-list. Entries are
	// matched case-insensitively and must include the leading dot.
	Extensions []string
}

// Corpus is the normalized-key to absolute-path index built from a scan.
type Corpus struct {
	files   map[string]string
	dropped int
}

// Scanner builds a Corpus from a directory of downloaded media files.
type Scanner struct {
	cfg    Config
	exts   map[string]struct{}
	logger *logger.Logger
}

// New creates a new scanner
func New(cfg Config) *Scanner {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	extSet := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	return &Scanner{
		cfg:    cfg,
		exts:   extSet,
		logger: logger.AppLogger(),
	}
}

// Scan indexes the media files under root. Filenames are reduced to
// normalized keys; when two files reduce to the same key the first one seen
// stays in the index and the later one is counted as dropped. The scan never
// mutates the filesystem and never follows links into the index (links are
// farm output, not source material).
func (s *Scanner) Scan(root string) (*Corpus, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	corpus := &Corpus{files: make(map[string]string)}

	if s.cfg.Recursive {
		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			s.index(corpus, path, d)
			return nil
		})
	} else {
		var entries []os.DirEntry
		entries, err = os.ReadDir(absRoot)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				s.index(corpus, filepath.Join(absRoot, entry.Name()), entry)
			}
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"root":    absRoot,
		"files":   len(corpus.files),
		"dropped": corpus.dropped,
	}).Info("media scan complete")

	return corpus, nil
}

func (s *Scanner) index(corpus *Corpus, path string, entry fs.DirEntry) {
	if entry.Type()&fs.ModeSymlink != 0 {
		return
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := s.exts[ext]; !ok {
		return
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	key := normalize.Key(stem)
	if key == "" {
		return
	}

	if existing, ok := corpus.files[key]; ok {
		corpus.dropped++
		s.logger.WithFields(map[string]interface{}{
			"key":  key,
			"kept": existing,
			"lost": path,
		}).Warn("duplicate normalized key, later file excluded from matching")
		return
	}

	corpus.files[key] = path
}

// Lookup returns the indexed path for a normalized key.
func (c *Corpus) Lookup(key string) (string, bool) {
	path, ok := c.files[key]
	return path, ok
}

// Files exposes the key to path index. Callers must treat it as read-only.
func (c *Corpus) Files() map[string]string {
	return c.files
}

// Keys returns the indexed keys in sorted order for deterministic iteration.
func (c *Corpus) Keys() []string {
	keys := make([]string, 0, len(c.files))
	for key := range c.files {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of indexed files.
func (c *Corpus) Len() int {
	return len(c.files)
}

// Dropped reports how many files were excluded because another file already
// claimed their normalized key.
func (c *Corpus) Dropped() int {
	return c.dropped
}
