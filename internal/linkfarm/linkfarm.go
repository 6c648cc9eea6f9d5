package linkfarm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/tlemarchand/shelfer/internal/errors"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/normalize"
)

// Outcome describes the result of a single link operation
type Outcome int

const (
	// Created means a fresh link was placed under the requested name
	Created Outcome = iota
	// AlreadyCorrect means an existing link already resolves to the target
	AlreadyCorrect
	// RenamedAndCreated means the name was taken by a different target and
	// the link was placed under a disambiguated name
	RenamedAndCreated
	// Failed means no link exists for the target in the category directory
	Failed
)

// String returns a human-readable representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyCorrect:
		return "already_correct"
	case RenamedAndCreated:
		return "renamed_and_created"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mutated reports whether the outcome changed the filesystem.
func (o Outcome) Mutated() bool {
	return o == Created || o == RenamedAndCreated
}

// Result carries the outcome of EnsureLink along with the final link path
// and the error for failed operations.
type Result struct {
	Outcome  Outcome
	LinkPath string
	Err      error
}

// Config holds link farm builder configuration
type Config struct {
	// MaxRenameAttempts bounds the numeric-counter search when a link name
	// collides with a different target.
	MaxRenameAttempts int

	// HardLinkFallback creates a hard link when the filesystem rejects
	// symlink creation.
	HardLinkFallback bool

	// DryRun reports what would happen without touching the filesystem.
	DryRun bool
}

// DefaultConfig returns sensible defaults for the link farm builder
func DefaultConfig() Config {
	return Config{
		MaxRenameAttempts: 10,
		HardLinkFallback:  true,
	}
}

// Builder places collision-safe links to real media files into category
// directories and tracks which source files have been linked anywhere.
//
// A single builder instance is meant to drive one organize run; it is not
// safe for concurrent use.
type Builder struct {
	cfg    Config
	tagged map[string]struct{}
	logger *logger.Logger
}

// New creates a new link farm builder
func New(cfg Config) *Builder {
	if cfg.MaxRenameAttempts <= 0 {
		cfg.MaxRenameAttempts = DefaultConfig().MaxRenameAttempts
	}
	return &Builder{
		cfg:    cfg,
		tagged: make(map[string]struct{}),
		logger: logger.AppLogger(),
	}
}

// EnsureLink guarantees that categoryDir contains a link resolving to
// targetAbs. The candidate name is the target's base name; when that name is
// held by a link to a different file, a source-folder tag and then a numeric
// counter disambiguate. Directories are created lazily, on the first link
// that lands in them. Successful outcomes record the target in the tagged
// set regardless of which directory the link went to.
func (b *Builder) EnsureLink(targetAbs, categoryDir string) Result {
	base := filepath.Base(targetAbs)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	sourceDir := filepath.Base(filepath.Dir(targetAbs))

	renamed := false
	for attempt := 0; attempt <= b.cfg.MaxRenameAttempts; attempt++ {
		var name string
		switch attempt {
		case 0:
			name = base
		case 1:
			name = fmt.Sprintf("%s (%s)%s", stem, sourceDir, ext)
			renamed = true
		default:
			name = fmt.Sprintf("%s (%s) %d%s", stem, sourceDir, attempt, ext)
			renamed = true
		}

		linkPath := filepath.Join(categoryDir, name)

		fi, err := os.Lstat(linkPath)
		if os.IsNotExist(err) {
			if err := b.create(targetAbs, linkPath, categoryDir); err != nil {
				return Result{Outcome: Failed, LinkPath: linkPath, Err: err}
			}
			b.markTagged(targetAbs)
			outcome := Created
			if renamed {
				outcome = RenamedAndCreated
			}
			return Result{Outcome: outcome, LinkPath: linkPath}
		}
		if err != nil {
			return Result{Outcome: Failed, LinkPath: linkPath, Err: apperrors.FilesystemError(linkPath, err)}
		}

		if b.resolvesTo(linkPath, fi, targetAbs) {
			b.markTagged(targetAbs)
			return Result{Outcome: AlreadyCorrect, LinkPath: linkPath}
		}
		// Occupied by a different target; try the next candidate name.
	}

	err := apperrors.LinkCollisionError(categoryDir, base)
	b.logger.WithFields(map[string]interface{}{
		"target": targetAbs,
		"dir":    categoryDir,
	}).Error("link name collision attempts exhausted", err)

	return Result{Outcome: Failed, Err: err}
}

// create places the link at linkPath, creating categoryDir on demand.
func (b *Builder) create(targetAbs, linkPath, categoryDir string) error {
	if b.cfg.DryRun {
		return nil
	}

	if err := os.MkdirAll(categoryDir, 0755); err != nil {
		return apperrors.FilesystemError(categoryDir, err)
	}

	rel, err := filepath.Rel(categoryDir, targetAbs)
	if err != nil {
		// Different volume roots; fall back to an absolute link target.
		rel = targetAbs
	}

	if err := os.Symlink(rel, linkPath); err != nil {
		if !b.cfg.HardLinkFallback {
			return apperrors.FilesystemError(linkPath, err)
		}
		if linkErr := os.Link(targetAbs, linkPath); linkErr != nil {
			return apperrors.FilesystemError(linkPath, linkErr)
		}
	}

	return nil
}

// resolvesTo reports whether the entry at linkPath refers to targetAbs.
func (b *Builder) resolvesTo(linkPath string, fi os.FileInfo, targetAbs string) bool {
	resolved, err := filepath.EvalSymlinks(linkPath)
	if err != nil {
		// Dangling link or unreadable entry: treat as occupied by a
		// different target so the caller renames instead of overwriting.
		return false
	}

	wanted, err := filepath.EvalSymlinks(targetAbs)
	if err != nil {
		wanted = targetAbs
	}

	if resolved == wanted {
		return true
	}

	// Hard links resolve to themselves; compare identity via os.SameFile.
	if fi.Mode().IsRegular() {
		ti, err := os.Stat(targetAbs)
		if err == nil {
			li, err := os.Stat(linkPath)
			if err == nil && os.SameFile(ti, li) {
				return true
			}
		}
	}

	return false
}

func (b *Builder) markTagged(targetAbs string) {
	base := filepath.Base(targetAbs)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if key := normalize.Key(stem); key != "" {
		b.tagged[key] = struct{}{}
	}
}

// IsTagged reports whether the file with the given normalized key received
// at least one link during this run.
func (b *Builder) IsTagged(key string) bool {
	_, ok := b.tagged[key]
	return ok
}

// TaggedCount returns the number of distinct source files linked so far.
func (b *Builder) TaggedCount() int {
	return len(b.tagged)
}
