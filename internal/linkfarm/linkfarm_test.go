package linkfarm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tlemarchand/shelfer/internal/errors"
)

func writeFile(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(path), 0644))
	return path
}

func TestEnsureLinkCreates(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, filepath.Join(root, "videos", "Cool Scene.mp4"))
	catDir := filepath.Join(root, "organized", "tag Bondage")

	b := New(DefaultConfig())
	res := b.EnsureLink(target, catDir)

	require.Equal(t, Created, res.Outcome)
	assert.Equal(t, filepath.Join(catDir, "Cool Scene.mp4"), res.LinkPath)

	resolved, err := filepath.EvalSymlinks(res.LinkPath)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)

	// Relative link, so the farm survives a rename of the common root.
	linkDest, err := os.Readlink(res.LinkPath)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(linkDest))

	assert.True(t, b.IsTagged("cool scene"))
}

func TestEnsureLinkIdempotent(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, filepath.Join(root, "videos", "Cool Scene.mp4"))
	catDir := filepath.Join(root, "organized", "tag Bondage")

	b := New(DefaultConfig())
	require.Equal(t, Created, b.EnsureLink(target, catDir).Outcome)

	res := b.EnsureLink(target, catDir)
	assert.Equal(t, AlreadyCorrect, res.Outcome)
	assert.False(t, res.Outcome.Mutated())

	entries, err := os.ReadDir(catDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEnsureLinkCollisionRenames(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "siteA", "Show.mp4"))
	bFile := writeFile(t, filepath.Join(root, "siteB", "Show.mp4"))
	catDir := filepath.Join(root, "organized", "tag Bondage")

	builder := New(DefaultConfig())
	require.Equal(t, Created, builder.EnsureLink(a, catDir).Outcome)

	res := builder.EnsureLink(bFile, catDir)
	require.Equal(t, RenamedAndCreated, res.Outcome)
	assert.Equal(t, filepath.Join(catDir, "Show (siteB).mp4"), res.LinkPath)

	// Two distinct entries, each resolving to its own target.
	first, err := filepath.EvalSymlinks(filepath.Join(catDir, "Show.mp4"))
	require.NoError(t, err)
	second, err := filepath.EvalSymlinks(res.LinkPath)
	require.NoError(t, err)
	assert.Equal(t, a, first)
	assert.Equal(t, bFile, second)
}

func TestEnsureLinkCollisionCounter(t *testing.T) {
	root := t.TempDir()
	catDir := filepath.Join(root, "organized", "tag x")

	builder := New(DefaultConfig())

	// Same directory name and file name, three distinct parents.
	for i, parent := range []string{"p1", "p2", "p3"} {
		inner := filepath.Join(root, parent, "site")
		target := writeFile(t, filepath.Join(inner, "Show.mp4"))
		res := builder.EnsureLink(target, catDir)
		switch i {
		case 0:
			assert.Equal(t, Created, res.Outcome)
		case 1:
			assert.Equal(t, RenamedAndCreated, res.Outcome)
			assert.Equal(t, filepath.Join(catDir, "Show (site).mp4"), res.LinkPath)
		case 2:
			assert.Equal(t, RenamedAndCreated, res.Outcome)
			assert.Equal(t, filepath.Join(catDir, "Show (site) 2.mp4"), res.LinkPath)
		}
	}
}

func TestEnsureLinkCollisionExhausted(t *testing.T) {
	root := t.TempDir()
	catDir := filepath.Join(root, "organized", "tag x")

	builder := New(Config{MaxRenameAttempts: 2, HardLinkFallback: true})

	for i := 0; i < 4; i++ {
		inner := filepath.Join(root, string(rune('a'+i)), "site")
		target := writeFile(t, filepath.Join(inner, "Show.mp4"))
		res := builder.EnsureLink(target, catDir)
		if i < 3 {
			require.NotEqual(t, Failed, res.Outcome, "attempt %d", i)
			continue
		}
		require.Equal(t, Failed, res.Outcome)
		assert.True(t, apperrors.IsLinkCollision(res.Err))
	}
}

func TestEnsureLinkLazyDirectoryCreation(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, filepath.Join(root, "videos", "Cool Scene.mp4"))
	catDir := filepath.Join(root, "organized", "tag Empty")

	b := New(Config{MaxRenameAttempts: 10, HardLinkFallback: true, DryRun: true})
	res := b.EnsureLink(target, catDir)

	assert.Equal(t, Created, res.Outcome)
	_, err := os.Stat(catDir)
	assert.True(t, os.IsNotExist(err), "dry run must not create directories")
}

func TestEnsureLinkDryRunTracksTagged(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, filepath.Join(root, "videos", "Cool Scene.mp4"))

	b := New(Config{MaxRenameAttempts: 10, HardLinkFallback: true, DryRun: true})
	b.EnsureLink(target, filepath.Join(root, "organized", "tag x"))

	assert.True(t, b.IsTagged("cool scene"))
	assert.Equal(t, 1, b.TaggedCount())
}

func TestTaggedSetSpansDirectories(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, filepath.Join(root, "videos", "Cool Scene.mp4"))

	b := New(DefaultConfig())
	b.EnsureLink(target, filepath.Join(root, "organized", "tag a"))
	b.EnsureLink(target, filepath.Join(root, "organized", "model b"))

	// One file linked into two buckets is still one tagged file.
	assert.Equal(t, 1, b.TaggedCount())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "already_correct", AlreadyCorrect.String())
	assert.Equal(t, "renamed_and_created", RenamedAndCreated.String())
	assert.Equal(t, "failed", Failed.String())
}
