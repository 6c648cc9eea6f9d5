package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlemarchand/shelfer/internal/linkfarm"
	"github.com/tlemarchand/shelfer/internal/matcher"
	"github.com/tlemarchand/shelfer/internal/models"
	"github.com/tlemarchand/shelfer/internal/scan"
)

func writeVideo(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("v"), 0644))
	return path
}

func newEngine(t *testing.T, organizeRoot string) *Engine {
	t.Helper()
	return New(
		Config{OrganizeRoot: organizeRoot},
		matcher.New(matcher.DefaultConfig()),
		linkfarm.New(linkfarm.DefaultConfig()),
		nil,
	)
}

func scanDir(t *testing.T, dir string) *scan.Corpus {
	t.Helper()
	corpus, err := scan.New(scan.Config{}).Scan(dir)
	require.NoError(t, err)
	return corpus
}

func TestRunScenarioTagAndSource(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	writeVideo(t, filepath.Join(videos, "Cool Scene.mp4"))
	organize := filepath.Join(root, "organized")

	items := []models.CatalogItem{
		{
			SourceURL:  "https://x/updates/a",
			Title:      "Cool Scene",
			Categories: []models.Category{{Name: "Bondage", Kind: models.CategoryKindTag}},
		},
	}

	report, err := newEngine(t, organize).Run(items, scanDir(t, videos))
	require.NoError(t, err)

	assert.Equal(t, 1, report.ItemsMatched)
	assert.Empty(t, report.Unmatched)

	tagLink := filepath.Join(organize, "tag Bondage", "Cool Scene.mp4")
	resolved, err := filepath.EvalSymlinks(tagLink)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(videos, "Cool Scene.mp4"), resolved)

	// Source sweep places the flat fallback view.
	srcLink := filepath.Join(organize, "source videos", "Cool Scene.mp4")
	_, err = os.Lstat(srcLink)
	assert.NoError(t, err)
}

func TestRunIdempotent(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	writeVideo(t, filepath.Join(videos, "Cool Scene.mp4"))
	writeVideo(t, filepath.Join(videos, "Other Clip.mp4"))
	organize := filepath.Join(root, "organized")

	items := []models.CatalogItem{
		{
			SourceURL:  "https://x/updates/a",
			Title:      "Cool Scene",
			Categories: []models.Category{{Name: "Bondage", Kind: models.CategoryKindTag}},
		},
	}

	corpus := scanDir(t, videos)

	first, err := newEngine(t, organize).Run(items, corpus)
	require.NoError(t, err)
	assert.Greater(t, first.Mutations(), 0)

	second, err := newEngine(t, organize).Run(items, corpus)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Mutations(), "second run must not mutate the filesystem")
	assert.Equal(t, first.LinksCreated, second.LinksExisting)
	assert.Empty(t, second.Failures)
}

func TestRunDuplicateTitlesDisambiguated(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos") // empty corpus
	require.NoError(t, os.MkdirAll(videos, 0755))
	organize := filepath.Join(root, "organized")

	items := []models.CatalogItem{
		{SourceURL: "https://x/updates/a", Title: "X"},
		{SourceURL: "https://x/updates/b", Title: "X"},
	}

	report, err := newEngine(t, organize).Run(items, scanDir(t, videos))
	require.NoError(t, err)

	require.Len(t, report.Unmatched, 2)
	names := map[string]bool{}
	for _, u := range report.Unmatched {
		require.NotEmpty(t, u.EffectiveName)
		names[u.EffectiveName] = true
	}
	assert.Len(t, names, 2, "duplicate titles must end up with distinct effective names")
	assert.True(t, names["A"])
	assert.True(t, names["B"])
}

func TestRunUntaggedCompleteness(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	writeVideo(t, filepath.Join(videos, "Cool Scene.mp4"))
	writeVideo(t, filepath.Join(videos, "Orphan File.mp4"))
	organize := filepath.Join(root, "organized")

	items := []models.CatalogItem{
		{
			SourceURL:  "https://x/updates/a",
			Title:      "Cool Scene",
			Categories: []models.Category{{Name: "Bondage", Kind: models.CategoryKindTag}},
		},
	}

	report, err := newEngine(t, organize).Run(items, scanDir(t, videos))
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesUntagged)

	// The orphan is reachable through the untagged bucket.
	_, err = os.Lstat(filepath.Join(organize, UntaggedBucket, "Orphan File.mp4"))
	assert.NoError(t, err)

	// The tagged file is not duplicated into the untagged bucket.
	_, err = os.Lstat(filepath.Join(organize, UntaggedBucket, "Cool Scene.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunZeroCategoryItemGoesUntagged(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	writeVideo(t, filepath.Join(videos, "Cool Scene.mp4"))
	organize := filepath.Join(root, "organized")

	items := []models.CatalogItem{
		{SourceURL: "https://x/updates/a", Title: "Cool Scene"},
	}

	report, err := newEngine(t, organize).Run(items, scanDir(t, videos))
	require.NoError(t, err)

	assert.Equal(t, 1, report.ItemsMatched)
	_, err = os.Lstat(filepath.Join(organize, UntaggedBucket, "Cool Scene.mp4"))
	assert.NoError(t, err)
}

func TestRunSkipsMalformedItems(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	require.NoError(t, os.MkdirAll(videos, 0755))

	items := []models.CatalogItem{
		{SourceURL: "", Title: "No URL"},
		{SourceURL: "   ", Title: "Blank URL"},
	}

	report, err := newEngine(t, filepath.Join(root, "organized")).Run(items, scanDir(t, videos))
	require.NoError(t, err)

	assert.Equal(t, 2, report.ItemsTotal)
	assert.Equal(t, 2, report.ItemsSkipped)
	assert.Empty(t, report.Unmatched)
}

func TestRunFuzzyMatchLinks(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	writeVideo(t, filepath.Join(videos, "Cool Scene Directors Cut.mp4"))
	organize := filepath.Join(root, "organized")

	items := []models.CatalogItem{
		{
			SourceURL:  "https://x/updates/a",
			Title:      "Cool Scene Cut",
			Categories: []models.Category{{Name: "Bondage", Kind: models.CategoryKindTag}},
		},
	}

	report, err := newEngine(t, organize).Run(items, scanDir(t, videos))
	require.NoError(t, err)

	assert.Equal(t, 1, report.ItemsMatched)
	_, err = os.Lstat(filepath.Join(organize, "tag Bondage", "Cool Scene Directors Cut.mp4"))
	assert.NoError(t, err)
}

func TestRunMultipleCategories(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	writeVideo(t, filepath.Join(videos, "Cool Scene.mp4"))
	organize := filepath.Join(root, "organized")

	items := []models.CatalogItem{
		{
			SourceURL: "https://x/updates/a",
			Title:     "Cool Scene",
			Categories: []models.Category{
				{Name: "Bondage", Kind: models.CategoryKindTag},
				{Name: "Jane Doe", Kind: models.CategoryKindModel},
			},
		},
	}

	report, err := newEngine(t, organize).Run(items, scanDir(t, videos))
	require.NoError(t, err)

	assert.Equal(t, 1, report.PerBucket["tag Bondage"])
	assert.Equal(t, 1, report.PerBucket["model Jane Doe"])

	for _, bucket := range []string{"tag Bondage", "model Jane Doe"} {
		_, err = os.Lstat(filepath.Join(organize, bucket, "Cool Scene.mp4"))
		assert.NoError(t, err, bucket)
	}
}

func TestRunDryRunMutatesNothing(t *testing.T) {
	root := t.TempDir()
	videos := filepath.Join(root, "videos")
	writeVideo(t, filepath.Join(videos, "Cool Scene.mp4"))
	organize := filepath.Join(root, "organized")

	engine := New(
		Config{OrganizeRoot: organize, DryRun: true},
		matcher.New(matcher.DefaultConfig()),
		linkfarm.New(linkfarm.Config{MaxRenameAttempts: 10, HardLinkFallback: true, DryRun: true}),
		nil,
	)

	items := []models.CatalogItem{
		{
			SourceURL:  "https://x/updates/a",
			Title:      "Cool Scene",
			Categories: []models.Category{{Name: "Bondage", Kind: models.CategoryKindTag}},
		},
	}

	report, err := engine.Run(items, scanDir(t, videos))
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Greater(t, report.LinksCreated, 0)
	_, err = os.Stat(organize)
	assert.True(t, os.IsNotExist(err), "dry run must not create the organize root")
}
