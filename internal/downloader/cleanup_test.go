package downloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupStaleArtifacts(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "Cool Scene.mp4.part")
	fresh := filepath.Join(dir, "Other Clip.mp4.part")
	video := filepath.Join(dir, "Done Scene.mp4")

	for _, path := range []string{stale, fresh, video} {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("failed to age fixture: %v", err)
	}

	if err := CleanupStaleArtifacts(CleanupOptions{Dir: dir, RetentionHours: 24}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected stale artifact to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("expected recent artifact to survive")
	}
	if _, err := os.Stat(video); err != nil {
		t.Error("expected finished video to survive")
	}
}

func TestCleanupStaleArtifacts_DryRun(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "Cool Scene.mp4.ytdl")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("failed to age fixture: %v", err)
	}

	if err := CleanupStaleArtifacts(CleanupOptions{Dir: dir, RetentionHours: 24, DryRun: true}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := os.Stat(stale); err != nil {
		t.Error("dry run must not remove anything")
	}
}

func TestIsStaleArtifact(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Cool Scene.mp4.part", true},
		{"Cool Scene.mp4.ytdl", true},
		{"Cool Scene.mp4.part-Frag3", true},
		{"Cool Scene.f137.mp4.part", true},
		{"Cool Scene.mp4", false},
		{"notes.txt", false},
	}
	for _, tc := range tests {
		if got := isStaleArtifact(tc.name); got != tc.want {
			t.Errorf("isStaleArtifact(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
