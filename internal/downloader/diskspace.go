package downloader

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	apperrors "github.com/tlemarchand/shelfer/internal/errors"
)

// DiskSpace represents available disk space information
type DiskSpace struct {
	Available uint64  // Available bytes for unprivileged users
	Free      uint64  // Free bytes on filesystem
	Total     uint64  // Total bytes on filesystem
	UsedPct   float64 // Percentage of space used
}

// GetDiskSpace returns disk space information for the given path. When the
// path does not exist yet the closest existing ancestor is measured.
func GetDiskSpace(path string) (*DiskSpace, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	checkPath := absPath
	for {
		if _, err := os.Stat(checkPath); err == nil {
			break
		}
		parent := filepath.Dir(checkPath)
		if parent == checkPath {
			return nil, fmt.Errorf("no existing directory found in path")
		}
		checkPath = parent
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(checkPath, &stat); err != nil {
		return nil, fmt.Errorf("failed to get filesystem stats: %w", err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	available := stat.Bavail * uint64(stat.Bsize)
	used := total - free
	usedPct := float64(used) / float64(total) * 100

	return &DiskSpace{
		Available: available,
		Free:      free,
		Total:     total,
		UsedPct:   usedPct,
	}, nil
}

// EnsureMinFree fails when the filesystem holding path has less than
// minFreeGB gigabytes available. A zero or negative threshold disables the
// guard.
func EnsureMinFree(path string, minFreeGB int) error {
	if minFreeGB <= 0 {
		return nil
	}

	space, err := GetDiskSpace(path)
	if err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	required := uint64(minFreeGB) * 1024 * 1024 * 1024
	if space.Available < required {
		return apperrors.New(apperrors.CodeDiskSpace,
			fmt.Sprintf("insufficient disk space: available=%s, minimum=%s",
				FormatBytes(space.Available), FormatBytes(required))).
			WithContext("path", path)
	}

	return nil
}

// FormatBytes formats bytes into human-readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
