package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// screenshotExts are the extensions the toolkit can decode.
var screenshotExts = []string{"png", "jpg", "jpeg", "webp"}

var unsafeChars = strings.NewReplacer(
	`\`, "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// EnsureDir creates dir and its parents. The empty path and "." are no-ops.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// GetFileExtension returns the lower-cased extension without the dot
func GetFileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsImageFile reports whether filename has a screenshot extension
func IsImageFile(filename string) bool {
	return slices.Contains(screenshotExts, GetFileExtension(filename))
}

// DiffArtifactFilename derives the diff artifact path for a reference
// screenshot, e.g. home.png -> <dir>/home_diff.png
func DiffArtifactFilename(reference, dir, format string) string {
	if format == "" {
		format = "png"
	}
	stem := strings.TrimSuffix(filepath.Base(reference), filepath.Ext(reference))
	return filepath.Join(dir, stem+"_diff."+format)
}

// ListImageFiles walks dir and returns every screenshot file below it
func ListImageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir() && IsImageFile(path):
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// FileExists reports whether filename exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

// SanitizeFilename makes a reference name safe to join under the reference
// directory. Subdirectories are kept; empty, "." and ".." segments are dropped.
func SanitizeFilename(filename string) string {
	var kept []string
	for _, seg := range strings.Split(unsafeChars.Replace(filename), "/") {
		seg = strings.TrimSpace(seg)
		if seg != "" && seg != "." && seg != ".." {
			kept = append(kept, seg)
		}
	}
	return strings.Join(kept, "/")
}

// FormatFileSize renders size using binary units, e.g. "1.5 KB"
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	value, prefix := float64(size)/unit, 0
	for value >= unit && prefix < 5 {
		value /= unit
		prefix++
	}
	return fmt.Sprintf("%.1f %cB", value, "KMGTPE"[prefix])
}
