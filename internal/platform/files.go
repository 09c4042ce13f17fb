package platform

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// OutputExtTemplate is the yt-dlp placeholder for the extension it picks
const OutputExtTemplate = ".%(ext)s"

// File extensions to skip when scanning for finished output
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp"}
)

// ErrOutputNotFound is returned when no finished file for a task exists
var ErrOutputNotFound = errors.New("output file not found")

// CreateDirectoryIfNotExists creates dirPath with parents when missing
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// FileExists reports whether path is an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// OutputTemplate returns the path template handed to the extractor for a task
func OutputTemplate(dir, taskID string) string {
	return filepath.Join(dir, taskID) + OutputExtTemplate
}

// ExpectedOutputPath returns <dir>/<taskID>.<ext>
func ExpectedOutputPath(dir, taskID, ext string) string {
	return filepath.Join(dir, taskID+"."+ext)
}

// ResolveOutputPath finds the file produced for taskID. The expected
// <taskID>.<ext> wins; otherwise the first finished entry (by name) whose name
// starts with taskID is used, since the extractor may pick another extension.
func ResolveOutputPath(dir, taskID, ext string) (string, error) {
	expected := ExpectedOutputPath(dir, taskID, ext)
	if FileExists(expected) {
		return expected, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "read download dir %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, taskID) || isPartialFile(name) {
			continue
		}
		return filepath.Join(dir, name), nil
	}

	return "", errors.Wrapf(ErrOutputNotFound, "task %s in %s", taskID, dir)
}

// CookieFile returns path when it names an existing file, or "" so the
// request goes out unauthenticated.
func CookieFile(path string) string {
	if path == "" || !FileExists(path) {
		return ""
	}
	return path
}

func isPartialFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
