package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

var imageExts = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	return slices.Contains(imageExts, GetFileExtension(filename))
}

// IsURL reports whether arg is an http or https URL
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// ListImageFiles recursively lists all image files in a directory, sorted
// by path
func ListImageFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})

	slices.Sort(files)
	return files, err
}

// ExpandInputs turns command line arguments into image inputs. Directories
// are replaced by the image files they contain, URLs and files are kept in
// order.
func ExpandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if IsURL(arg) {
			inputs = append(inputs, arg)
			continue
		}
		if DirExists(arg) {
			files, err := ListImageFiles(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", arg, err)
			}
			inputs = append(inputs, files...)
			continue
		}
		if !FileExists(arg) {
			return nil, fmt.Errorf("no such file: %s", arg)
		}
		inputs = append(inputs, arg)
	}
	return inputs, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	// Replace invalid characters with underscores
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing spaces and dots
	return strings.Trim(result, " .")
}

// FormatFileSize formats a byte count in human-readable IEC units
func FormatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
