package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/towebp/pkg/converter"
)

// ScanResult is the outcome of listing a target directory.
type ScanResult struct {
	// Eligible holds paths with a convertible extension, in listing order.
	Eligible []string
	// Skipped holds paths that are already WebP.
	Skipped []string
	// Overwrites maps each output path that will be written over, either
	// because it already exists or because several sources share a base
	// name, to the sources that target it.
	Overwrites map[string][]string
}

// Discovered returns the number of image files found, WebP included.
func (s *ScanResult) Discovered() int {
	return len(s.Eligible) + len(s.Skipped)
}

// Scan lists dir without descending into subdirectories and sorts its image
// files into eligible and skipped. Other files are ignored.
func Scan(dir string) (*ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := &ScanResult{Overwrites: make(map[string][]string)}
	existing := make(map[string]bool)
	targets := make(map[string][]string)

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !isRegularFile(path, entry) {
			continue
		}

		switch {
		case converter.IsWebP(entry.Name()):
			result.Skipped = append(result.Skipped, path)
			existing[path] = true
		case converter.IsSupported(entry.Name()):
			result.Eligible = append(result.Eligible, path)
			out := converter.DefaultOutputPath(path)
			targets[out] = append(targets[out], path)
		}
	}

	for out, sources := range targets {
		if len(sources) > 1 || existing[out] {
			result.Overwrites[out] = sources
		}
	}

	return result, nil
}

// isRegularFile accepts regular files and symlinks that resolve to one
func isRegularFile(path string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
