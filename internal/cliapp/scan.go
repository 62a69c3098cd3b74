// Package cliapp implements videoindex's subcommands: index, which walks a
// directory and appends new videos' keyframes to the store, and search,
// which finds the closest indexed frames to a query image.
package cliapp

import (
	"os"
	"path/filepath"
	"strings"
)

// videoExtensions are the container extensions scan treats as indexable
// video files.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
}

// ScanVideos walks root (recursively, if recurse is true) and returns the
// absolute, cleaned path of every file with a recognized video extension,
// so the result can be compared directly against hashstore.IndexedPaths.
func ScanVideos(root string, recurse bool) ([]string, error) {
	var paths []string

	walk := func(path string, info os.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		if !videoExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		paths = append(paths, abs)
		return nil
	}

	if recurse {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			return walk(path, info)
		})
		if err != nil {
			return nil, err
		}
		return paths, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		if err := walk(filepath.Join(root, entry.Name()), info); err != nil {
			return nil, err
		}
	}
	return paths, nil
}
