package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Supported audio file extensions
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
}

// IsSupportedAudio reports whether path has a taggable audio extension.
// The check is case-insensitive.
func IsSupportedAudio(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// FindAudioFiles lists supported audio files under dir in a stable order.
// Within each directory, files come first in lexicographic order; when
// recursive is set, subdirectories follow, also in lexicographic order,
// each walked depth-first. Unreadable subdirectories are skipped.
func FindAudioFiles(dir string, recursive bool) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory path cannot be empty")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	if err := walk(dir, recursive, true, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func walk(dir string, recursive, root bool, files *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if root {
			return fmt.Errorf("error reading directory %s: %w", dir, err)
		}
		return nil
	}

	// os.ReadDir already sorts by name; keep it explicit.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var subdirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			subdirs = append(subdirs, path)
			continue
		}
		if !isRegular(path, e) {
			continue
		}
		if IsSupportedAudio(e.Name()) {
			*files = append(*files, path)
		}
	}

	if !recursive {
		return nil
	}
	for _, sub := range subdirs {
		if err := walk(sub, recursive, false, files); err != nil {
			return err
		}
	}
	return nil
}

// isRegular follows symlinks so linked files are tagged like plain ones.
func isRegular(path string, e os.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
