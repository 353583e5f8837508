// Package fsutil provides small file system helpers shared by the layout
// resolver and the output writers.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension recursively collects files under rootPath whose name
// ends with extension, returning their full paths in lexical order.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("fsutil: extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ListDirs returns the names of the immediate sub-directories of path,
// sorted lexically. A missing path is reported as an error by os.ReadDir.
func ListDirs(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// InCreationOrder reports whether paths are ordered by modification time.
// Creation time is not portably available, so mtime stands in for it; raw
// acquisition folders are written once, making the two equivalent in
// practice.
func InCreationOrder(paths []string) (bool, error) {
	var last int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return false, err
		}
		mod := info.ModTime().UnixNano()
		if mod < last {
			return false, nil
		}
		last = mod
	}
	return true, nil
}

// RemoveContentsExcept deletes everything directly under dir except entries
// named in keep. The directory itself is preserved.
func RemoveContentsExcept(dir string, keep ...string) error {
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if _, ok := kept[entry.Name()]; ok {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
