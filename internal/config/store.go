package config

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/neuroinformatics-unit/spikewrap/internal/fsutil"
)

//go:embed defaults/*.yaml
var defaultConfigs embed.FS

// Store manages named configuration files in a user-writable directory.
// Shipped defaults are embedded in the binary and materialized into the
// directory on first use, so users edit copies rather than install files.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it and seeding the
// embedded default configs if needed. Existing files are never overwritten.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	entries, err := fs.ReadDir(defaultConfigs, "defaults")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		target := filepath.Join(dir, entry.Name())
		if fsutil.FileExists(target) {
			continue
		}
		data, err := defaultConfigs.ReadFile("defaults/" + entry.Name())
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to seed default config %s: %w", entry.Name(), err)
		}
	}

	return &Store{dir: dir}, nil
}

// DefaultStore opens the store in the user config directory
// (`$XDG_CONFIG_HOME/spikewrap/configs` on Linux).
func DefaultStore() (*Store, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return NewStore(filepath.Join(base, "spikewrap", "configs"))
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

// List returns the names (without extension) of all stored configs.
func (s *Store) List() ([]string, error) {
	var names []string
	for _, ext := range []string{".yaml", ".yml"} {
		files, err := filepath.Glob(filepath.Join(s.dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			names = append(names, strings.TrimSuffix(filepath.Base(f), ext))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Resolve loads a config by stored name, or by file path when nameOrPath
// points outside the store (contains a path separator or a YAML suffix).
func (s *Store) Resolve(nameOrPath string) (*Pipeline, error) {
	if strings.ContainsRune(nameOrPath, os.PathSeparator) || isYAMLPath(nameOrPath) {
		return LoadFile(nameOrPath)
	}

	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(s.dir, nameOrPath+ext)
		if fsutil.FileExists(path) {
			return LoadFile(path)
		}
	}

	available, err := s.List()
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("config %q is neither a stored config name (available: %v) nor a path to a YAML file",
		nameOrPath, available)
}

// Save writes a pipeline under the given name (a .yaml suffix is appended
// when absent). Existing configs are only replaced when overwrite is set.
func (s *Store) Save(p *Pipeline, name string, overwrite bool) (string, error) {
	if filepath.Ext(name) == "" {
		name += ".yaml"
	}
	path := filepath.Join(s.dir, name)

	if fsutil.FileExists(path) && !overwrite {
		return "", fmt.Errorf("config already exists at %s and overwrite is false", path)
	}

	data, err := Marshal(p)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	return path, nil
}
