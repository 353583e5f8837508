package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// BasePath is the NeuroBlueprint project folder (contains rawdata).
	BasePath string
	// SubName is the subject folder under rawdata.
	SubName string
	// RunNames restricts processing to the named runs, in order; empty
	// means every detected run.
	RunNames []string
	// SesName restricts processing to one session; empty means every
	// session of the subject.
	SesName string

	Format     string
	ConfigName string
	Sorter     string

	PerShank   bool
	ConcatRuns bool
	Overwrite  bool
	// UseExistingPreprocessedFile sorts from saved preprocessed output
	// when present instead of preprocessing again.
	UseExistingPreprocessedFile bool
	QualityMetrics              bool

	Slurm           bool
	SlurmWait       bool
	HPCProfile      string
	HPCProfilesPath string

	WorkerCount int

	LogFormat string
	LogLevel  string

	// Backend is the processing backend command.
	Backend string
	// ImagesDir caches sorter container images.
	ImagesDir string

	// ShowConfigs prints the available configurations and exits.
	ShowConfigs bool
}

// NewConfig validates a Config and fills in the defaults.
func NewConfig(cfg Config) (*Config, error) {
	if !cfg.ShowConfigs {
		if cfg.BasePath == "" {
			return nil, errors.New("BASE_PATH is required")
		}
		if cfg.SubName == "" {
			return nil, errors.New("SUB_NAME is required")
		}
	}

	if cfg.Format == "" {
		cfg.Format = "spikeglx"
	}
	if cfg.ConfigName == "" {
		cfg.ConfigName = "default"
	}
	if cfg.Sorter == "" {
		cfg.Sorter = "kilosort2_5"
	}
	if cfg.HPCProfile == "" {
		cfg.HPCProfile = "cpu"
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Backend == "" {
		cfg.Backend = engine.DefaultBackendCommand
	}
	if cfg.ImagesDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine the image cache folder: %w", err)
		}
		cfg.ImagesDir = filepath.Join(cacheDir, "spikewrap", "images")
	}

	return &cfg, nil
}

// Argv rebuilds the command-line arguments equivalent to this configuration,
// scoped to one session and without SLURM submission. Used to re-invoke the
// tool inside a batch job. Flags come before the positionals: the stdlib
// flag parser stops at the first non-flag argument.
func (c *Config) Argv(sesName string) []string {
	args := []string{
		"--ses-name", sesName,
		"--format", c.Format,
		"--config-name", c.ConfigName,
		"--sorter", c.Sorter,
		"--workers", strconv.Itoa(c.WorkerCount),
		"--log-level", c.LogLevel,
		"--log-format", c.LogFormat,
		"--backend", c.Backend,
		"--images-dir", c.ImagesDir,
	}
	if c.PerShank {
		args = append(args, "--per-shank")
	}
	if c.ConcatRuns {
		args = append(args, "--concat-runs")
	}
	if c.Overwrite {
		args = append(args, "--overwrite")
	}
	if c.UseExistingPreprocessedFile {
		args = append(args, "--use-existing-preprocessed-file")
	}
	if c.QualityMetrics {
		args = append(args, "--quality-metrics")
	}

	args = append(args, c.BasePath, c.SubName)
	return append(args, c.RunNames...)
}
