package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuroinformatics-unit/spikewrap/internal/app"
)

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"/data", "sub-001"}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "/data", cfg.BasePath)
	assert.Equal(t, "sub-001", cfg.SubName)
	assert.Empty(t, cfg.RunNames)
	assert.Equal(t, "spikeglx", cfg.Format)
	assert.Equal(t, "default", cfg.ConfigName)
	assert.Equal(t, "kilosort2_5", cfg.Sorter)
	assert.Equal(t, "cpu", cfg.HPCProfile)
	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Backend)
	assert.NotEmpty(t, cfg.ImagesDir)
	assert.False(t, cfg.PerShank)
	assert.False(t, cfg.Slurm)
}

func TestParseRunNamesArePositional(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"/data", "sub-001", "run-002", "run-001"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-002", "run-001"}, cfg.RunNames)
}

func TestParseAllKeywordSelectsEveryRun(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"/data", "sub-001", "all"}, &out)
	require.NoError(t, err)
	assert.Empty(t, cfg.RunNames)
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{
		"--ses-name", "ses-002",
		"--format", "OpenEphys",
		"--config-name", "test",
		"--sorter", "mountainsort5",
		"--per-shank",
		"--concat-runs",
		"--overwrite",
		"--use-existing-preprocessed-file",
		"--quality-metrics",
		"--slurm",
		"--hpc-profile", "gpu",
		"--workers", "4",
		"--log-level", "DEBUG",
		"--log-format", "json",
		"--backend", "/opt/backend",
		"/data", "sub-001",
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "ses-002", cfg.SesName)
	assert.Equal(t, "openephys", cfg.Format)
	assert.Equal(t, "test", cfg.ConfigName)
	assert.Equal(t, "mountainsort5", cfg.Sorter)
	assert.True(t, cfg.PerShank)
	assert.True(t, cfg.ConcatRuns)
	assert.True(t, cfg.Overwrite)
	assert.True(t, cfg.UseExistingPreprocessedFile)
	assert.True(t, cfg.QualityMetrics)
	assert.True(t, cfg.Slurm)
	assert.Equal(t, "gpu", cfg.HPCProfile)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/opt/backend", cfg.Backend)
}

// A SLURM job re-invokes the CLI with Config.Argv output, so parsing it back
// must reproduce the configuration that produced it.
func TestParseRoundTripsConfigArgv(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{
		BasePath:   "/data",
		SubName:    "sub-001",
		RunNames:   []string{"run-002", "run-001"},
		ConcatRuns: true,
		PerShank:   true,
		Slurm:      true,
		Backend:    "/opt/backend",
		ImagesDir:  "/cache/images",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	parsed, exit, err := Parse(cfg.Argv("ses-001"), &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "/data", parsed.BasePath)
	assert.Equal(t, "sub-001", parsed.SubName)
	assert.Equal(t, []string{"run-002", "run-001"}, parsed.RunNames)
	assert.Equal(t, "ses-001", parsed.SesName)
	assert.True(t, parsed.PerShank)
	assert.True(t, parsed.ConcatRuns)
	assert.Equal(t, "/opt/backend", parsed.Backend)
	assert.Equal(t, "/cache/images", parsed.ImagesDir)
	assert.False(t, parsed.Slurm, "resubmitted jobs must not submit again")
}

func TestParseMissingPositionalsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"/data"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseShowConfigsNeedsNoPositionals(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"--show-configs"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.True(t, cfg.ShowConfigs)
}

func TestParseRejectsBadLogFormat(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-format", "xml", "/data", "sub-001"}, &out)
	require.Error(t, err)

	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "log-format")
}

func TestParseRejectsBadLogLevel(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--log-level", "verbose", "/data", "sub-001"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-level")
}

func TestParseHelpExitsCleanly(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}
