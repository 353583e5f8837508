package layout

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSpikeGLXRun creates a run folder holding a single ap.bin recording.
func makeSpikeGLXRun(t *testing.T, sesPath, runName string) string {
	t.Helper()
	runPath := filepath.Join(sesPath, runName)
	require.NoError(t, os.MkdirAll(runPath, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(runPath, runName+"_t0.imec0.ap.bin"), []byte("bin"), 0o644))
	return runPath
}

func TestDiscoverSpikeGLXRuns(t *testing.T) {
	sesPath := t.TempDir()
	runA := makeSpikeGLXRun(t, sesPath, "run-001_g0")
	runB := makeSpikeGLXRun(t, sesPath, "run-002_g0")

	got, err := DiscoverRunPaths(context.Background(), FormatSpikeGLX, sesPath, nil)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{runA, runB}, got); diff != "" {
		t.Fatalf("unexpected run paths (-want +got):\n%s", diff)
	}
}

func TestDiscoverDescendsIntoEphysLevel(t *testing.T) {
	sesPath := t.TempDir()
	ephysPath := filepath.Join(sesPath, "ephys")
	run := makeSpikeGLXRun(t, ephysPath, "run-001_g0")

	got, err := DiscoverRunPaths(context.Background(), FormatSpikeGLX, sesPath, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{run}, got)
}

func TestDiscoverSelectsAndOrdersPassedRunNames(t *testing.T) {
	sesPath := t.TempDir()
	runA := makeSpikeGLXRun(t, sesPath, "run-001_g0")
	runB := makeSpikeGLXRun(t, sesPath, "run-002_g0")

	got, err := DiscoverRunPaths(context.Background(), FormatSpikeGLX, sesPath,
		[]string{"run-002_g0", "run-001_g0"})
	require.NoError(t, err)
	assert.Equal(t, []string{runB, runA}, got)

	_, err = DiscoverRunPaths(context.Background(), FormatSpikeGLX, sesPath,
		[]string{"run-404_g0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-404_g0")
}

func TestDiscoverSpikeGLXRejectsMultiTrigger(t *testing.T) {
	sesPath := t.TempDir()
	runPath := makeSpikeGLXRun(t, sesPath, "run-001_g0")
	require.NoError(t, os.WriteFile(
		filepath.Join(runPath, "run-001_g0_t1.imec0.ap.bin"), []byte("bin"), 0o644))

	_, err := DiscoverRunPaths(context.Background(), FormatSpikeGLX, sesPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multi-trigger")
}

func TestDiscoverSpikeGLXRejectsNonImec0(t *testing.T) {
	sesPath := t.TempDir()
	runPath := filepath.Join(sesPath, "run-001_g0_imec1")
	require.NoError(t, os.MkdirAll(runPath, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(runPath, "run-001_g0_t0.imec1.ap.bin"), []byte("bin"), 0o644))

	_, err := DiscoverRunPaths(context.Background(), FormatSpikeGLX, sesPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imec1")
}

func TestDiscoverSpikeGLXNoRuns(t *testing.T) {
	_, err := DiscoverRunPaths(context.Background(), FormatSpikeGLX, t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no spikeglx run folders")
}

func makeOpenEphysTree(t *testing.T, sesPath string, recordings ...string) []string {
	t.Helper()
	expPath := filepath.Join(sesPath, "Record Node 101", "experiment1")
	var runPaths []string
	for _, rec := range recordings {
		recPath := filepath.Join(expPath, rec)
		require.NoError(t, os.MkdirAll(filepath.Join(recPath, "continuous"), 0o755))
		runPaths = append(runPaths, recPath)
	}
	return runPaths
}

func TestDiscoverOpenEphysRuns(t *testing.T) {
	sesPath := t.TempDir()
	want := makeOpenEphysTree(t, sesPath, "recording1", "recording2")

	got, err := DiscoverRunPaths(context.Background(), FormatOpenEphys, sesPath, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDiscoverOpenEphysRejectsLegacyFormat(t *testing.T) {
	sesPath := t.TempDir()
	makeOpenEphysTree(t, sesPath, "recording1")
	require.NoError(t, os.WriteFile(
		filepath.Join(sesPath, "structure.openephys"), []byte("<xml/>"), 0o644))

	_, err := DiscoverRunPaths(context.Background(), FormatOpenEphys, sesPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy OpenEphys")
}

func TestDiscoverOpenEphysRejectsMultipleNodes(t *testing.T) {
	sesPath := t.TempDir()
	makeOpenEphysTree(t, sesPath, "recording1")
	require.NoError(t, os.MkdirAll(filepath.Join(sesPath, "Record Node 102"), 0o755))

	_, err := DiscoverRunPaths(context.Background(), FormatOpenEphys, sesPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single-Node")
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"spikeglx", "openephys"} {
		format, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), format)
	}

	_, err := ParseFormat("intan")
	require.Error(t, err)
}
