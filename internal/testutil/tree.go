package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Tree builds a temporary NeuroBlueprint project folder for tests:
// <Base>/rawdata/<sub>/<ses>/ephys/<run>/...
type Tree struct {
	t    *testing.T
	Base string
}

// NewTree creates an empty project tree with a rawdata folder.
func NewTree(t *testing.T) *Tree {
	t.Helper()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "rawdata"), 0o755))
	return &Tree{t: t, Base: base}
}

// RawSessionPath returns <Base>/rawdata/<sub>/<ses>.
func (tr *Tree) RawSessionPath(sub, ses string) string {
	return filepath.Join(tr.Base, "rawdata", sub, ses)
}

// OutputSessionPath returns <Base>/derivatives/<sub>/<ses>/ephys.
func (tr *Tree) OutputSessionPath(sub, ses string) string {
	return filepath.Join(tr.Base, "derivatives", sub, ses, "ephys")
}

// AddSpikeGLXRun creates a run folder holding a single-probe, single-trigger
// SpikeGLX recording and returns the run path. Runs are spaced one second
// apart in mtime so creation-order checks are deterministic.
func (tr *Tree) AddSpikeGLXRun(sub, ses, run string) string {
	tr.t.Helper()

	runPath := filepath.Join(tr.RawSessionPath(sub, ses), "ephys", run)
	require.NoError(tr.t, os.MkdirAll(runPath, 0o755))

	bin := filepath.Join(runPath, run+"_g0_t0.imec0.ap.bin")
	require.NoError(tr.t, os.WriteFile(bin, []byte("binary"), 0o644))
	meta := filepath.Join(runPath, run+"_g0_t0.imec0.ap.meta")
	require.NoError(tr.t, os.WriteFile(meta, []byte("nSavedChans=385\n"), 0o644))

	tr.spaceMtime(runPath)
	return runPath
}

// AddOpenEphysRun creates (or extends) the single-node, single-experiment
// OpenEphys session structure with one recording folder and returns its path.
func (tr *Tree) AddOpenEphysRun(sub, ses, recording string) string {
	tr.t.Helper()

	runPath := filepath.Join(tr.RawSessionPath(sub, ses), "ephys",
		"Record Node 101", "experiment1", recording)
	require.NoError(tr.t, os.MkdirAll(filepath.Join(runPath, "continuous"), 0o755))

	tr.spaceMtime(runPath)
	return runPath
}

// mtimeCounter spaces successive run folders' mtimes so tests that depend on
// creation order do not race the filesystem clock.
var mtimeCounter int

func (tr *Tree) spaceMtime(path string) {
	tr.t.Helper()

	mtimeCounter++
	stamp := time.Now().Add(time.Duration(mtimeCounter) * time.Second)
	require.NoError(tr.t, os.Chtimes(path, stamp, stamp))
}
