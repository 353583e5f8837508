package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBase(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "rawdata", "sub-001", "ses-001"), 0o755))
	return base
}

func TestNewRequiresRawdata(t *testing.T) {
	base := makeBase(t)
	l, err := New(base)
	require.NoError(t, err)
	assert.Equal(t, base, l.Base)

	_, err = New(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rawdata")
}

func TestPathResolution(t *testing.T) {
	base := makeBase(t)
	l, err := New(base)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "rawdata", "sub-001"), l.RawSubjectPath("sub-001"))
	assert.Equal(t, filepath.Join(base, "rawdata", "sub-001", "ses-001"), l.RawSessionPath("sub-001", "ses-001"))
	assert.Equal(t, filepath.Join(base, "derivatives", "sub-001", "ses-001", "ephys"),
		l.OutputSessionPath("sub-001", "ses-001"))
}

func TestSessions(t *testing.T) {
	base := makeBase(t)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "rawdata", "sub-001", "ses-002"), 0o755))

	l, err := New(base)
	require.NoError(t, err)

	sessions, err := l.Sessions("sub-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"ses-001", "ses-002"}, sessions)

	_, err = l.Sessions("sub-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub-404")
}

func TestOutputFromRawSession(t *testing.T) {
	base := makeBase(t)

	out, err := OutputFromRawSession(filepath.Join(base, "rawdata", "sub-001", "ses-001"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "derivatives", "sub-001", "ses-001", "ephys"), out)

	_, err = OutputFromRawSession(filepath.Join(base, "elsewhere", "sub-001", "ses-001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-NeuroBlueprint")
}

func TestEphysPathOptionalLevel(t *testing.T) {
	base := makeBase(t)
	sesPath := filepath.Join(base, "rawdata", "sub-001", "ses-001")

	// No ephys level: the session path stands.
	assert.Equal(t, sesPath, EphysPath(sesPath))

	require.NoError(t, os.Mkdir(filepath.Join(sesPath, "ephys"), 0o755))
	assert.Equal(t, filepath.Join(sesPath, "ephys"), EphysPath(sesPath))
}

func TestRunOutputPaths(t *testing.T) {
	out := NewRunOutput("/derv/sub-001/ses-001/ephys", "run-001_g0")

	assert.Equal(t, filepath.Join(out.Root, "preprocessed"), out.Preprocessed(""))
	assert.Equal(t, filepath.Join(out.Root, "preprocessed"), out.Preprocessed("grouped"))
	assert.Equal(t, filepath.Join(out.Root, "preprocessed", "shank_0"), out.Preprocessed("shank_0"))
	assert.Equal(t, filepath.Join(out.Root, "sync", "sync_channel.npy"), out.SyncChannelFile())
	assert.Equal(t, filepath.Join(out.Root, "sorting", "shank_1"), out.Sorting("shank_1"))
	assert.Equal(t, filepath.Join(out.Root, "slurm_logs"), out.SlurmLogs())
	assert.Equal(t, filepath.Join(out.Root, "orig_run_names.txt"), out.OrigRunNamesFile())
}
