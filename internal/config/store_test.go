package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreSeedsDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "configs")
	store, err := NewStore(dir)
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	assert.Contains(t, names, "default")
	assert.Contains(t, names, "test")
}

func TestNewStoreDoesNotClobberUserEdits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "configs")
	_, err := NewStore(dir)
	require.NoError(t, err)

	edited := []byte("preprocessing:\n  \"1\": [\"phase_shift\", {}]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), edited, 0o644))

	// Reopening the store must keep the user's edit.
	_, err = NewStore(dir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "default.yaml"))
	require.NoError(t, err)
	assert.Equal(t, edited, data)
}

func TestResolveByNameAndPath(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "configs"))
	require.NoError(t, err)

	byName, err := store.Resolve("default")
	require.NoError(t, err)
	assert.NotEmpty(t, byName.Steps)

	byPath, err := store.Resolve(filepath.Join(store.Dir(), "default.yaml"))
	require.NoError(t, err)
	assert.Equal(t, byName.StepNames(), byPath.StepNames())

	_, err = store.Resolve("does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available")
}

func TestSaveAndOverwrite(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "configs"))
	require.NoError(t, err)

	pipeline := &Pipeline{
		Steps:   []Step{{Order: 1, Name: "bandpass_filter", Kwargs: map[string]any{"freq_min": 300}}},
		Sorting: map[string]map[string]any{"kilosort2_5": {}},
	}

	path, err := store.Save(pipeline, "mine", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "mine.yaml"), path)

	_, err = store.Save(pipeline, "mine", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overwrite")

	_, err = store.Save(pipeline, "mine", true)
	require.NoError(t, err)

	loaded, err := store.Resolve("mine")
	require.NoError(t, err)
	assert.Equal(t, []string{"bandpass_filter"}, loaded.StepNames())
}
