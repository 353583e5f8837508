package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
preprocessing:
  "2": ["bandpass_filter", {freq_min: 300, freq_max: 6000}]
  "1": ["phase_shift", {}]
  "3": ["common_reference", {operator: "median"}]

sorting:
  kilosort2_5:
    car: false
`

func TestParseOrdersSteps(t *testing.T) {
	pipeline, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"phase_shift", "bandpass_filter", "common_reference"}, pipeline.StepNames())
	assert.Equal(t, 300, pipeline.Steps[1].Kwargs["freq_min"])
	assert.Empty(t, pipeline.Steps[0].Kwargs)

	sorter, kwargs, err := pipeline.Sorter("")
	require.NoError(t, err)
	assert.Equal(t, "kilosort2_5", sorter)
	assert.Equal(t, false, kwargs["car"])
}

func TestParseRejectsNonContiguousIndices(t *testing.T) {
	_, err := Parse([]byte(`
preprocessing:
  "1": ["phase_shift", {}]
  "3": ["bandpass_filter", {}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increase by 1")
}

func TestParseRejectsIndicesNotStartingAtOne(t *testing.T) {
	_, err := Parse([]byte(`
preprocessing:
  "0": ["phase_shift", {}]
`))
	require.Error(t, err)
}

func TestParseRejectsNonIntegerIndex(t *testing.T) {
	_, err := Parse([]byte(`
preprocessing:
  first: ["phase_shift", {}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an integer")
}

func TestParseRejectsMalformedStep(t *testing.T) {
	_, err := Parse([]byte(`
preprocessing:
  "1": {name: phase_shift}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[name, {kwargs}]")
}

func TestParseStepWithoutKwargs(t *testing.T) {
	pipeline, err := Parse([]byte(`
preprocessing:
  "1": ["phase_shift"]
`))
	require.NoError(t, err)
	require.Len(t, pipeline.Steps, 1)
	assert.NotNil(t, pipeline.Steps[0].Kwargs)
}

func TestSorterSelection(t *testing.T) {
	pipeline, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	// A requested sorter missing from the config gets empty kwargs.
	sorter, kwargs, err := pipeline.Sorter("mountainsort5")
	require.NoError(t, err)
	assert.Equal(t, "mountainsort5", sorter)
	assert.Empty(t, kwargs)
}

func TestMarshalRoundTrip(t *testing.T) {
	pipeline, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	data, err := Marshal(pipeline)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StepNames(), again.StepNames())
	assert.Equal(t, pipeline.Sorting, again.Sorting)
}

func TestLoadFileRejectsNonYAMLPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".yaml")
}

func TestRenderListsStepsInOrder(t *testing.T) {
	pipeline, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	rendered := Render(pipeline)
	assert.Contains(t, rendered, "1. phase_shift")
	assert.Contains(t, rendered, "2. bandpass_filter")
	assert.Contains(t, rendered, "kilosort2_5")
}
