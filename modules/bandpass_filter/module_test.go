package bandpass_filter

import (
	"context"
	"testing"

	"github.com/neuroinformatics-unit/spikewrap/internal/config"
	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/neuroinformatics-unit/spikewrap/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	(&Module{}).Register(r)
	require.NoError(t, r.LoadManifests(context.Background()))
	require.NoError(t, r.Validate(context.Background()))
	return r
}

func TestManifestParityWithHandler(t *testing.T) {
	newRegistry(t)
}

func TestDefaultsMatchShippedConfig(t *testing.T) {
	r := newRegistry(t)

	rec, err := r.Apply(context.Background(), engine.Recording{},
		config.Step{Order: 1, Name: "bandpass_filter", Kwargs: map[string]any{}})
	require.NoError(t, err)

	require.Len(t, rec.Steps, 1)
	assert.Equal(t, float64(300), rec.Steps[0].Kwargs["freq_min"])
	assert.Equal(t, float64(6000), rec.Steps[0].Kwargs["freq_max"])
}

func TestRejectsInvertedBand(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Apply(context.Background(), engine.Recording{},
		config.Step{Order: 1, Name: "bandpass_filter",
			Kwargs: map[string]any{"freq_min": 6000, "freq_max": 300}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than freq_min")
}
