package registry

import (
	"context"
	"reflect"
	"testing"

	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gainInput backs the test-only "scale" step.
type gainInput struct {
	Gain  float64 `spw:"gain"`
	Label string  `spw:"label"`
}

const gainManifest = `
step "scale" {
  description = "Scale the recording by a constant gain."

  input "gain" {
    type    = number
    default = 1
  }

  input "label" {
    type     = string
    optional = true
  }
}
`

func onApplyGain(ctx context.Context, input *gainInput) (engine.StepSpec, error) {
	return engine.StepSpec{
		Name:   "scale",
		Kwargs: map[string]any{"gain": input.Gain, "label": input.Label},
	}, nil
}

func newGainRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	r.RegisterStep("scale", &RegisteredStep{
		NewInput:  func() any { return new(gainInput) },
		InputType: reflect.TypeOf(gainInput{}),
		Fn:        onApplyGain,
		Manifest:  []byte(gainManifest),
	})
	require.NoError(t, r.LoadManifests(context.Background()))
	return r
}

func TestLoadManifests(t *testing.T) {
	r := newGainRegistry(t)

	def, ok := r.Definition("scale")
	require.True(t, ok)
	assert.Equal(t, "scale", def.Name)
	require.Len(t, def.Inputs, 2)

	gain := def.Inputs["gain"]
	require.NotNil(t, gain.Default)
	assert.True(t, gain.Optional, "defaulted inputs are implicitly optional")
	assert.True(t, def.Inputs["label"].Optional)
}

func TestLoadManifestsRejectsNameMismatch(t *testing.T) {
	r := New()
	r.RegisterStep("other", &RegisteredStep{
		NewInput:  func() any { return new(gainInput) },
		InputType: reflect.TypeOf(gainInput{}),
		Fn:        onApplyGain,
		Manifest:  []byte(gainManifest),
	})

	err := r.LoadManifests(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `declares step "scale"`)
}

func TestValidateParity(t *testing.T) {
	r := newGainRegistry(t)
	require.NoError(t, r.Validate(context.Background()))
}

func TestValidateDetectsUndeclaredStructField(t *testing.T) {
	type extraInput struct {
		Gain  float64 `spw:"gain"`
		Label string  `spw:"label"`
		Extra bool    `spw:"extra"`
	}

	r := New()
	r.RegisterStep("scale", &RegisteredStep{
		NewInput:  func() any { return new(extraInput) },
		InputType: reflect.TypeOf(extraInput{}),
		Fn:        onApplyGain,
		Manifest:  []byte(gainManifest),
	})
	require.NoError(t, r.LoadManifests(context.Background()))

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"extra"`)
}

func TestValidateDetectsTypeMismatch(t *testing.T) {
	type wrongType struct {
		Gain  string `spw:"gain"`
		Label string `spw:"label"`
	}

	r := New()
	r.RegisterStep("scale", &RegisteredStep{
		NewInput:  func() any { return new(wrongType) },
		InputType: reflect.TypeOf(wrongType{}),
		Fn:        onApplyGain,
		Manifest:  []byte(gainManifest),
	})
	require.NoError(t, r.LoadManifests(context.Background()))

	err := r.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest requires number")
}

func TestRegisterStepPanicsOnDuplicate(t *testing.T) {
	r := newGainRegistry(t)
	assert.Panics(t, func() {
		r.RegisterStep("scale", &RegisteredStep{})
	})
}
