// Package bandpass_filter registers the bandpass_filter preprocessing step.
package bandpass_filter

import (
	"context"
	_ "embed"
	"fmt"
	"reflect"

	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/neuroinformatics-unit/spikewrap/internal/registry"
)

//go:embed manifest.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the keyword arguments accepted by the step.
type Input struct {
	FreqMin float64 `spw:"freq_min"`
	FreqMax float64 `spw:"freq_max"`
}

// OnApplyBandpassFilter validates the band edges and emits the backend step
// spec.
func OnApplyBandpassFilter(ctx context.Context, input *Input) (engine.StepSpec, error) {
	if input.FreqMin <= 0 {
		return engine.StepSpec{}, fmt.Errorf("freq_min must be positive, got %v", input.FreqMin)
	}
	if input.FreqMax <= input.FreqMin {
		return engine.StepSpec{}, fmt.Errorf("freq_max (%v) must be greater than freq_min (%v)",
			input.FreqMax, input.FreqMin)
	}

	return engine.StepSpec{
		Name: "bandpass_filter",
		Kwargs: map[string]any{
			"freq_min": input.FreqMin,
			"freq_max": input.FreqMax,
		},
	}, nil
}

// Register registers the step with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("bandpass_filter", &registry.RegisteredStep{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnApplyBandpassFilter,
		Manifest:  manifest,
	})
}
