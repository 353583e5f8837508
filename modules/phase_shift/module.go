// Package phase_shift registers the phase_shift preprocessing step, which
// compensates for the per-channel ADC sampling offset of multiplexed probes.
// The correction itself happens in the processing backend.
package phase_shift

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
	MarginMs float64 `spw:"margin_ms"`
}

// OnApplyPhaseShift validates the kwargs and emits the backend step spec.
func OnApplyPhaseShift(ctx context.Context, input *Input) (engine.StepSpec, error) {
	if input.MarginMs < 0 {
		return engine.StepSpec{}, fmt.Errorf("margin_ms must not be negative, got %v", input.MarginMs)
	}

	return engine.StepSpec{
		Name:   "phase_shift",
		Kwargs: map[string]any{"margin_ms": input.MarginMs},
	}, nil
}

// Register registers the step with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("phase_shift", &registry.RegisteredStep{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnApplyPhaseShift,
		Manifest:  manifest,
	})
}
