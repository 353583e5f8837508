// Package common_reference registers the common_reference preprocessing
// step (median or average referencing across channels).
package common_reference

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
	Operator  string `spw:"operator"`
	Reference string `spw:"reference"`
}

// OnApplyCommonReference validates the operator/reference pair and emits the
// backend step spec.
func OnApplyCommonReference(ctx context.Context, input *Input) (engine.StepSpec, error) {
	switch input.Operator {
	case "median", "average":
	default:
		return engine.StepSpec{}, fmt.Errorf("operator must be \"median\" or \"average\", got %q", input.Operator)
	}

	switch input.Reference {
	case "global", "single", "local":
	default:
		return engine.StepSpec{}, fmt.Errorf("reference must be \"global\", \"single\" or \"local\", got %q", input.Reference)
	}

	return engine.StepSpec{
		Name: "common_reference",
		Kwargs: map[string]any{
			"operator":  input.Operator,
			"reference": input.Reference,
		},
	}, nil
}

// Register registers the step with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("common_reference", &registry.RegisteredStep{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnApplyCommonReference,
		Manifest:  manifest,
	})
}
