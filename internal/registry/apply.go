package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/neuroinformatics-unit/spikewrap/internal/config"
	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
)

// Apply runs one configured preprocessing step against a recording: decode
// and type-check the kwargs, call the handler, and append the resulting spec
// to the recording's processing chain.
func (r *Registry) Apply(ctx context.Context, rec engine.Recording, step config.Step) (engine.Recording, error) {
	handler, ok := r.handlers[step.Name]
	if !ok {
		return engine.Recording{}, fmt.Errorf("step %q is not a supported preprocessing step (supported: %s)",
			step.Name, strings.Join(r.StepNames(), ", "))
	}
	def, ok := r.definitions[step.Name]
	if !ok {
		return engine.Recording{}, fmt.Errorf("manifest for step %q has not been loaded", step.Name)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Applying preprocessing step.", "step", step.Name, "order", step.Order)

	inputStruct := handler.NewInput()
	if inputStruct != nil {
		if err := decodeKwargs(def, step.Kwargs, inputStruct); err != nil {
			return engine.Recording{}, err
		}
	}

	spec, err := callHandler(ctx, handler, inputStruct)
	if err != nil {
		return engine.Recording{}, fmt.Errorf("step %q failed: %w", step.Name, err)
	}

	return rec.WithStep(spec), nil
}

// callHandler invokes the handler function through reflection. Handlers have
// the signature func(ctx, *Input) (engine.StepSpec, error); handlers without
// inputs receive a typed nil pointer.
func callHandler(ctx context.Context, handler *RegisteredStep, inputStruct any) (engine.StepSpec, error) {
	fn := reflect.ValueOf(handler.Fn)
	args := []reflect.Value{reflect.ValueOf(ctx)}

	if inputStruct == nil {
		args = append(args, reflect.Zero(fn.Type().In(1)))
	} else {
		args = append(args, reflect.ValueOf(inputStruct))
	}

	results := fn.Call(args)
	spec := results[0].Interface().(engine.StepSpec)
	if errResult := results[1].Interface(); errResult != nil {
		return engine.StepSpec{}, errResult.(error)
	}
	return spec, nil
}
