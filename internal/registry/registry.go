// Package registry holds the supported preprocessing steps: for each step a
// Go handler plus an HCL manifest declaring its typed keyword arguments.
// Config-supplied kwargs are type-checked against the manifest, decoded into
// the handler's input struct, and the handler produces the step spec passed
// through to the processing backend.
package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Module is implemented by step packages to register themselves.
type Module interface {
	Register(r *Registry)
}

// RegisteredStep holds the compiled Go parts of a step and its manifest
// source. Fn must have the signature
// func(ctx context.Context, input *T) (engine.StepSpec, error).
type RegisteredStep struct {
	NewInput  func() any
	InputType reflect.Type
	Fn        any
	Manifest  []byte
}

// InputDefinition is one declared kwarg of a step manifest.
type InputDefinition struct {
	Name     string
	Type     cty.Type
	Default  *cty.Value
	Optional bool
}

// StepDefinition is the parsed form of a step manifest.
type StepDefinition struct {
	Name        string
	Description string
	Inputs      map[string]*InputDefinition
}

// Registry maps step names to handlers and parsed manifest definitions for
// one application instance.
type Registry struct {
	handlers    map[string]*RegisteredStep
	definitions map[string]*StepDefinition
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		handlers:    make(map[string]*RegisteredStep),
		definitions: make(map[string]*StepDefinition),
	}
}

// RegisterStep registers a step handler under name. Registering the same
// name twice is a programmer error and panics.
func (r *Registry) RegisterStep(name string, step *RegisteredStep) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("step handler %q already registered", name))
	}
	r.handlers[name] = step
}

// LoadManifests parses the manifest source of every registered step.
func (r *Registry) LoadManifests(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	for name, step := range r.handlers {
		def, err := parseManifest(name, step.Manifest)
		if err != nil {
			return fmt.Errorf("failed to load manifest for step %q: %w", name, err)
		}
		r.definitions[name] = def
		logger.Debug("Loaded step manifest.", "step", name, "inputs", len(def.Inputs))
	}

	logger.Debug("Registry manifests loaded.", "steps", len(r.definitions))
	return nil
}

// StepNames returns the registered step names, sorted.
func (r *Registry) StepNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the parsed manifest of a step.
func (r *Registry) Definition(name string) (*StepDefinition, bool) {
	def, ok := r.definitions[name]
	return def, ok
}
