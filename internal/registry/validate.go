package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Validate performs a strict parity check between each step's manifest and
// its Go handler: every declared input must map to a tagged struct field of
// a compatible type, and vice versa. A mismatch is a defect in the module
// itself, not in user configuration.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for stepName, handler := range r.handlers {
		def, ok := r.definitions[stepName]
		if !ok {
			errs = append(errs, fmt.Sprintf("step %q: handler registered but manifest not loaded", stepName))
			continue
		}

		if handler.InputType == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("step %q: manifest declares inputs, but the Go handler has no input struct", stepName))
			}
			continue
		}

		goInputs := make(map[string]reflect.StructField)
		for i := 0; i < handler.InputType.NumField(); i++ {
			field := handler.InputType.Field(i)
			if name := tagBaseName(field); name != "" {
				goInputs[name] = field
			}
		}

		for name := range goInputs {
			if _, ok := def.Inputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("step %q: Go struct binds kwarg %q which the manifest does not declare", stepName, name))
			}
		}
		for name := range def.Inputs {
			if _, ok := goInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("step %q: manifest declares input %q with no bound Go struct field", stepName, name))
			}
		}

		for name, inputDef := range def.Inputs {
			goField, ok := goInputs[name]
			if !ok {
				continue
			}
			if inputDef.Type.Equals(cty.DynamicPseudoType) {
				logger.Warn("Manifest input uses 'type = any', disabling static type checking.",
					"step", stepName, "input", name)
				continue
			}

			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("step %q input %q: cannot imply cty type from Go field type %s: %v",
					stepName, name, goField.Type, err))
				continue
			}
			if !inputDef.Type.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("step %q input %q: manifest requires %s but Go field %s provides %s",
					stepName, name, inputDef.Type.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
