package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ctyFromYAML converts a value decoded from YAML into a cty.Value. YAML
// kwargs only contain scalars, sequences, and string-keyed mappings.
func ctyFromYAML(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case string:
		return cty.StringVal(val), nil
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(val))
		for i, elem := range val {
			converted, err := ctyFromYAML(elem)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = converted
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(val))
		for key, elem := range val {
			converted, err := ctyFromYAML(elem)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[key] = converted
		}
		if len(attrs) == 0 {
			return cty.EmptyObjectVal, nil
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported YAML value type %T", v)
	}
}

// convertToType applies cty's conversion rules, so e.g. an integer YAML
// kwarg satisfies a `number` declaration.
func convertToType(val cty.Value, want cty.Type) (cty.Value, error) {
	converted, err := convert.Convert(val, want)
	if err != nil {
		return cty.NilVal, fmt.Errorf("expected %s: %w", want.FriendlyName(), err)
	}
	return converted, nil
}

// decodeKwargs type-checks config kwargs against a step definition, applies
// declared defaults, and populates the handler's input struct through its
// `spw` field tags.
func decodeKwargs(def *StepDefinition, kwargs map[string]any, inputStruct any) error {
	for name := range kwargs {
		if _, declared := def.Inputs[name]; !declared {
			return fmt.Errorf("step %q does not accept kwarg %q (accepted: %s)",
				def.Name, name, strings.Join(inputNames(def), ", "))
		}
	}

	values := make(map[string]cty.Value, len(def.Inputs))
	for name, inputDef := range def.Inputs {
		raw, supplied := kwargs[name]
		switch {
		case supplied:
			val, err := ctyFromYAML(raw)
			if err != nil {
				return fmt.Errorf("step %q kwarg %q: %w", def.Name, name, err)
			}
			converted, err := convertToType(val, inputDef.Type)
			if err != nil {
				return fmt.Errorf("step %q kwarg %q: %w", def.Name, name, err)
			}
			values[name] = converted
		case inputDef.Default != nil:
			values[name] = *inputDef.Default
		case inputDef.Optional:
			values[name] = cty.NullVal(inputDef.Type)
		default:
			return fmt.Errorf("step %q is missing required kwarg %q", def.Name, name)
		}
	}

	return decodeIntoStruct(def.Name, values, inputStruct)
}

// decodeIntoStruct assigns decoded cty values to the tagged fields of the
// handler's input struct.
func decodeIntoStruct(stepName string, values map[string]cty.Value, inputStruct any) error {
	structVal := reflect.ValueOf(inputStruct)
	if structVal.Kind() != reflect.Pointer || structVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("step %q input must be a pointer to struct, got %T", stepName, inputStruct)
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tagName := tagBaseName(field)
		if tagName == "" {
			continue
		}

		val, ok := values[tagName]
		if !ok || val.IsNull() {
			continue
		}

		if err := gocty.FromCtyValue(val, structVal.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("step %q kwarg %q: cannot assign to field %s: %w",
				stepName, tagName, field.Name, err)
		}
	}
	return nil
}

// tagBaseName returns the kwarg name bound to a struct field via its `spw`
// tag, or "" when the field is unbound.
func tagBaseName(field reflect.StructField) string {
	if !field.IsExported() {
		return ""
	}
	tag := field.Tag.Get("spw")
	name := strings.Split(tag, ",")[0]
	if name == "-" {
		return ""
	}
	return name
}

func inputNames(def *StepDefinition) []string {
	names := make([]string, 0, len(def.Inputs))
	for name := range def.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
