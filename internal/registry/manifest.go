package registry

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// manifestSchema mirrors the HCL structure of a step manifest:
//
//	step "bandpass_filter" {
//	  description = "..."
//	  input "freq_min" {
//	    type     = number
//	    default  = 300
//	    optional = true
//	  }
//	}
type manifestSchema struct {
	Steps []*stepSchema `hcl:"step,block"`
}

type stepSchema struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Inputs      []*inputSchema `hcl:"input,block"`
}

type inputSchema struct {
	Name     string         `hcl:"name,label"`
	Type     hcl.Expression `hcl:"type"`
	Default  hcl.Expression `hcl:"default,optional"`
	Optional bool           `hcl:"optional,optional"`
}

// parseManifest parses one step's manifest source and checks that it
// declares exactly the step it is registered under.
func parseManifest(stepName string, src []byte) (*StepDefinition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, stepName+"/manifest.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid manifest HCL: %w", diags)
	}

	var manifest manifestSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &manifest); diags.HasErrors() {
		return nil, fmt.Errorf("invalid manifest structure: %w", diags)
	}

	if len(manifest.Steps) != 1 {
		return nil, fmt.Errorf("manifest must declare exactly one step block, found %d", len(manifest.Steps))
	}
	block := manifest.Steps[0]
	if block.Name != stepName {
		return nil, fmt.Errorf("manifest declares step %q but is registered as %q", block.Name, stepName)
	}

	def := &StepDefinition{
		Name:        block.Name,
		Description: block.Description,
		Inputs:      make(map[string]*InputDefinition, len(block.Inputs)),
	}

	for _, input := range block.Inputs {
		if _, exists := def.Inputs[input.Name]; exists {
			return nil, fmt.Errorf("manifest declares input %q twice", input.Name)
		}

		ctyType, diags := typeexpr.TypeConstraint(input.Type)
		if diags.HasErrors() {
			return nil, fmt.Errorf("input %q has an invalid type expression: %w", input.Name, diags)
		}

		inputDef := &InputDefinition{
			Name:     input.Name,
			Type:     ctyType,
			Optional: input.Optional,
		}

		if input.Default != nil {
			val, diags := input.Default.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("input %q has an invalid default: %w", input.Name, diags)
			}
			if !val.IsNull() {
				converted, err := convertToType(val, ctyType)
				if err != nil {
					return nil, fmt.Errorf("input %q default does not match declared type: %w", input.Name, err)
				}
				inputDef.Default = &converted
				// A defaulted input never has to be supplied.
				inputDef.Optional = true
			}
		}

		def.Inputs[input.Name] = inputDef
	}

	return def, nil
}
