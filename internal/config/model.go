// Package config loads, validates, and stores spikewrap pipeline
// configurations.
//
// A configuration is a YAML document with two sections:
//
//	preprocessing:
//	  "1": ["phase_shift", {}]
//	  "2": ["bandpass_filter", {freq_min: 300, freq_max: 6000}]
//	sorting:
//	  kilosort2_5: {car: false}
//
// The preprocessing section is an ordered mapping of step index to a
// [step_name, {kwarg: value}] pair. Step indices must start at 1 and
// increase by exactly 1.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// Step is one named, parameterized preprocessing step.
type Step struct {
	Order  int
	Name   string
	Kwargs map[string]any
}

// Pipeline is the in-memory form of a configuration file.
type Pipeline struct {
	// Steps is ordered by Step.Order.
	Steps []Step
	// Sorting maps sorter name to its keyword arguments.
	Sorting map[string]map[string]any
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// Sorter returns the single sorter configured in the sorting section. The
// original tool supports exactly one sorter per sort invocation; if the
// section names a different sorter than requested the request wins, with
// empty kwargs.
func (p *Pipeline) Sorter(name string) (string, map[string]any, error) {
	if name == "" {
		if len(p.Sorting) != 1 {
			return "", nil, fmt.Errorf("config must declare exactly one sorter when none is requested, found %d", len(p.Sorting))
		}
		for sorter, kwargs := range p.Sorting {
			return sorter, kwargs, nil
		}
	}
	if kwargs, ok := p.Sorting[name]; ok {
		return name, kwargs, nil
	}
	return name, map[string]any{}, nil
}

// Validate checks step-index contiguity and step-name presence. Registered
// step names are checked later against the step registry, which owns that
// knowledge.
func (p *Pipeline) Validate() error {
	for i, step := range p.Steps {
		if step.Order != i+1 {
			return fmt.Errorf("preprocessing step indices must start at 1 and increase by 1: step %d has index %d", i+1, step.Order)
		}
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("preprocessing step %d has an empty name", step.Order)
		}
	}
	return nil
}

// sortSteps orders steps by index after decoding from an unordered mapping.
func sortSteps(steps []Step) {
	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
}
