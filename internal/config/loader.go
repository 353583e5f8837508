package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// document mirrors the on-disk YAML structure before index decoding.
type document struct {
	Preprocessing map[string]yaml.Node      `yaml:"preprocessing"`
	Sorting       map[string]map[string]any `yaml:"sorting"`
}

// Parse decodes a YAML configuration document.
func Parse(data []byte) (*Pipeline, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	pipeline := &Pipeline{Sorting: doc.Sorting}
	if pipeline.Sorting == nil {
		pipeline.Sorting = map[string]map[string]any{}
	}

	for key, node := range doc.Preprocessing {
		order, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("preprocessing step index %q is not an integer", key)
		}

		step, err := decodeStep(order, &node)
		if err != nil {
			return nil, err
		}
		pipeline.Steps = append(pipeline.Steps, step)
	}
	sortSteps(pipeline.Steps)

	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// decodeStep decodes one "[step_name, {kwarg: value}]" entry.
func decodeStep(order int, node *yaml.Node) (Step, error) {
	var entry []yaml.Node
	if err := node.Decode(&entry); err != nil {
		return Step{}, fmt.Errorf("preprocessing step %d must be a [name, {kwargs}] list: %w", order, err)
	}
	if len(entry) == 0 || len(entry) > 2 {
		return Step{}, fmt.Errorf("preprocessing step %d must be a [name, {kwargs}] list, got %d elements", order, len(entry))
	}

	var name string
	if err := entry[0].Decode(&name); err != nil {
		return Step{}, fmt.Errorf("preprocessing step %d has a non-string name: %w", order, err)
	}

	kwargs := map[string]any{}
	if len(entry) == 2 {
		if err := entry[1].Decode(&kwargs); err != nil {
			return Step{}, fmt.Errorf("preprocessing step %d (%s) has invalid kwargs: %w", order, name, err)
		}
	}

	return Step{Order: order, Name: name, Kwargs: kwargs}, nil
}

// LoadFile parses a configuration from a YAML file path.
func LoadFile(path string) (*Pipeline, error) {
	if !isYAMLPath(path) {
		return nil, fmt.Errorf("config file %s is not a YAML file: must end in .yaml or .yml", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Marshal renders a pipeline back to the on-disk YAML structure.
func Marshal(p *Pipeline) ([]byte, error) {
	preprocessing := make(map[string][]any, len(p.Steps))
	for _, step := range p.Steps {
		preprocessing[strconv.Itoa(step.Order)] = []any{step.Name, step.Kwargs}
	}

	doc := map[string]any{
		"preprocessing": preprocessing,
		"sorting":       p.Sorting,
	}
	return yaml.Marshal(doc)
}

// Render produces a human-readable listing of a pipeline for display.
func Render(p *Pipeline) string {
	var b strings.Builder
	b.WriteString("preprocessing steps:\n")
	for _, step := range p.Steps {
		fmt.Fprintf(&b, "  %d. %s %v\n", step.Order, step.Name, step.Kwargs)
	}
	if len(p.Sorting) > 0 {
		b.WriteString("sorting:\n")
		for sorter, kwargs := range p.Sorting {
			fmt.Fprintf(&b, "  %s %v\n", sorter, kwargs)
		}
	}
	return b.String()
}

func isYAMLPath(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
