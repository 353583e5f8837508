// Package slurm submits pipeline invocations as SLURM batch jobs. Resource
// profiles are declared in HCL; a built-in cpu and gpu profile ship with the
// tool and a user file can replace them.
package slurm

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed profiles.hcl
var defaultProfilesHCL []byte

// Profile describes the SLURM resources of one job class.
type Profile struct {
	Name        string   `hcl:"name,label"`
	Partition   string   `hcl:"partition,optional"`
	Nodes       int      `hcl:"nodes,optional"`
	MemGB       int      `hcl:"mem_gb,optional"`
	TimeoutMin  int      `hcl:"timeout_min,optional"`
	CPUsPerTask int      `hcl:"cpus_per_task,optional"`
	GRES        string   `hcl:"gres,optional"`
	Exclude     string   `hcl:"exclude,optional"`
	// EnvSetup lines run in the batch script before the pipeline command
	// (module loads, environment activation).
	EnvSetup []string `hcl:"env_setup,optional"`
}

type profilesFile struct {
	Profiles []Profile `hcl:"profile,block"`
}

// LoadProfiles parses HPC profiles from path, or the built-in profiles when
// path is empty.
func LoadProfiles(path string) ([]Profile, error) {
	src := defaultProfilesHCL
	filename := "profiles.hcl (built-in)"
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read HPC profiles: %w", err)
		}
		src = data
		filename = path
	}
	return parseProfiles(src, filename)
}

func parseProfiles(src []byte, filename string) ([]Profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HPC profiles %s: %w", filename, diags)
	}

	var pf profilesFile
	if diags := gohcl.DecodeBody(file.Body, nil, &pf); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HPC profiles %s: %w", filename, diags)
	}

	seen := make(map[string]bool, len(pf.Profiles))
	for _, p := range pf.Profiles {
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate HPC profile %q in %s", p.Name, filename)
		}
		seen[p.Name] = true
	}
	return pf.Profiles, nil
}

// FindProfile selects a profile by name.
func FindProfile(profiles []Profile, name string) (Profile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}

	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return Profile{}, fmt.Errorf("no HPC profile named %q: available profiles are %v", name, names)
}
