package slurm

import (
	"fmt"
	"strings"
)

// Job is one pipeline invocation to submit as a batch job.
type Job struct {
	// Name becomes the SLURM job name.
	Name string
	// Profile supplies the resource directives.
	Profile Profile
	// LogDir receives the batch script and the job's stdout/stderr.
	LogDir string
	// Command is the argv to run on the allocated node.
	Command []string
}

// Script renders the sbatch submission script for a job.
func Script(job Job) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")

	directive := func(format string, args ...any) {
		fmt.Fprintf(&b, "#SBATCH "+format+"\n", args...)
	}

	directive("--job-name=%s", job.Name)
	if job.Profile.Nodes > 0 {
		directive("--nodes=%d", job.Profile.Nodes)
	}
	if job.Profile.MemGB > 0 {
		directive("--mem=%dG", job.Profile.MemGB)
	}
	if job.Profile.TimeoutMin > 0 {
		directive("--time=%d", job.Profile.TimeoutMin)
	}
	if job.Profile.CPUsPerTask > 0 {
		directive("--cpus-per-task=%d", job.Profile.CPUsPerTask)
	}
	if job.Profile.Partition != "" {
		directive("--partition=%s", job.Profile.Partition)
	}
	if job.Profile.GRES != "" {
		directive("--gres=%s", job.Profile.GRES)
	}
	if job.Profile.Exclude != "" {
		directive("--exclude=%s", job.Profile.Exclude)
	}
	directive("--output=%s", job.LogDir+"/slurm-%j.out")
	directive("--error=%s", job.LogDir+"/slurm-%j.err")

	b.WriteString("\nset -euo pipefail\n")
	for _, line := range job.Profile.EnvSetup {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\nexec ")
	b.WriteString(shellJoin(job.Command))
	b.WriteString("\n")
	return b.String()
}

// shellJoin quotes argv for a bash script line.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$`&|;<>()*?[]#~{}!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
