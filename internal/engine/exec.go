package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
)

// DefaultBackendCommand is the processing backend invoked when no override
// is configured.
const DefaultBackendCommand = "spikewrap-backend"

// ExecEngine invokes the processing backend as a subprocess. Each call runs
// `<command> <verb>` with a JSON job document on stdin and, where the verb
// produces a reply, parses JSON from stdout. Backend stderr is folded into
// returned errors.
type ExecEngine struct {
	// Command is the backend executable name or path.
	Command string
}

// NewExecEngine returns an ExecEngine for the given backend command, using
// DefaultBackendCommand when command is empty.
func NewExecEngine(command string) *ExecEngine {
	if command == "" {
		command = DefaultBackendCommand
	}
	return &ExecEngine{Command: command}
}

// invoke runs one backend verb, decoding the stdout reply into out when out
// is non-nil.
func (e *ExecEngine) invoke(ctx context.Context, verb string, job any, out any) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode %s job: %w", verb, err)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Invoking processing backend.", "command", e.Command, "verb", verb)

	cmd := exec.CommandContext(ctx, e.Command, verb)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = "(no stderr output)"
		}
		return fmt.Errorf("backend %s %s failed: %w: %s", e.Command, verb, err, detail)
	}

	if out != nil {
		if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
			return fmt.Errorf("failed to decode backend %s reply: %w", verb, err)
		}
	}
	return nil
}

type probeJob struct {
	RunPath string        `json:"run_path"`
	Format  layout.Format `json:"format"`
}

// Probe implements Engine.
func (e *ExecEngine) Probe(ctx context.Context, runPath string, format layout.Format) (Metadata, error) {
	var meta Metadata
	err := e.invoke(ctx, "probe", probeJob{RunPath: runPath, Format: format}, &meta)
	return meta, err
}

type processJob struct {
	Recording Recording `json:"recording"`
	OutputDir string    `json:"output_dir"`
}

// Process implements Engine.
func (e *ExecEngine) Process(ctx context.Context, rec Recording, outputDir string) error {
	return e.invoke(ctx, "process", processJob{Recording: rec, OutputDir: outputDir}, nil)
}

// Sort implements Engine.
func (e *ExecEngine) Sort(ctx context.Context, job SortJob) error {
	return e.invoke(ctx, "sort", job, nil)
}

type qualityJob struct {
	SortingDir string `json:"sorting_dir"`
	OutputDir  string `json:"output_dir"`
}

// QualityMetrics implements Engine.
func (e *ExecEngine) QualityMetrics(ctx context.Context, sortingDir, outputDir string) error {
	return e.invoke(ctx, "quality", qualityJob{SortingDir: sortingDir, OutputDir: outputDir}, nil)
}

type syncReply struct {
	Samples []int16 `json:"samples"`
}

// SyncChannel implements Engine.
func (e *ExecEngine) SyncChannel(ctx context.Context, rec Recording) ([]int16, error) {
	var reply syncReply
	if err := e.invoke(ctx, "sync", rec, &reply); err != nil {
		return nil, err
	}
	return reply.Samples, nil
}

var _ Engine = (*ExecEngine)(nil)
