// Package session orchestrates the preprocess/save lifecycle of one
// electrophysiology session: run discovery, optional concatenation, lazy
// preprocessing chains and parallel saving.
package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/config"
	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/neuroinformatics-unit/spikewrap/internal/fsutil"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
	"github.com/neuroinformatics-unit/spikewrap/internal/registry"
	"github.com/neuroinformatics-unit/spikewrap/internal/sorting"
	"github.com/neuroinformatics-unit/spikewrap/internal/worker"
)

// Session manages the runs of one raw session folder.
type Session struct {
	eng engine.Engine
	reg *registry.Registry

	subjectPath string
	name        string
	format      layout.Format
	// runNames, when non-empty, restricts and orders run discovery.
	runNames   []string
	outputPath string

	runs []*Run
}

// Option configures a Session at construction.
type Option func(*Session)

// WithRunNames restricts the session to the named runs, in the given order.
func WithRunNames(names ...string) Option {
	return func(s *Session) { s.runNames = names }
}

// WithOutputPath overrides the inferred derivatives output folder. Required
// when the raw session does not sit in a NeuroBlueprint tree.
func WithOutputPath(path string) Option {
	return func(s *Session) { s.outputPath = path }
}

// New opens a session folder for processing. subjectPath is the raw subject
// folder; sesName the session folder within it. The output path is inferred
// from the NeuroBlueprint structure unless WithOutputPath is given.
func New(ctx context.Context, eng engine.Engine, reg *registry.Registry,
	subjectPath, sesName string, format layout.Format, opts ...Option) (*Session, error) {

	sesPath := filepath.Join(subjectPath, sesName)
	if !fsutil.DirExists(sesPath) {
		return nil, fmt.Errorf("session folder does not exist: %s", sesPath)
	}

	s := &Session{
		eng:         eng,
		reg:         reg,
		subjectPath: subjectPath,
		name:        sesName,
		format:      format,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.outputPath == "" {
		out, err := layout.OutputFromRawSession(sesPath)
		if err != nil {
			return nil, err
		}
		s.outputPath = out
	}

	if err := s.refreshRuns(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the session folder name.
func (s *Session) Name() string { return s.name }

// OutputPath returns the session's derivatives folder.
func (s *Session) OutputPath() string { return s.outputPath }

// RunNames returns the names of the session's current runs. After a
// concatenating Preprocess this is the single concatenated run.
func (s *Session) RunNames() []string {
	names := make([]string, len(s.runs))
	for i, run := range s.runs {
		names[i] = run.name
	}
	return names
}

// refreshRuns rebuilds the run list from the raw session folder, discarding
// any loaded or preprocessed state.
func (s *Session) refreshRuns(ctx context.Context) error {
	sesPath := filepath.Join(s.subjectPath, s.name)
	runPaths, err := layout.DiscoverRunPaths(ctx, s.format, sesPath, s.runNames)
	if err != nil {
		return err
	}

	s.runs = make([]*Run, len(runPaths))
	for i, runPath := range runPaths {
		s.runs[i] = newRun(runPath, filepath.Base(runPath), s.format, s.outputPath)
	}
	return nil
}

// LoadRawData probes every run's raw folder through the backend, populating
// the recording descriptors. Sample data itself is never loaded here.
func (s *Session) LoadRawData(ctx context.Context) error {
	for _, run := range s.runs {
		if err := run.load(ctx, s.eng); err != nil {
			return err
		}
	}
	return nil
}

// PreprocessOptions configures Session.Preprocess.
type PreprocessOptions struct {
	// ConcatRuns concatenates all runs into one before preprocessing.
	ConcatRuns bool
	// PerShank splits each recording by shank group before the chain runs.
	PerShank bool
}

// Preprocess (re)builds every run's preprocessing chain from the raw data.
// The chain is lazy: nothing is executed until SavePreprocessed.
func (s *Session) Preprocess(ctx context.Context, pipeline *config.Pipeline, opts PreprocessOptions) error {
	if err := pipeline.Validate(); err != nil {
		return err
	}

	// Preprocessing always restarts from the raw data on disk.
	if err := s.refreshRuns(ctx); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Preprocessing session.",
		"session", s.name, "runs", s.RunNames(), "steps", pipeline.StepNames(),
		"concatRuns", opts.ConcatRuns, "perShank", opts.PerShank)

	if err := s.LoadRawData(ctx); err != nil {
		return err
	}

	if opts.ConcatRuns {
		if len(s.runs) < 2 {
			return fmt.Errorf("session %s has %d run(s): concatenation needs at least two",
				s.name, len(s.runs))
		}
		merged, err := concatenateRuns(s.runs, s.outputPath)
		if err != nil {
			return fmt.Errorf("session %s: %w", s.name, err)
		}
		s.runs = []*Run{merged}
	}

	for _, run := range s.runs {
		if err := run.preprocess(ctx, s.reg, pipeline.Steps, opts.PerShank); err != nil {
			return err
		}
	}
	return nil
}

// SaveOptions configures Session.SavePreprocessed.
type SaveOptions struct {
	// Overwrite replaces existing run output, keeping SLURM logs.
	Overwrite bool
	// Workers caps how many runs are saved concurrently; 0 means serial.
	Workers int
}

// SavePreprocessed executes each run's preprocessing chain and writes the
// results to the session output folder. Runs are saved in parallel when
// opts.Workers allows.
func (s *Session) SavePreprocessed(ctx context.Context, opts SaveOptions) error {
	if len(s.runs) == 0 {
		return fmt.Errorf("session %s has no runs to save", s.name)
	}

	tasks := make([]worker.Task, 0, len(s.runs))
	for _, run := range s.runs {
		run := run
		tasks = append(tasks, worker.Task{
			Name: run.name,
			Fn: func(ctx context.Context) error {
				ctx = ctxlog.With(ctx, "run", run.name)
				return run.savePreprocessed(ctx, s.eng, opts.Overwrite)
			},
		})
	}
	return worker.Run(ctx, opts.Workers, tasks)
}

// Sort runs the sorter over the session's current runs' saved preprocessed
// output. SavePreprocessed must have completed first.
func (s *Session) Sort(ctx context.Context, opts sorting.Options) error {
	return sorting.Sort(ctx, s.eng, s.outputPath, s.RunNames(), opts)
}

// HasSavedPreprocessed reports whether every current run already has saved
// preprocessed output on disk.
func (s *Session) HasSavedPreprocessed() bool {
	if len(s.runs) == 0 {
		return false
	}
	for _, run := range s.runs {
		if !fsutil.DirExists(run.output.Preprocessed("")) {
			return false
		}
	}
	return true
}

// SavedRunNames resolves the runs to sort when reusing saved preprocessed
// output. When every run of the current selection has saved output, the
// selection is used as-is; otherwise the session output path is scanned
// (covering runs that were concatenated on a previous invocation).
func (s *Session) SavedRunNames() ([]string, error) {
	if s.HasSavedPreprocessed() {
		return s.RunNames(), nil
	}

	dirs, err := fsutil.ListDirs(s.outputPath)
	if err != nil {
		return nil, fmt.Errorf("no session output found at %s: %w", s.outputPath, err)
	}

	var names []string
	for _, dir := range dirs {
		prep := layout.NewRunOutput(s.outputPath, dir).Preprocessed("")
		if fsutil.DirExists(prep) {
			names = append(names, dir)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no saved preprocessed runs found under %s", s.outputPath)
	}

	// A saved concatenated run supersedes the raw runs it was built from.
	for _, name := range names {
		if name == canon.ConcatRunName() {
			return []string{name}, nil
		}
	}
	return names, nil
}
