package session

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sbinet/npyio"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/config"
	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/neuroinformatics-unit/spikewrap/internal/fsutil"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
	"github.com/neuroinformatics-unit/spikewrap/internal/registry"
)

// Run holds one run's recordings through the preprocess/save lifecycle.
// Recordings are descriptors only; sample data stays with the backend until
// savePreprocessed executes the chain.
type Run struct {
	name    string
	runPath string // raw source folder; empty for a concatenated run
	format  layout.Format
	output  layout.RunOutput

	// raw and preprocessed recordings, keyed by the grouped placeholder or
	// canonical shank names.
	raw          map[string]engine.Recording
	preprocessed map[string]engine.Recording
	syncRec      *engine.Recording

	// origRunNames is set on a concatenated run, in concatenation order.
	origRunNames []string
}

func newRun(runPath, name string, format layout.Format, sessionOutputPath string) *Run {
	return &Run{
		name:    name,
		runPath: runPath,
		format:  format,
		output:  layout.NewRunOutput(sessionOutputPath, name),
	}
}

// Name returns the run folder name (or the canonical concatenated-run name).
func (r *Run) Name() string { return r.name }

// Output returns the run's output folder set.
func (r *Run) Output() layout.RunOutput { return r.output }

// load probes the raw run folder and initialises the recording descriptors.
func (r *Run) load(ctx context.Context, eng engine.Engine) error {
	meta, err := eng.Probe(ctx, r.runPath, r.format)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", r.name, err)
	}

	rec := engine.Recording{
		Format:      r.format,
		SourcePaths: []string{r.runPath},
		Meta:        meta,
	}
	r.raw = map[string]engine.Recording{canon.GroupedShankName(): rec}
	if meta.HasSync {
		sync := rec
		r.syncRec = &sync
	}

	ctxlog.FromContext(ctx).Debug("Loaded raw run.",
		"run", r.name, "channels", meta.NumChannels, "samplingHz", meta.SamplingHz, "sync", meta.HasSync)
	return nil
}

// concatenateRuns merges loaded runs into a single run named after the
// canonical concatenation placeholder. The inputs must be loaded and not yet
// preprocessed; concatenation order is the order given.
func concatenateRuns(runs []*Run, sessionOutputPath string) (*Run, error) {
	recs := make([]engine.Recording, 0, len(runs))
	names := make([]string, 0, len(runs))
	for _, run := range runs {
		rec, ok := run.raw[canon.GroupedShankName()]
		if !ok {
			return nil, fmt.Errorf("run %s has not been loaded", run.name)
		}
		recs = append(recs, rec)
		names = append(names, run.name)
	}

	merged, err := engine.Concatenate(recs)
	if err != nil {
		return nil, err
	}

	out := newRun("", canon.ConcatRunName(), runs[0].format, sessionOutputPath)
	out.raw = map[string]engine.Recording{canon.GroupedShankName(): merged}
	out.origRunNames = names
	if merged.Meta.HasSync {
		sync := merged
		out.syncRec = &sync
	}
	return out, nil
}

// preprocess builds the run's preprocessed recordings by applying the
// configured step chain, optionally splitting by shank group first.
func (r *Run) preprocess(ctx context.Context, reg *registry.Registry, steps []config.Step, perShank bool) error {
	if r.raw == nil {
		return fmt.Errorf("run %s has not been loaded", r.name)
	}

	input := r.raw
	if perShank {
		grouped, ok := r.raw[canon.GroupedShankName()]
		if !ok {
			return fmt.Errorf("run %s has no grouped recording to split", r.name)
		}
		split, err := grouped.SplitByGroup()
		if err != nil {
			return fmt.Errorf("run %s: %w", r.name, err)
		}
		input = split
	}

	out := make(map[string]engine.Recording, len(input))
	for key, rec := range input {
		for _, step := range steps {
			var err error
			rec, err = reg.Apply(ctx, rec, step)
			if err != nil {
				return fmt.Errorf("run %s: %w", r.name, err)
			}
		}
		out[key] = rec
	}
	r.preprocessed = out
	return nil
}

// savePreprocessed executes each preprocessed recording's chain into the run
// output folder and persists the sync channel and concatenation manifest.
// With overwrite, existing outputs are wiped except SLURM logs.
func (r *Run) savePreprocessed(ctx context.Context, eng engine.Engine, overwrite bool) error {
	if r.preprocessed == nil {
		return fmt.Errorf("run %s has not been preprocessed; nothing to save", r.name)
	}

	prepRoot := r.output.Preprocessed("")
	if fsutil.DirExists(prepRoot) {
		if !overwrite {
			return fmt.Errorf("preprocessed output already exists at %s: pass overwrite to replace it", prepRoot)
		}
		// SLURM logs of earlier submissions are never deleted.
		if err := fsutil.RemoveContentsExcept(r.output.Root, canon.SlurmLogs()); err != nil {
			return fmt.Errorf("failed to clear existing output for run %s: %w", r.name, err)
		}
	}
	if err := os.MkdirAll(r.output.Root, 0o755); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	for _, key := range sortedKeys(r.preprocessed) {
		dir := r.output.Preprocessed(key)
		logger.Info("Saving preprocessed recording.", "shank", key, "path", dir)
		if err := eng.Process(ctx, r.preprocessed[key], dir); err != nil {
			return fmt.Errorf("failed to save preprocessed recording for run %s: %w", r.name, err)
		}
	}

	if r.syncRec != nil {
		if err := r.writeSyncChannel(ctx, eng); err != nil {
			return err
		}
	}
	if len(r.origRunNames) > 0 {
		if err := r.writeOrigRunNames(); err != nil {
			return err
		}
	}
	return nil
}

// writeSyncChannel extracts the raw sync channel and saves it in NumPy
// format next to the preprocessed output.
func (r *Run) writeSyncChannel(ctx context.Context, eng engine.Engine) error {
	samples, err := eng.SyncChannel(ctx, *r.syncRec)
	if err != nil {
		return fmt.Errorf("failed to extract sync channel for run %s: %w", r.name, err)
	}

	if err := os.MkdirAll(r.output.Sync(), 0o755); err != nil {
		return err
	}
	f, err := os.Create(r.output.SyncChannelFile())
	if err != nil {
		return err
	}
	defer f.Close()

	if err := npyio.Write(f, samples); err != nil {
		return fmt.Errorf("failed to write sync channel for run %s: %w", r.name, err)
	}
	return f.Close()
}

// writeOrigRunNames records which raw runs a concatenated run was built from.
func (r *Run) writeOrigRunNames() error {
	data := strings.Join(r.origRunNames, "\n") + "\n"
	return os.WriteFile(r.output.OrigRunNamesFile(), []byte(data), 0o644)
}

func sortedKeys(m map[string]engine.Recording) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
