// Package sorting runs spike sorters over saved preprocessed recordings and
// collects quality metrics. Sorting always reads from disk: runs must have
// been saved by the preprocessing stage (or an earlier invocation, when
// sorting from existing files).
package sorting

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/neuroinformatics-unit/spikewrap/internal/fsutil"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
)

// Options configures a sorting pass over one session's saved runs.
type Options struct {
	// Sorter names the spike sorter the backend should run.
	Sorter string
	// Kwargs are sorter parameters passed through to the backend untouched.
	Kwargs map[string]any
	// ConcatRuns sorts all runs as one concatenated recording.
	ConcatRuns bool
	// Overwrite replaces existing sorting output.
	Overwrite bool
	// ImageDir, when set, caches sorter container images; sorters that
	// need one are fetched before sorting.
	ImageDir string
}

// sortingRun is one sorter invocation target: the recording dirs feeding it
// and where its output goes.
type sortingRun struct {
	name   string
	inputs []layout.RunOutput
	output layout.RunOutput
}

// Sort runs the configured sorter over the named saved runs of a session.
// Each run (or the concatenation of all of them) is sorted per shank when it
// was saved per shank, grouped otherwise.
func Sort(ctx context.Context, eng engine.Engine, sessionOutputPath string, runNames []string, opts Options) error {
	if opts.Sorter == "" {
		return fmt.Errorf("no sorter given")
	}
	if len(runNames) == 0 {
		return fmt.Errorf("no saved runs to sort under %s", sessionOutputPath)
	}

	runs, err := buildSortingRuns(ctx, sessionOutputPath, runNames, opts.ConcatRuns)
	if err != nil {
		return err
	}

	image := ""
	if opts.ImageDir != "" && NeedsImage(opts.Sorter) {
		image, err = EnsureImage(ctx, opts.ImageDir, opts.Sorter)
		if err != nil {
			return err
		}
	}

	logger := ctxlog.FromContext(ctx)
	for _, run := range runs {
		logger.Info("Sorting run.", "run", run.name, "sorter", opts.Sorter)
		if err := sortRun(ctx, eng, run, image, opts); err != nil {
			return err
		}
	}
	return nil
}

// buildSortingRuns resolves run names to sorting targets, folding every run
// into a single concatenated target when requested.
func buildSortingRuns(ctx context.Context, sessionOutputPath string, runNames []string, concat bool) ([]sortingRun, error) {
	outputs := make([]layout.RunOutput, 0, len(runNames))
	for _, name := range runNames {
		out := layout.NewRunOutput(sessionOutputPath, name)
		if !fsutil.DirExists(out.Preprocessed("")) {
			return nil, fmt.Errorf("no saved preprocessed output for run %s at %s: save preprocessing first",
				name, out.Preprocessed(""))
		}
		outputs = append(outputs, out)
	}

	if !concat {
		runs := make([]sortingRun, len(outputs))
		for i, out := range outputs {
			runs[i] = sortingRun{name: runNames[i], inputs: []layout.RunOutput{out}, output: out}
		}
		return runs, nil
	}

	if len(outputs) == 1 {
		// Runs already merged at preprocessing arrive here as one run.
		if runNames[0] != canon.ConcatRunName() {
			return nil, fmt.Errorf("cannot concatenate a single saved run (%s) for sorting", runNames[0])
		}
		ctxlog.FromContext(ctx).Warn(
			"Runs were already concatenated during preprocessing; sorting the concatenated run.")
		return []sortingRun{{name: runNames[0], inputs: outputs, output: outputs[0]}}, nil
	}

	return []sortingRun{{
		name:   canon.ConcatRunName(),
		inputs: outputs,
		output: layout.NewRunOutput(sessionOutputPath, canon.ConcatRunName()),
	}}, nil
}

// sortRun dispatches one sorter invocation per shank (or one grouped
// invocation) for a sorting target.
func sortRun(ctx context.Context, eng engine.Engine, run sortingRun, image string, opts Options) error {
	shanks, err := sharedShanks(run.inputs)
	if err != nil {
		return fmt.Errorf("run %s: %w", run.name, err)
	}

	sortingRoot := run.output.Sorting("")
	if fsutil.DirExists(sortingRoot) {
		if !opts.Overwrite {
			return fmt.Errorf("sorting output already exists at %s: pass overwrite to replace it", sortingRoot)
		}
		if err := os.RemoveAll(sortingRoot); err != nil {
			return fmt.Errorf("failed to clear existing sorting output for run %s: %w", run.name, err)
		}
	}

	keys := shanks
	if len(keys) == 0 {
		keys = []string{""}
	}
	for _, shank := range keys {
		dirs := make([]string, len(run.inputs))
		for i, in := range run.inputs {
			dirs[i] = in.Preprocessed(shank)
		}

		job := engine.SortJob{
			RecordingDirs: dirs,
			Sorter:        opts.Sorter,
			Kwargs:        opts.Kwargs,
			OutputDir:     run.output.Sorting(shank),
			Image:         image,
		}
		if err := eng.Sort(ctx, job); err != nil {
			return fmt.Errorf("sorting failed for run %s: %w", run.name, err)
		}
	}
	return nil
}

// sharedShanks returns the shank sub-folders the saved runs were split into.
// All runs feeding one sorter invocation must agree: either all grouped
// (empty result) or all split into the same shanks.
func sharedShanks(inputs []layout.RunOutput) ([]string, error) {
	var shanks []string
	for i, in := range inputs {
		found, err := savedShanks(in.Preprocessed(""))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			shanks = found
			continue
		}
		if strings.Join(shanks, ",") != strings.Join(found, ",") {
			return nil, fmt.Errorf("runs were saved with different shank splits (%v vs %v); cannot sort together",
				shanks, found)
		}
	}
	return shanks, nil
}

// savedShanks lists the shank sub-folders of a saved output folder, sorted;
// empty means the recording was saved grouped.
func savedShanks(root string) ([]string, error) {
	dirs, err := fsutil.ListDirs(root)
	if err != nil {
		return nil, err
	}
	var shanks []string
	for _, d := range dirs {
		if strings.HasPrefix(d, canon.ShankName("")) {
			shanks = append(shanks, d)
		}
	}
	return shanks, nil
}

// QualityMetrics computes sorting quality metrics for the named runs'
// existing sorting output, writing the metric documents alongside it.
func QualityMetrics(ctx context.Context, eng engine.Engine, sessionOutputPath string, runNames []string) error {
	logger := ctxlog.FromContext(ctx)

	for _, name := range runNames {
		out := layout.NewRunOutput(sessionOutputPath, name)
		sortingRoot := out.Sorting("")
		if !fsutil.DirExists(sortingRoot) {
			return fmt.Errorf("no sorting output for run %s at %s", name, sortingRoot)
		}

		shanks, err := savedShanks(sortingRoot)
		if err != nil {
			return err
		}

		keys := shanks
		if len(keys) == 0 {
			keys = []string{""}
		}
		for _, shank := range keys {
			dir := out.Sorting(shank)
			logger.Info("Computing quality metrics.", "run", name, "path", dir)
			if err := eng.QualityMetrics(ctx, dir, dir); err != nil {
				return fmt.Errorf("quality metrics failed for run %s: %w", name, err)
			}
		}
	}
	return nil
}
