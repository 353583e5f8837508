package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
)

// ProcessCall records one FakeEngine.Process invocation.
type ProcessCall struct {
	Recording engine.Recording
	OutputDir string
}

// QualityCall records one FakeEngine.QualityMetrics invocation.
type QualityCall struct {
	SortingDir string
	OutputDir  string
}

// FakeEngine is an in-process engine.Engine for tests. Probe returns canned
// metadata, Process/Sort/QualityMetrics write small marker files so callers
// can assert on the output tree, and every call is recorded.
type FakeEngine struct {
	mu sync.Mutex

	// Meta is returned by Probe unless MetaByRun has an entry for the
	// probed path.
	Meta      engine.Metadata
	MetaByRun map[string]engine.Metadata

	// SyncSamples is returned by SyncChannel; defaults to a short ramp.
	SyncSamples []int16

	ProbeErr   error
	ProcessErr error
	SortErr    error
	QualityErr error
	SyncErr    error

	Probed    []string
	Processed []ProcessCall
	Sorted    []engine.SortJob
	Quality   []QualityCall
}

// DefaultMetadata describes a plausible single-shank Neuropixels recording.
func DefaultMetadata() engine.Metadata {
	return engine.Metadata{
		NumChannels: 384,
		SamplingHz:  30000,
		NumSamples:  90000,
		HasSync:     true,
		GeometryID:  "npx1.0-default",
	}
}

// NewFakeEngine returns a FakeEngine reporting DefaultMetadata for every run.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{Meta: DefaultMetadata()}
}

func (f *FakeEngine) Probe(ctx context.Context, runPath string, format layout.Format) (engine.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Probed = append(f.Probed, runPath)
	if f.ProbeErr != nil {
		return engine.Metadata{}, f.ProbeErr
	}
	if meta, ok := f.MetaByRun[runPath]; ok {
		return meta, nil
	}
	return f.Meta, nil
}

func (f *FakeEngine) Process(ctx context.Context, rec engine.Recording, outputDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Processed = append(f.Processed, ProcessCall{Recording: rec, OutputDir: outputDir})
	if f.ProcessErr != nil {
		return f.ProcessErr
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	chain, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "recording.json"), chain, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "traces.bin"), []byte("processed"), 0o644)
}

func (f *FakeEngine) Sort(ctx context.Context, job engine.SortJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Sorted = append(f.Sorted, job)
	if f.SortErr != nil {
		return f.SortErr
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return err
	}
	marker := fmt.Sprintf("sorter=%s recordings=%d\n", job.Sorter, len(job.RecordingDirs))
	return os.WriteFile(filepath.Join(job.OutputDir, "sorter_output.txt"), []byte(marker), 0o644)
}

func (f *FakeEngine) QualityMetrics(ctx context.Context, sortingDir, outputDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Quality = append(f.Quality, QualityCall{SortingDir: sortingDir, OutputDir: outputDir})
	if f.QualityErr != nil {
		return f.QualityErr
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	csv := filepath.Join(outputDir, canon.QualityMetricsCSV())
	if err := os.WriteFile(csv, []byte("unit,snr\n0,5.0\n"), 0o644); err != nil {
		return err
	}
	jsonPath := filepath.Join(outputDir, canon.QualityMetricsJSON())
	return os.WriteFile(jsonPath, []byte(`{"0":{"snr":5.0}}`), 0o644)
}

func (f *FakeEngine) SyncChannel(ctx context.Context, rec engine.Recording) ([]int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SyncErr != nil {
		return nil, f.SyncErr
	}
	if f.SyncSamples != nil {
		return f.SyncSamples, nil
	}
	return []int16{0, 1, 0, 1, 0, 1}, nil
}

var _ engine.Engine = (*FakeEngine)(nil)
