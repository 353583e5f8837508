// Package engine is the boundary to the external electrophysiology
// processing backend. spikewrap never touches sample data itself: recordings
// are immutable descriptors (source paths, metadata, an ordered processing
// chain) and the backend executes the chain when a recording is saved,
// sorted, or measured.
package engine

import (
	"context"
	"fmt"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
)

// Metadata describes a raw recording as reported by the backend's probe.
type Metadata struct {
	NumChannels int      `json:"num_channels"`
	SamplingHz  float64  `json:"sampling_hz"`
	NumSamples  int64    `json:"num_samples"`
	Groups      []string `json:"groups,omitempty"`
	HasSync     bool     `json:"has_sync"`
	// GeometryID fingerprints the channel positions; recordings only
	// concatenate when it matches.
	GeometryID string `json:"geometry_id"`
}

// StepSpec is one entry of a recording's processing chain, produced by a
// registered step handler from validated keyword arguments.
type StepSpec struct {
	Name   string         `json:"name"`
	Kwargs map[string]any `json:"kwargs"`
}

// Recording is an immutable descriptor of a (possibly concatenated, possibly
// shank-filtered) recording plus its pending processing chain.
type Recording struct {
	Format      layout.Format `json:"format"`
	SourcePaths []string      `json:"source_paths"`
	Meta        Metadata      `json:"metadata"`
	// Group is the shank group this recording is restricted to; empty
	// means the recording has not been split by shank.
	Group string     `json:"group,omitempty"`
	Steps []StepSpec `json:"steps,omitempty"`
}

// IsConcatenation reports whether the recording aggregates several runs.
func (r Recording) IsConcatenation() bool { return len(r.SourcePaths) > 1 }

// IsSplit reports whether the recording is restricted to one shank group.
func (r Recording) IsSplit() bool { return r.Group != "" }

// IsPreprocessed reports whether any steps are queued on the chain.
func (r Recording) IsPreprocessed() bool { return len(r.Steps) > 0 }

// WithStep returns a copy of the recording with spec appended to its chain.
func (r Recording) WithStep(spec StepSpec) Recording {
	steps := make([]StepSpec, len(r.Steps), len(r.Steps)+1)
	copy(steps, r.Steps)
	r.Steps = append(steps, spec)
	return r
}

// SplitByGroup splits a recording into one recording per shank group, keyed
// by the canonical shank name. The recording must carry group metadata and
// must not have been split already.
func (r Recording) SplitByGroup() (map[string]Recording, error) {
	if r.IsSplit() {
		return nil, fmt.Errorf("recording is already split by shank (group %s)", r.Group)
	}
	if len(r.Meta.Groups) == 0 {
		return nil, fmt.Errorf("cannot split recording by shank: no 'group' property on the recording")
	}

	split := make(map[string]Recording, len(r.Meta.Groups))
	for _, group := range r.Meta.Groups {
		shank := r
		shank.Group = group
		split[canon.ShankName(group)] = shank
	}
	return split, nil
}

// Concatenate merges several loaded runs into a single recording. All inputs
// must be unsplit and unpreprocessed, and must agree on sampling rate and
// channel geometry; the result's source paths follow the input order.
func Concatenate(recs []Recording) (Recording, error) {
	if len(recs) < 2 {
		return Recording{}, fmt.Errorf("cannot concatenate runs: need at least two recordings, got %d", len(recs))
	}

	first := recs[0]
	out := Recording{Format: first.Format, Meta: first.Meta}
	out.Meta.NumSamples = 0
	out.Meta.HasSync = true

	for _, rec := range recs {
		if rec.IsSplit() {
			return Recording{}, fmt.Errorf("cannot concatenate runs that have already been split by shank")
		}
		if rec.IsPreprocessed() {
			return Recording{}, fmt.Errorf("cannot concatenate runs that have already been preprocessed")
		}
		if rec.Meta.SamplingHz != first.Meta.SamplingHz {
			return Recording{}, fmt.Errorf("cannot concatenate recordings with different sampling frequencies (%v != %v)",
				rec.Meta.SamplingHz, first.Meta.SamplingHz)
		}
		if rec.Meta.NumChannels != first.Meta.NumChannels || rec.Meta.GeometryID != first.Meta.GeometryID {
			return Recording{}, fmt.Errorf("cannot concatenate recordings with different channel organisation")
		}

		out.SourcePaths = append(out.SourcePaths, rec.SourcePaths...)
		out.Meta.NumSamples += rec.Meta.NumSamples
		if !rec.Meta.HasSync {
			// The sync channel only survives concatenation when every
			// run carries one.
			out.Meta.HasSync = false
		}
	}

	return out, nil
}

// SortJob describes one sorter invocation. Several recording dirs mean the
// backend concatenates the saved recordings, in order, before sorting.
type SortJob struct {
	RecordingDirs []string       `json:"recording_dirs"`
	Sorter        string         `json:"sorter"`
	Kwargs        map[string]any `json:"kwargs"`
	OutputDir     string         `json:"output_dir"`
	// Image is the local path of the sorter's container image, when one
	// is required.
	Image string `json:"image,omitempty"`
}

// Engine is implemented by processing backends. All calls may block on
// subprocesses and honor ctx cancellation.
type Engine interface {
	// Probe reads a raw run folder's metadata without loading samples.
	Probe(ctx context.Context, runPath string, format layout.Format) (Metadata, error)

	// Process executes a recording's processing chain and writes the
	// binary recording into outputDir.
	Process(ctx context.Context, rec Recording, outputDir string) error

	// Sort runs a named sorter over one or more saved preprocessed
	// recordings.
	Sort(ctx context.Context, job SortJob) error

	// QualityMetrics computes sorting quality metrics from a sorting
	// output folder, writing CSV and JSON documents into outputDir.
	QualityMetrics(ctx context.Context, sortingDir, outputDir string) error

	// SyncChannel extracts the raw sync-channel samples of a recording.
	SyncChannel(ctx context.Context, rec Recording) ([]int16, error)
}
