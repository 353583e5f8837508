// Package layout resolves the NeuroBlueprint-style folder convention:
//
//	<base>/rawdata/sub-*/ses-*/ephys/<run>/...
//	<base>/derivatives/sub-*/ses-*/ephys/<run>/{preprocessed,sync,sorting}/...
//
// It also encodes the run-detection rules for the supported acquisition
// formats. Detection must stay in lockstep with the documented folder
// conventions; anything cleverer belongs in the processing backend.
package layout

import (
	"fmt"
	"path/filepath"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/fsutil"
)

// Format tags the acquisition software that produced a run. It determines
// how runs are discovered within a session folder.
type Format string

const (
	FormatSpikeGLX  Format = "spikeglx"
	FormatOpenEphys Format = "openephys"
)

// ParseFormat validates a user-supplied acquisition format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSpikeGLX, FormatOpenEphys:
		return Format(s), nil
	}
	return "", fmt.Errorf("unrecognised acquisition format %q: must be one of %q or %q",
		s, FormatSpikeGLX, FormatOpenEphys)
}

// Layout anchors path resolution at a project base folder, the one that
// contains `rawdata` (and, once outputs exist, `derivatives`).
type Layout struct {
	Base string
}

// New validates that base contains a rawdata folder and returns a Layout.
func New(base string) (*Layout, error) {
	if !fsutil.DirExists(filepath.Join(base, canon.Rawdata())) {
		return nil, fmt.Errorf("no %q folder found under base path %s", canon.Rawdata(), base)
	}
	return &Layout{Base: base}, nil
}

// RawSubjectPath returns <base>/rawdata/<sub>.
func (l *Layout) RawSubjectPath(sub string) string {
	return filepath.Join(l.Base, canon.Rawdata(), sub)
}

// RawSessionPath returns <base>/rawdata/<sub>/<ses>.
func (l *Layout) RawSessionPath(sub, ses string) string {
	return filepath.Join(l.RawSubjectPath(sub), ses)
}

// OutputSessionPath returns <base>/derivatives/<sub>/<ses>/ephys.
func (l *Layout) OutputSessionPath(sub, ses string) string {
	return filepath.Join(l.Base, canon.Derivatives(), sub, ses, canon.Ephys())
}

// Sessions lists the session folders of a subject under rawdata.
func (l *Layout) Sessions(sub string) ([]string, error) {
	subPath := l.RawSubjectPath(sub)
	if !fsutil.DirExists(subPath) {
		return nil, fmt.Errorf("subject folder does not exist: %s", subPath)
	}
	sessions, err := fsutil.ListDirs(subPath)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no session folders found for subject %s at %s", sub, subPath)
	}
	return sessions, nil
}

// OutputFromRawSession infers the derivatives session path for a raw session
// path. The raw path must sit under a `rawdata` folder
// (rawdata/<sub>/<ses>); otherwise the caller has a non-NeuroBlueprint tree
// and must pass an output path explicitly.
func OutputFromRawSession(rawSessionPath string) (string, error) {
	sesName := filepath.Base(rawSessionPath)
	subPath := filepath.Dir(rawSessionPath)
	subName := filepath.Base(subPath)
	rawdataPath := filepath.Dir(subPath)

	if filepath.Base(rawdataPath) != canon.Rawdata() {
		return "", fmt.Errorf(
			"cannot infer output path from non-NeuroBlueprint folder structure "+
				"(expected %q->subject->session in path %s); pass the session output folder explicitly",
			canon.Rawdata(), rawSessionPath)
	}

	base := filepath.Dir(rawdataPath)
	return filepath.Join(base, canon.Derivatives(), subName, sesName, canon.Ephys()), nil
}

// EphysPath descends into the optional `ephys` datatype level of a session
// folder, returning the session path itself when the level is absent.
func EphysPath(sesPath string) string {
	ephys := filepath.Join(sesPath, canon.Ephys())
	if fsutil.DirExists(ephys) {
		return ephys
	}
	return sesPath
}

// RunOutput groups the derived sub-folders of one run's output.
type RunOutput struct {
	Root string
}

// NewRunOutput returns the output folders for runName under the session
// output path.
func NewRunOutput(sessionOutputPath, runName string) RunOutput {
	return RunOutput{Root: filepath.Join(sessionOutputPath, runName)}
}

// Preprocessed returns the folder for saved preprocessed recordings. An
// empty shank name (or the grouped placeholder) addresses the unsplit
// recording.
func (o RunOutput) Preprocessed(shank string) string {
	if shank == "" || shank == canon.GroupedShankName() {
		return filepath.Join(o.Root, canon.Preprocessed())
	}
	return filepath.Join(o.Root, canon.Preprocessed(), shank)
}

// Sync returns the folder holding the saved sync channel.
func (o RunOutput) Sync() string {
	return filepath.Join(o.Root, canon.Sync())
}

// SyncChannelFile returns the path of the persisted sync channel.
func (o RunOutput) SyncChannelFile() string {
	return filepath.Join(o.Sync(), canon.SyncChannelFile())
}

// Sorting returns the folder for sorter output, optionally per shank.
func (o RunOutput) Sorting(shank string) string {
	if shank == "" || shank == canon.GroupedShankName() {
		return filepath.Join(o.Root, canon.Sorting())
	}
	return filepath.Join(o.Root, canon.Sorting(), shank)
}

// SlurmLogs returns the folder for SLURM submission logs.
func (o RunOutput) SlurmLogs() string {
	return filepath.Join(o.Root, canon.SlurmLogs())
}

// OrigRunNamesFile returns the path of the concatenation manifest.
func (o RunOutput) OrigRunNamesFile() string {
	return filepath.Join(o.Root, canon.OrigRunNamesFile())
}
