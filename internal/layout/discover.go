package layout

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/fsutil"
)

// imecIDRegexp matches the probe id suffix of a SpikeGLX run folder name.
var imecIDRegexp = regexp.MustCompile(`.*_imec(\d+)$`)

// DiscoverRunPaths finds the run folders of a session for the given
// acquisition format. If runNames is non-empty it selects (and orders) the
// returned paths; every passed name must match a detected run.
func DiscoverRunPaths(ctx context.Context, format Format, sesPath string, runNames []string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	sesPath = EphysPath(sesPath)

	var (
		detected []string
		err      error
	)
	switch format {
	case FormatSpikeGLX:
		detected, err = spikeglxRuns(sesPath)
	case FormatOpenEphys:
		detected, err = openEphysRuns(sesPath)
	default:
		return nil, fmt.Errorf("unrecognised acquisition format %q", format)
	}
	if err != nil {
		return nil, err
	}

	runPaths := detected
	if len(runNames) > 0 {
		runPaths, err = selectRuns(detected, runNames, sesPath)
		if err != nil {
			return nil, err
		}
	}

	ordered, err := fsutil.InCreationOrder(runPaths)
	if err != nil {
		return nil, err
	}
	if !ordered {
		logger.Warn("Runs are not in creation datetime order; they will be concatenated in the order given.",
			"runs", baseNames(runPaths))
	}

	return runPaths, nil
}

// selectRuns filters detected run paths down to the passed names, in the
// order the names were passed. Concatenation order follows this order.
func selectRuns(detected []string, runNames []string, sesPath string) ([]string, error) {
	byName := make(map[string]string, len(detected))
	for _, p := range detected {
		byName[filepath.Base(p)] = p
	}

	selected := make([]string, 0, len(runNames))
	for _, name := range runNames {
		path, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("run %q not found in folder: %s", name, sesPath)
		}
		selected = append(selected, path)
	}
	return selected, nil
}

// spikeglxRuns detects SpikeGLX run folders within a session. A run folder
// either holds `*.ap.bin` files directly or wraps exactly one gate folder
// (`*g*imec*`). Multi-trigger recordings and probes other than imec0 are not
// supported.
func spikeglxRuns(sesPath string) ([]string, error) {
	dirs, err := fsutil.ListDirs(sesPath)
	if err != nil {
		return nil, err
	}

	var runPaths []string
	for _, dir := range dirs {
		runPath := filepath.Join(sesPath, dir)

		binPaths, err := filepath.Glob(filepath.Join(runPath, "*.ap.bin"))
		if err != nil {
			return nil, err
		}
		if len(binPaths) > 0 {
			runPaths = append(runPaths, runPath)
			continue
		}

		gatePaths, err := filepath.Glob(filepath.Join(runPath, "*g*imec*"))
		if err != nil {
			return nil, err
		}
		if len(gatePaths) > 1 {
			return nil, fmt.Errorf("multiple gates / triggers are not supported: only one folder expected in path %s", runPath)
		}
		if len(gatePaths) == 1 {
			runPaths = append(runPaths, runPath)
		}
	}

	if len(runPaths) == 0 {
		return nil, fmt.Errorf("no spikeglx run folders found at %s", sesPath)
	}

	for _, runPath := range runPaths {
		if err := checkImecID(runPath, sesPath); err != nil {
			return nil, err
		}
		recPaths, err := fsutil.FindFilesByExtension(runPath, ".ap.bin")
		if err != nil {
			return nil, err
		}
		if len(recPaths) > 1 {
			return nil, fmt.Errorf("run folder %s contains more than one recording: multi-trigger recordings are not supported", runPath)
		}
		if len(recPaths) == 0 {
			return nil, fmt.Errorf("no recording found in run path: %s", runPath)
		}
	}

	return runPaths, nil
}

// checkImecID rejects run folders recorded from a probe other than imec0.
func checkImecID(runPath, sesPath string) error {
	name := filepath.Base(runPath)
	parts := strings.Split(name, "-")
	putative := parts[len(parts)-1]

	if m := imecIDRegexp.FindStringSubmatch(putative); m != nil && m[1] != "0" {
		return fmt.Errorf("run folder %s (session %s) records probe imec%s: only imec0 is currently supported",
			name, sesPath, m[1])
	}
	return nil
}

// openEphysRuns detects OpenEphys run folders: the `recording*` folders of
// the single Record Node's single experiment. Legacy-format sessions
// (`structure.openephys`) are rejected.
func openEphysRuns(sesPath string) ([]string, error) {
	legacy, err := fsutil.FindFilesByExtension(sesPath, "structure.openephys")
	if err != nil {
		return nil, err
	}
	if len(legacy) > 0 {
		return nil, fmt.Errorf("legacy OpenEphys format is not supported (found structure.openephys under %s)", sesPath)
	}

	nodePaths, err := filepath.Glob(filepath.Join(sesPath, "*Node*"))
	if err != nil {
		return nil, err
	}
	if len(nodePaths) > 1 {
		return nil, fmt.Errorf("only single-Node OpenEphys recordings are supported: multiple found at %s", sesPath)
	}
	if len(nodePaths) == 0 {
		return nil, fmt.Errorf("no 'Node' OpenEphys recordings found at %s", sesPath)
	}

	experimentPaths, err := filepath.Glob(filepath.Join(nodePaths[0], "*experiment*"))
	if err != nil {
		return nil, err
	}
	if len(experimentPaths) > 1 {
		return nil, fmt.Errorf("only single-'experiment' OpenEphys recordings are supported: multiple found at %s", nodePaths[0])
	}
	if len(experimentPaths) == 0 {
		return nil, fmt.Errorf("no 'experiment' OpenEphys recordings found at %s", nodePaths[0])
	}

	recordingPaths, err := filepath.Glob(filepath.Join(experimentPaths[0], "*recording*"))
	if err != nil {
		return nil, err
	}

	var runPaths []string
	for _, p := range recordingPaths {
		if fsutil.DirExists(p) {
			runPaths = append(runPaths, p)
		}
	}
	if len(runPaths) == 0 {
		return nil, fmt.Errorf("no 'recording' folders found at %s", experimentPaths[0])
	}

	for _, runPath := range runPaths {
		continuous, err := filepath.Glob(filepath.Join(runPath, "*continuous*"))
		if err != nil {
			return nil, err
		}
		if len(continuous) == 0 {
			return nil, fmt.Errorf("no 'continuous' recording found in run path: %s", runPath)
		}
	}

	return runPaths, nil
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
