package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/neuroinformatics-unit/spikewrap/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("spikewrap", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
spikewrap - run an electrophysiology preprocessing and sorting pipeline
over a NeuroBlueprint project folder.

Usage:
  spikewrap [options] BASE_PATH SUB_NAME [RUN_NAME ...]

Arguments:
  BASE_PATH
    Project folder containing 'rawdata'. Outputs go to 'derivatives'.
  SUB_NAME
    Subject folder under rawdata (e.g. sub-001).
  RUN_NAME
    Optional run folder names. When given, only these runs are processed,
    in the given order; otherwise every detected run is processed.

Options:
`)
		flagSet.PrintDefaults()
	}

	sesNameFlag := flagSet.String("ses-name", "", "Process only this session; default is every session of the subject.")
	formatFlag := flagSet.String("format", "spikeglx", "Acquisition format. Options: 'spikeglx' or 'openephys'.")
	configNameFlag := flagSet.String("config-name", "default", "Name of a stored configuration, or a path to a YAML configuration file.")
	sorterFlag := flagSet.String("sorter", "kilosort2_5", "Spike sorter to run.")
	perShankFlag := flagSet.Bool("per-shank", false, "Split recordings by shank before preprocessing.")
	concatRunsFlag := flagSet.Bool("concat-runs", false, "Concatenate a session's runs before processing.")
	overwriteFlag := flagSet.Bool("overwrite", false, "Replace existing outputs (SLURM logs are kept).")
	useExistingFlag := flagSet.Bool("use-existing-preprocessed-file", false, "Sort from saved preprocessed output when present instead of preprocessing again.")
	qualityFlag := flagSet.Bool("quality-metrics", false, "Compute sorting quality metrics after sorting.")
	slurmFlag := flagSet.Bool("slurm", false, "Submit the pipeline as SLURM batch jobs, one per session.")
	slurmWaitFlag := flagSet.Bool("slurm-wait", false, "Block until submitted SLURM jobs leave the queue.")
	hpcProfileFlag := flagSet.String("hpc-profile", "cpu", "HPC resource profile for SLURM jobs.")
	hpcProfilesFlag := flagSet.String("hpc-profiles", "", "Path to an HCL file of HPC resource profiles; default is the built-in set.")
	workersFlag := flagSet.Int("workers", 1, "Number of runs to save concurrently.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	backendFlag := flagSet.String("backend", "", "Processing backend command.")
	imagesDirFlag := flagSet.String("images-dir", "", "Cache folder for sorter container images.")
	showConfigsFlag := flagSet.Bool("show-configs", false, "Print the stored configurations and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	positional := flagSet.Args()
	if !*showConfigsFlag && len(positional) < 2 {
		flagSet.Usage()
		return nil, true, nil
	}

	var basePath, subName string
	var runNames []string
	if len(positional) > 0 {
		basePath = positional[0]
	}
	if len(positional) > 1 {
		subName = positional[1]
	}
	if len(positional) > 2 {
		runNames = positional[2:]
	}
	// "all" is the explicit form of the default run selection.
	if len(runNames) == 1 && runNames[0] == "all" {
		runNames = nil
	}

	config, err := app.NewConfig(app.Config{
		BasePath:                    basePath,
		SubName:                     subName,
		RunNames:                    runNames,
		SesName:                     *sesNameFlag,
		Format:                      strings.ToLower(*formatFlag),
		ConfigName:                  *configNameFlag,
		Sorter:                      *sorterFlag,
		PerShank:                    *perShankFlag,
		ConcatRuns:                  *concatRunsFlag,
		Overwrite:                   *overwriteFlag,
		UseExistingPreprocessedFile: *useExistingFlag,
		QualityMetrics:              *qualityFlag,
		Slurm:                       *slurmFlag,
		SlurmWait:                   *slurmWaitFlag,
		HPCProfile:                  *hpcProfileFlag,
		HPCProfilesPath:             *hpcProfilesFlag,
		WorkerCount:                 *workersFlag,
		LogFormat:                   logFormat,
		LogLevel:                    logLevel,
		Backend:                     *backendFlag,
		ImagesDir:                   *imagesDirFlag,
		ShowConfigs:                 *showConfigsFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
