// Package canon centralises the canonical folder and file names used by the
// NeuroBlueprint-style layout. All path construction goes through these
// functions so that renames happen in exactly one place.
package canon

// Rawdata is the top-level folder holding acquired data.
func Rawdata() string { return "rawdata" }

// Derivatives is the top-level folder holding processed outputs.
func Derivatives() string { return "derivatives" }

// Ephys is the datatype folder under a session.
func Ephys() string { return "ephys" }

// Preprocessed is the per-run folder holding saved preprocessed recordings.
func Preprocessed() string { return "preprocessed" }

// Sync is the per-run folder holding the saved sync channel.
func Sync() string { return "sync" }

// Sorting is the per-run folder holding sorter output.
func Sorting() string { return "sorting" }

// SlurmLogs is the per-run folder holding SLURM submission logs. It is never
// deleted, even when a run output is overwritten.
func SlurmLogs() string { return "slurm_logs" }

// ConcatRunName is the run name given to a concatenation of several runs.
func ConcatRunName() string { return "concat_run" }

// GroupedShankName keys a recording that has not been split by shank.
func GroupedShankName() string { return "grouped" }

// ShankName returns the per-shank folder name for a shank group id.
func ShankName(group string) string { return "shank_" + group }

// SyncChannelFile is the file name of the persisted sync channel.
func SyncChannelFile() string { return "sync_channel.npy" }

// OrigRunNamesFile is the manifest recording concatenation order.
func OrigRunNamesFile() string { return "orig_run_names.txt" }

// QualityMetricsCSV is the quality-metrics table written after sorting.
func QualityMetricsCSV() string { return "quality_metrics.csv" }

// QualityMetricsJSON is the quality-metrics document written after sorting.
func QualityMetricsJSON() string { return "quality_metrics.json" }
