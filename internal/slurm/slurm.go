package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
)

var jobIDRegexp = regexp.MustCompile(`Submitted batch job (\d+)`)

// pollInterval is how often Wait checks the queue for job completion.
var pollInterval = 30 * time.Second

// Available reports whether a SLURM scheduler can be reached from this host.
func Available(ctx context.Context) bool {
	if _, err := exec.LookPath("sinfo"); err != nil {
		return false
	}
	return exec.CommandContext(ctx, "sinfo", "-V").Run() == nil
}

// NewLogDir returns a fresh timestamped log folder under slurmLogsRoot.
// Earlier submissions' folders are left alone.
func NewLogDir(slurmLogsRoot string) string {
	return filepath.Join(slurmLogsRoot, time.Now().Format("20060102_150405"))
}

// Submit writes the job's batch script into its log folder and hands it to
// sbatch, returning the assigned job id.
func Submit(ctx context.Context, job Job) (string, error) {
	if err := os.MkdirAll(job.LogDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create SLURM log folder: %w", err)
	}

	scriptPath := filepath.Join(job.LogDir, "submit.sbatch")
	if err := os.WriteFile(scriptPath, []byte(Script(job)), 0o755); err != nil {
		return "", fmt.Errorf("failed to write batch script: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sbatch", scriptPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = "(no stderr output)"
		}
		return "", fmt.Errorf("sbatch failed: %w: %s", err, detail)
	}

	m := jobIDRegexp.FindStringSubmatch(stdout.String())
	if m == nil {
		return "", fmt.Errorf("could not parse job id from sbatch output: %q", strings.TrimSpace(stdout.String()))
	}

	ctxlog.FromContext(ctx).Info("Submitted SLURM job.",
		"jobID", m[1], "name", job.Name, "script", scriptPath)
	return m[1], nil
}

// Wait blocks until the job leaves the queue (completed, failed or
// cancelled), polling squeue.
func Wait(ctx context.Context, jobID string) error {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var stdout bytes.Buffer
		cmd := exec.CommandContext(ctx, "squeue", "-h", "-j", jobID)
		cmd.Stdout = &stdout

		// squeue errors once the job has aged out of the queue; treat
		// both an error and empty output as completion.
		if err := cmd.Run(); err != nil || strings.TrimSpace(stdout.String()) == "" {
			logger.Info("SLURM job has left the queue.", "jobID", jobID)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
