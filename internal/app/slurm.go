package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
	"github.com/neuroinformatics-unit/spikewrap/internal/slurm"
)

// submitSessions submits one batch job per session, each re-invoking the
// tool on a compute node scoped to that session.
func (a *App) submitSessions(ctx context.Context, appConfig *Config, lay *layout.Layout, sessions []string) error {
	if !slurm.Available(ctx) {
		return fmt.Errorf("SLURM submission requested but no scheduler was detected on this machine")
	}

	profiles, err := slurm.LoadProfiles(appConfig.HPCProfilesPath)
	if err != nil {
		return err
	}
	profile, err := slurm.FindProfile(profiles, appConfig.HPCProfile)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot resolve own executable for resubmission: %w", err)
	}

	jobIDs := make([]string, 0, len(sessions))
	for _, ses := range sessions {
		logDir := slurm.NewLogDir(
			filepath.Join(lay.OutputSessionPath(appConfig.SubName, ses), canon.SlurmLogs()))

		job := slurm.Job{
			Name:    fmt.Sprintf("spikewrap-%s-%s", appConfig.SubName, ses),
			Profile: profile,
			LogDir:  logDir,
			Command: append([]string{exe}, appConfig.Argv(ses)...),
		}

		jobID, err := slurm.Submit(ctx, job)
		if err != nil {
			return fmt.Errorf("failed to submit session %s: %w", ses, err)
		}
		jobIDs = append(jobIDs, jobID)
		fmt.Fprintf(a.outW, "Submitted SLURM job %s for session %s (logs: %s)\n", jobID, ses, logDir)
	}

	if appConfig.SlurmWait {
		for _, jobID := range jobIDs {
			if err := slurm.Wait(ctx, jobID); err != nil {
				return err
			}
		}
	}
	return nil
}
