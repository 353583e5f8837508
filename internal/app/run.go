package app

import (
	"context"
	"fmt"

	"github.com/neuroinformatics-unit/spikewrap/internal/canon"
	"github.com/neuroinformatics-unit/spikewrap/internal/config"
	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/layout"
	"github.com/neuroinformatics-unit/spikewrap/internal/session"
	"github.com/neuroinformatics-unit/spikewrap/internal/sorting"
)

// Run executes the full pipeline (or SLURM submission) for the configured
// subject.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.ShowConfigs {
		return a.showConfigs()
	}

	pipeline, err := a.store.Resolve(appConfig.ConfigName)
	if err != nil {
		return err
	}

	format, err := layout.ParseFormat(appConfig.Format)
	if err != nil {
		return err
	}

	lay, err := layout.New(appConfig.BasePath)
	if err != nil {
		return err
	}

	sessions := []string{appConfig.SesName}
	if appConfig.SesName == "" {
		sessions, err = lay.Sessions(appConfig.SubName)
		if err != nil {
			return err
		}
	}
	a.logger.Info("Processing subject.",
		"subject", appConfig.SubName, "sessions", sessions, "config", appConfig.ConfigName)

	if appConfig.Slurm {
		return a.submitSessions(ctx, appConfig, lay, sessions)
	}

	for _, ses := range sessions {
		if err := a.runSession(ctx, appConfig, lay, format, pipeline, ses); err != nil {
			return fmt.Errorf("session %s: %w", ses, err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// runSession processes one session end to end: preprocess, save, sort and
// optionally measure quality.
func (a *App) runSession(ctx context.Context, appConfig *Config, lay *layout.Layout,
	format layout.Format, pipeline *config.Pipeline, ses string) error {

	var opts []session.Option
	if len(appConfig.RunNames) > 0 {
		opts = append(opts, session.WithRunNames(appConfig.RunNames...))
	}

	s, err := session.New(ctx, a.eng, a.registry,
		lay.RawSubjectPath(appConfig.SubName), ses, format, opts...)
	if err != nil {
		return err
	}

	sorter, kwargs, err := pipeline.Sorter(appConfig.Sorter)
	if err != nil {
		return err
	}
	sortOpts := sorting.Options{
		Sorter:     sorter,
		Kwargs:     kwargs,
		ConcatRuns: appConfig.ConcatRuns,
		Overwrite:  appConfig.Overwrite,
		ImageDir:   appConfig.ImagesDir,
	}

	var runNames []string
	if appConfig.UseExistingPreprocessedFile {
		if names, err := s.SavedRunNames(); err == nil {
			a.logger.Info("Using existing preprocessed output.", "session", ses, "runs", names)
			runNames = names
		} else {
			a.logger.Info("No existing preprocessed output; preprocessing from raw.",
				"session", ses, "reason", err.Error())
		}
	}

	if runNames == nil {
		if err := s.Preprocess(ctx, pipeline, session.PreprocessOptions{
			ConcatRuns: appConfig.ConcatRuns,
			PerShank:   appConfig.PerShank,
		}); err != nil {
			return err
		}
		if err := s.SavePreprocessed(ctx, session.SaveOptions{
			Overwrite: appConfig.Overwrite,
			Workers:   appConfig.WorkerCount,
		}); err != nil {
			return err
		}
		runNames = s.RunNames()
		if err := s.Sort(ctx, sortOpts); err != nil {
			return err
		}
	} else if err := sorting.Sort(ctx, a.eng, s.OutputPath(), runNames, sortOpts); err != nil {
		return err
	}

	if appConfig.QualityMetrics {
		sorted := runNames
		if appConfig.ConcatRuns && len(runNames) > 1 {
			sorted = []string{canon.ConcatRunName()}
		}
		if err := sorting.QualityMetrics(ctx, a.eng, s.OutputPath(), sorted); err != nil {
			return err
		}
	}
	return nil
}

// showConfigs prints every stored configuration.
func (a *App) showConfigs() error {
	names, err := a.store.List()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.outW, "Configurations in %s:\n", a.store.Dir())
	for _, name := range names {
		pipeline, err := a.store.Resolve(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "\n--- %s ---\n%s", name, config.Render(pipeline))
	}
	return nil
}
