// Package app wires the pipeline together: logger, step registry,
// configuration store and processing backend. Startup errors are programmer
// or installation errors and panic; the entrypoint recovers them into a
// clean exit.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/neuroinformatics-unit/spikewrap/internal/config"
	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
	"github.com/neuroinformatics-unit/spikewrap/internal/engine"
	"github.com/neuroinformatics-unit/spikewrap/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	store    *config.Store
	eng      engine.Engine
}

// Option overrides an App dependency, primarily for testing.
type Option func(*App)

// WithEngine substitutes the processing backend.
func WithEngine(eng engine.Engine) Option {
	return func(a *App) { a.eng = eng }
}

// WithConfigStore substitutes the configuration store.
func WithConfigStore(store *config.Store) Option {
	return func(a *App) { a.store = store }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, appConfig *Config, modules []registry.Module, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All step modules registered.", "count", len(modules))

	if err := reg.LoadManifests(ctx); err != nil {
		panic(fmt.Errorf("failed to load step manifests: %w", err))
	}
	// A manifest/handler mismatch is a programmer error, so we panic.
	if err := reg.Validate(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	a := &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		eng:      engine.NewExecEngine(appConfig.Backend),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := config.DefaultStore()
		if err != nil {
			panic(fmt.Errorf("failed to open the configuration store: %w", err))
		}
		a.store = store
	}
	logger.Debug("Configuration store ready.", "dir", a.store.Dir())

	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
