// Package app wires the toolkit together: it builds the isolated logger,
// loads the run description, populates the component registry and executes
// each configured run.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gridcastgo/internal/config"
	"github.com/vk/gridcastgo/internal/ctxlog"
	"github.com/vk/gridcastgo/internal/registry"
	"github.com/vk/gridcastgo/internal/sink"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *config.Model
	backends map[string]sink.Backend
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// Failing to load or validate the run description is a fatal startup error
// and panics; the CLI entrypoint recovers it into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, loader *config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.CastPath)
	if err != nil {
		panic(fmt.Errorf("failed to load run description: %w", err))
	}
	logger.Debug("Run description loaded.", "runs", len(cfgModel.Runs))

	reg := registry.New()
	registerBuiltins(reg)
	logger.Debug("Built-in component variants registered.")

	if err := validateVariants(cfgModel, reg); err != nil {
		panic(err)
	}
	logger.Debug("Run description validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfgModel,
		backends: make(map[string]sink.Backend),
	}
}

// Registry returns the application's registry. This is primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Backend returns the IO backend a completed run wrote to, for tests and
// post-processing.
func (a *App) Backend(runName string) sink.Backend {
	return a.backends[runName]
}

// validateVariants checks every component reference in the run description
// against the registered variants, so typos fail at startup rather than
// mid-run.
func validateVariants(m *config.Model, reg *registry.Registry) error {
	for _, r := range m.Runs {
		if !reg.HasModel(r.Model.Kind) {
			return fmt.Errorf("run %q references unknown model variant %q", r.Name, r.Model.Kind)
		}
		if r.Perturbation != nil && !reg.HasPerturbation(r.Perturbation.Kind) {
			return fmt.Errorf("run %q references unknown perturbation variant %q", r.Name, r.Perturbation.Kind)
		}
		if !reg.HasSource(r.Source.Kind) {
			return fmt.Errorf("run %q references unknown source variant %q", r.Name, r.Source.Kind)
		}
		if !reg.HasSink(r.Sink.Kind) {
			return fmt.Errorf("run %q references unknown sink variant %q", r.Name, r.Sink.Kind)
		}
	}
	return nil
}
