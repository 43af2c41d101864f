package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/gridcastgo/internal/config"
	"github.com/vk/gridcastgo/internal/ctxlog"
	"github.com/vk/gridcastgo/internal/perturbation"
	"github.com/vk/gridcastgo/internal/run"
	"github.com/vk/gridcastgo/internal/source"
)

// Run executes every configured run in file order. The first failure
// aborts the remainder; there is no partial-result salvage.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	for _, rc := range a.config.Runs {
		if err := a.runOne(ctx, rc); err != nil {
			return fmt.Errorf("run %q failed: %w", rc.Name, err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// runOne assembles the components of a single run block and executes the
// matching workflow.
func (a *App) runOne(ctx context.Context, rc *config.Run) error {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run", rc.Name, "run_id", runID)
	logger := ctxlog.FromContext(ctx)
	ectx := config.EnvContext()

	prognostic, err := a.registry.NewModel(ctx, rc.Model.Kind, rc.Model.Body, ectx)
	if err != nil {
		return fmt.Errorf("building model: %w", err)
	}

	src, err := a.registry.NewSource(ctx, rc.Source.Kind, rc.Source.Body, ectx)
	if err != nil {
		return fmt.Errorf("building source: %w", err)
	}
	if closer, ok := src.(source.Closer); ok {
		defer closer.Close()
	}

	backend, err := a.registry.NewSink(ctx, rc.Sink.Kind, rc.Sink.Body, ectx)
	if err != nil {
		return fmt.Errorf("building sink: %w", err)
	}
	backend.SetAttr("run_name", rc.Name)
	backend.SetAttr("run_id", runID)
	backend.SetAttr("model", rc.Model.Kind)
	backend.SetAttr("source", rc.Source.Kind)

	var perturb perturbation.Method
	if rc.Ensemble() {
		perturb, err = a.registry.NewPerturbation(ctx, rc.Perturbation.Kind, rc.Perturbation.Body, ectx)
		if err != nil {
			return fmt.Errorf("building perturbation: %w", err)
		}
	} else if rc.Perturbation != nil {
		logger.Warn("Perturbation block ignored for deterministic run.")
	}

	if rc.Ensemble() {
		_, err = run.Ensemble(ctx, rc.Time, rc.Steps, rc.Members, prognostic, perturb, src, backend)
	} else {
		_, err = run.Deterministic(ctx, rc.Time, rc.Steps, prognostic, src, backend)
	}
	if err != nil {
		return err
	}

	if err := backend.Close(); err != nil {
		return fmt.Errorf("closing sink: %w", err)
	}
	a.backends[rc.Name] = backend
	logger.Info("Run complete.", "sink", rc.Sink.Kind)
	return nil
}
