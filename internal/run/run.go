// Package run contains the inference workflows that assemble a prognostic
// model, a perturbation method, a data source and an IO backend into a
// forecast trajectory. Workflows are sequential and fail fast: any error
// aborts the run with no partial-result salvage or retries.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/gridcastgo/internal/ctxlog"
	"github.com/vk/gridcastgo/internal/grid"
	"github.com/vk/gridcastgo/internal/model"
	"github.com/vk/gridcastgo/internal/perturbation"
	"github.com/vk/gridcastgo/internal/sink"
	"github.com/vk/gridcastgo/internal/source"
	"github.com/vk/gridcastgo/internal/timeref"
)

// Ensemble produces a multi-member forecast trajectory and writes it
// incrementally to the backend. All members start from the same fetched
// initial condition and diverge only through the perturbation noise added
// before stepping. The backend receives exactly nsteps+1 writes, one per
// lead time in increasing order, and its schema is declared once before the
// first write. The backend is returned for post-processing.
func Ensemble(
	ctx context.Context,
	times []string,
	nsteps int,
	nensemble int,
	prognostic model.Prognostic,
	perturb perturbation.Method,
	src source.Source,
	backend sink.Backend,
) (sink.Backend, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Running ensemble workflow.", "steps", nsteps, "members", nensemble)

	if nsteps < 0 {
		return nil, fmt.Errorf("run: nsteps must be non-negative, got %d", nsteps)
	}
	if nensemble < 1 {
		return nil, fmt.Errorf("run: ensemble size must be positive, got %d", nensemble)
	}
	if perturb == nil {
		return nil, fmt.Errorf("run: an ensemble run requires a perturbation method")
	}

	x, err := fetchInitial(ctx, times, prognostic, src)
	if err != nil {
		return nil, err
	}

	// All members start identical; divergence comes from the noise below.
	x = grid.Broadcast(x, nensemble)

	if err := declareSchema(x, prognostic, nsteps, backend); err != nil {
		return nil, err
	}

	x, err = grid.AlignTo(x, prognostic.InputCoords())
	if err != nil {
		return nil, fmt.Errorf("run: aligning state to model input: %w", err)
	}

	noise, err := perturb.Sample(x)
	if err != nil {
		return nil, fmt.Errorf("run: sampling perturbation: %w", err)
	}
	if err := grid.AddInPlace(x, noise); err != nil {
		return nil, fmt.Errorf("run: applying perturbation: %w", err)
	}

	if err := stepAndWrite(ctx, prognostic, x, nsteps, backend); err != nil {
		return nil, err
	}
	return backend, nil
}

// Deterministic is the single-trajectory counterpart of Ensemble: no
// ensemble axis, no perturbation, same fetch/schema/write pipeline.
func Deterministic(
	ctx context.Context,
	times []string,
	nsteps int,
	prognostic model.Prognostic,
	src source.Source,
	backend sink.Backend,
) (sink.Backend, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Running deterministic workflow.", "steps", nsteps)

	if nsteps < 0 {
		return nil, fmt.Errorf("run: nsteps must be non-negative, got %d", nsteps)
	}

	x, err := fetchInitial(ctx, times, prognostic, src)
	if err != nil {
		return nil, err
	}

	if err := declareSchema(x, prognostic, nsteps, backend); err != nil {
		return nil, err
	}

	x, err = grid.AlignTo(x, prognostic.InputCoords())
	if err != nil {
		return nil, fmt.Errorf("run: aligning state to model input: %w", err)
	}

	if err := stepAndWrite(ctx, prognostic, x, nsteps, backend); err != nil {
		return nil, err
	}
	return backend, nil
}

// fetchInitial resolves the time list and fetches the initial-condition
// tensor for the model's required lead times and variables.
func fetchInitial(ctx context.Context, times []string, prognostic model.Prognostic, src source.Source) (*grid.Field, error) {
	ts, err := timeref.Parse(times)
	if err != nil {
		return nil, err
	}

	in := prognostic.InputCoords()
	leadVals := in.Values(grid.LeadTime)
	leads := make([]time.Duration, len(leadVals))
	for i, h := range leadVals {
		leads[i] = time.Duration(h * float64(time.Hour))
	}

	x, err := source.FetchData(ctx, src, ts, leads, in.VarNames())
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Fetched initial conditions.", "source", src.Name())
	return x, nil
}

// declareSchema fixes the backend's output coordinates before any write:
// the fetch coordinates with the lead-time axis stretched to nsteps+1
// native steps, the variable axis removed, and the channel names passed
// separately.
func declareSchema(x *grid.Field, prognostic model.Prognostic, nsteps int, backend sink.Backend) error {
	out := prognostic.OutputCoords()
	stepHours := out.Values(grid.LeadTime)[0]
	if stepHours <= 0 {
		return fmt.Errorf("run: model output step must be positive, got %gh", stepHours)
	}
	leadAxis := make([]float64, nsteps+1)
	for i := range leadAxis {
		leadAxis[i] = float64(i) * stepHours
	}
	total := x.Coords.WithValues(grid.LeadTime, leadAxis).Without(grid.Variable)
	if err := backend.AddArray(total, x.Coords.VarNames()); err != nil {
		return fmt.Errorf("run: declaring output schema: %w", err)
	}
	return nil
}

// stepAndWrite consumes the model's lazy sequence one state at a time,
// persisting each of the nsteps+1 states as soon as it is produced.
func stepAndWrite(ctx context.Context, prognostic model.Prognostic, x *grid.Field, nsteps int, backend sink.Backend) error {
	logger := ctxlog.FromContext(ctx)
	it := prognostic.CreateIterator(x)

	logger.Info("Inference starting.")
	for step := 0; step <= nsteps; step++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run: canceled at step %d: %w", step, err)
		}
		state, err := it.Next()
		if err != nil {
			return fmt.Errorf("run: advancing model at step %d: %w", step, err)
		}
		if err := backend.Write(state); err != nil {
			return fmt.Errorf("run: writing step %d: %w", step, err)
		}
		logger.Debug("Wrote forecast step.",
			"step", step, "lead_hours", state.Coords.Values(grid.LeadTime)[0])
	}
	logger.Info("Inference complete.", "writes", nsteps+1)
	return nil
}
