// Package source provides initial-condition data sources and the fetch
// assembly that turns per-(time, lead, variable) grids into the single
// tensor the inference workflows start from.
package source

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/gridcastgo/internal/ctxlog"
	"github.com/vk/gridcastgo/internal/grid"
	"github.com/vk/gridcastgo/internal/timeref"
)

// fetchConcurrency bounds the number of in-flight triple fetches during
// assembly. The workflows themselves stay sequential; concurrency is
// internal to the fetch subsystem.
const fetchConcurrency = 8

// Source resolves one (time, lead_time, variable) triple to the values over
// its native lat/lon grid, in row-major [lat][lon] order.
type Source interface {
	Name() string
	Grid() (lats, lons []float64)
	Fetch(ctx context.Context, t time.Time, lead time.Duration, variable string) ([]float64, error)
}

// Closer is implemented by sources holding open resources (files,
// connections). The app closes such sources when a run finishes.
type Closer interface {
	Close() error
}

// FetchData assembles the full initial-condition tensor with axes
// [time, lead_time, variable, lat, lon] by fetching every triple from the
// source. Triples are fetched concurrently; any failure aborts the whole
// assembly and is returned unwrapped of partial results.
func FetchData(ctx context.Context, src Source, times []time.Time, leads []time.Duration, variables []string) (*grid.Field, error) {
	if len(times) == 0 {
		return nil, timeref.ErrEmpty
	}
	if len(leads) == 0 {
		return nil, fmt.Errorf("source: at least one lead time is required")
	}
	if len(variables) == 0 {
		return nil, fmt.Errorf("source: at least one variable is required")
	}

	lats, lons := src.Grid()
	timeVals := make([]float64, len(times))
	for i, t := range times {
		timeVals[i] = timeref.Hours(t)
	}
	leadVals := make([]float64, len(leads))
	for i, d := range leads {
		leadVals[i] = timeref.LeadHours(d)
	}

	coords := grid.NewCoords().
		Add(grid.Time, timeVals).
		Add(grid.LeadTime, leadVals).
		AddVariable(variables).
		Add(grid.Lat, lats).
		Add(grid.Lon, lons)
	out := grid.Zeros(coords)

	plane := len(lats) * len(lons)
	nl, nv := len(leads), len(variables)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for ti := range times {
		for li := range leads {
			for vi := range variables {
				ti, li, vi := ti, li, vi
				g.Go(func() error {
					vals, err := src.Fetch(gctx, times[ti], leads[li], variables[vi])
					if err != nil {
						return fmt.Errorf("fetching %s at %s lead %s: %w",
							variables[vi], times[ti].Format(time.RFC3339), leads[li], err)
					}
					if len(vals) != plane {
						return fmt.Errorf("source %s returned %d values for %s, grid has %d points",
							src.Name(), len(vals), variables[vi], plane)
					}
					offset := ((ti*nl+li)*nv + vi) * plane
					copy(out.Data.Elements[offset:offset+plane], vals)
					return nil
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Assembled initial conditions.",
		"source", src.Name(), "coords", coords.String())
	return out, nil
}

// uniformAxis builds n evenly spaced values across [min, max]. Used by
// sources that generate their own grid.
func uniformAxis(min, max float64, n int) []float64 {
	vals := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range vals {
		vals[i] = min + float64(i)*step
	}
	return vals
}
