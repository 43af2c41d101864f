package model

import (
	"fmt"
	"time"

	"github.com/vk/gridcastgo/internal/grid"
)

// NewPersistence returns the persistence model: every step repeats the
// initial condition. Useful as a baseline and for exercising the full
// pipeline deterministically.
func NewPersistence(variables []string, step time.Duration) (Prognostic, error) {
	if err := checkCommon(variables, step); err != nil {
		return nil, err
	}
	return &stepModel{
		variables: variables,
		step:      step,
		advance:   func(*grid.Field) error { return nil },
	}, nil
}

// NewAdvection returns a solid-body zonal advection model: each step rolls
// every field the given number of cells along the longitude axis.
func NewAdvection(variables []string, step time.Duration, cells int) (Prognostic, error) {
	if err := checkCommon(variables, step); err != nil {
		return nil, err
	}
	if cells == 0 {
		return nil, fmt.Errorf("model: advection cells must be non-zero")
	}
	return &stepModel{
		variables: variables,
		step:      step,
		advance: func(f *grid.Field) error {
			return grid.Roll(f, grid.Lon, cells)
		},
	}, nil
}

// NewDiffusion returns a nearest-neighbour smoothing model: each step blends
// every grid point with its four neighbours, wrapping in longitude and
// clamping at the poles.
func NewDiffusion(variables []string, step time.Duration, alpha float64) (Prognostic, error) {
	if err := checkCommon(variables, step); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("model: diffusion alpha must be in (0, 1], got %g", alpha)
	}
	return &stepModel{
		variables: variables,
		step:      step,
		advance: func(f *grid.Field) error {
			return smoothLatLon(f, alpha)
		},
	}, nil
}

func checkCommon(variables []string, step time.Duration) error {
	if len(variables) == 0 {
		return fmt.Errorf("model: at least one variable is required")
	}
	if step <= 0 {
		return fmt.Errorf("model: step must be positive, got %s", step)
	}
	return nil
}

// smoothLatLon applies one five-point smoothing pass over the trailing
// [lat, lon] plane of every leading-index slice.
func smoothLatLon(f *grid.Field, alpha float64) error {
	la := f.Coords.Axis(grid.Lat)
	lo := f.Coords.Axis(grid.Lon)
	nd := f.Coords.NumDims()
	if la < 0 || lo < 0 || lo != nd-1 || la != nd-2 {
		return fmt.Errorf("model: state must end with [lat, lon] axes, got %s", f.Coords)
	}
	shape := f.Data.Shape
	nlat, nlon := shape[la], shape[lo]
	plane := nlat * nlon
	outer := len(f.Data.Elements) / plane
	buf := make([]float64, plane)
	for o := 0; o < outer; o++ {
		block := f.Data.Elements[o*plane : (o+1)*plane]
		for i := 0; i < nlat; i++ {
			up, down := i-1, i+1
			if up < 0 {
				up = i
			}
			if down >= nlat {
				down = i
			}
			for j := 0; j < nlon; j++ {
				left := (j - 1 + nlon) % nlon
				right := (j + 1) % nlon
				neighbours := block[up*nlon+j] + block[down*nlon+j] + block[i*nlon+left] + block[i*nlon+right]
				buf[i*nlon+j] = (1-alpha)*block[i*nlon+j] + alpha*0.25*neighbours
			}
		}
		copy(block, buf)
	}
	return nil
}
