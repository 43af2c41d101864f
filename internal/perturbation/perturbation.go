// Package perturbation provides the noise methods that seed ensemble
// divergence. A method maps a state to an additive noise tensor of matching
// shape, using the state's coordinates as context (e.g. to scale by
// latitude).
package perturbation

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ctessum/sparse"

	"github.com/vk/gridcastgo/internal/grid"
)

// Method generates an additive noise tensor for an ensemble-batched state.
type Method interface {
	Sample(x *grid.Field) (*sparse.DenseArray, error)
}

// Zero produces an all-zero field, turning an ensemble run into nensemble
// identical trajectories. Mostly useful in tests and baselines.
type Zero struct{}

func (Zero) Sample(x *grid.Field) (*sparse.DenseArray, error) {
	return sparse.ZerosDense(x.Data.Shape...), nil
}

// Gaussian produces amplitude-scaled white noise. A zero seed draws a
// time-based one; set the seed explicitly for reproducible ensembles.
type Gaussian struct {
	Amplitude float64
	rng       *rand.Rand
}

// NewGaussian constructs a white-noise method.
func NewGaussian(amplitude float64, seed int64) (*Gaussian, error) {
	if amplitude < 0 {
		return nil, fmt.Errorf("perturbation: amplitude must be non-negative, got %g", amplitude)
	}
	return &Gaussian{Amplitude: amplitude, rng: newRNG(seed)}, nil
}

func (g *Gaussian) Sample(x *grid.Field) (*sparse.DenseArray, error) {
	out := sparse.ZerosDense(x.Data.Shape...)
	for i := range out.Elements {
		out.Elements[i] = g.Amplitude * g.rng.NormFloat64()
	}
	return out, nil
}

// Spherical produces white noise scaled by the cosine of latitude, damping
// perturbations toward the poles where grid cells shrink. The state must
// carry a latitude axis in degrees.
type Spherical struct {
	Amplitude float64
	rng       *rand.Rand
}

// NewSpherical constructs a latitude-scaled noise method.
func NewSpherical(amplitude float64, seed int64) (*Spherical, error) {
	if amplitude < 0 {
		return nil, fmt.Errorf("perturbation: amplitude must be non-negative, got %g", amplitude)
	}
	return &Spherical{Amplitude: amplitude, rng: newRNG(seed)}, nil
}

func (s *Spherical) Sample(x *grid.Field) (*sparse.DenseArray, error) {
	la := x.Coords.Axis(grid.Lat)
	if la < 0 {
		return nil, fmt.Errorf("perturbation: spherical noise requires a %q axis, got %s", grid.Lat, x.Coords)
	}
	lats := x.Coords.Values(grid.Lat)
	scale := make([]float64, len(lats))
	for i, deg := range lats {
		scale[i] = math.Cos(deg * math.Pi / 180)
	}

	shape := x.Data.Shape
	inner := 1
	for _, n := range shape[la+1:] {
		inner *= n
	}
	nlat := shape[la]

	out := sparse.ZerosDense(shape...)
	for i := range out.Elements {
		latIdx := (i / inner) % nlat
		out.Elements[i] = s.Amplitude * scale[latIdx] * s.rng.NormFloat64()
	}
	return out, nil
}

func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
