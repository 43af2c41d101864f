// Package model defines the prognostic-model contract and the built-in
// forecast steppers. A prognostic model advances an atmospheric state one
// native lead-time step per iteration; the iterator it produces is lazy and
// unbounded, so the caller enforces the stop condition.
package model

import (
	"time"

	"github.com/vk/gridcastgo/internal/grid"
)

// Iterator yields successive forecast states. The first call returns the
// initial condition at lead zero; each later call advances one native step.
// The sequence has no built-in termination.
type Iterator interface {
	Next() (*grid.Field, error)
}

// Prognostic is a stepping forecast model.
type Prognostic interface {
	// InputCoords describes the state layout the model requires: the
	// lead-time values to fetch initial conditions for and the variable
	// channels it advances.
	InputCoords() *grid.CoordSystem

	// OutputCoords carries the model's native output step as a single
	// lead-time value, alongside the variables it produces.
	OutputCoords() *grid.CoordSystem

	// CreateIterator starts a fresh trajectory from x. The sequence is
	// restartable only by calling CreateIterator again; x itself is not
	// mutated.
	CreateIterator(x *grid.Field) Iterator
}

// stepModel implements the Prognostic plumbing shared by all built-ins.
// Only the advance function differs between them.
type stepModel struct {
	variables []string
	step      time.Duration
	advance   func(f *grid.Field) error
}

func (m *stepModel) InputCoords() *grid.CoordSystem {
	return grid.NewCoords().
		Add(grid.LeadTime, []float64{0}).
		AddVariable(m.variables)
}

func (m *stepModel) OutputCoords() *grid.CoordSystem {
	return grid.NewCoords().
		Add(grid.LeadTime, []float64{m.step.Hours()}).
		AddVariable(m.variables)
}

func (m *stepModel) CreateIterator(x *grid.Field) Iterator {
	return &iterator{cur: x.Clone(), stepHours: m.step.Hours(), advance: m.advance}
}

// iterator owns a private copy of the state and mutates it in place on each
// advance. The yielded field is reused between calls; consumers that keep
// data across steps must copy it, which every sink backend does.
type iterator struct {
	cur       *grid.Field
	stepHours float64
	advance   func(f *grid.Field) error
	n         int
}

func (it *iterator) Next() (*grid.Field, error) {
	if it.n > 0 {
		if err := it.advance(it.cur); err != nil {
			return nil, err
		}
	}
	lead := float64(it.n) * it.stepHours
	it.n++
	it.cur.Coords = it.cur.Coords.WithValues(grid.LeadTime, []float64{lead})
	return it.cur, nil
}
