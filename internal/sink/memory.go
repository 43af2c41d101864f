package sink

import (
	"fmt"
	"math"
	"slices"

	"github.com/ctessum/sparse"

	"github.com/vk/gridcastgo/internal/grid"
)

// Memory keeps the full trajectory in RAM, one dense array per variable.
// It backs tests and post-processing, and the NetCDF backend builds on it
// for accumulation before flushing to disk.
type Memory struct {
	coords   *grid.CoordSystem // declared schema, without the variable axis
	vars     []string
	arrays   map[string]*sparse.DenseArray
	attrs    map[string]string
	attrKeys []string
	writes   int
	leads    []float64 // lead hours in write order
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		arrays: make(map[string]*sparse.DenseArray),
		attrs:  make(map[string]string),
	}
}

func (m *Memory) AddArray(total *grid.CoordSystem, variables []string) error {
	if m.coords != nil {
		return fmt.Errorf("sink: output schema already declared")
	}
	if total.Has(grid.Variable) {
		return fmt.Errorf("sink: schema must not carry a variable axis; channels are passed separately")
	}
	if !total.Has(grid.LeadTime) {
		return fmt.Errorf("sink: schema must carry a %q axis", grid.LeadTime)
	}
	if len(variables) == 0 {
		return fmt.Errorf("sink: at least one channel is required")
	}
	m.coords = total.Clone()
	m.vars = slices.Clone(variables)
	for _, v := range variables {
		m.arrays[v] = sparse.ZerosDense(m.coords.Shape()...)
	}
	return nil
}

func (m *Memory) Write(x *grid.Field) error {
	if m.coords == nil {
		return fmt.Errorf("sink: write before schema declaration")
	}
	names, fields, err := grid.SplitVariables(x)
	if err != nil {
		return err
	}

	leadVals := x.Coords.Values(grid.LeadTime)
	if len(leadVals) != 1 {
		return fmt.Errorf("sink: each write must carry exactly one lead time, got %d", len(leadVals))
	}
	leadIdx := findLead(m.coords.Values(grid.LeadTime), leadVals[0])
	if leadIdx < 0 {
		return fmt.Errorf("sink: lead time %gh is not part of the declared schema", leadVals[0])
	}

	for i, name := range names {
		dst, ok := m.arrays[name]
		if !ok {
			return fmt.Errorf("sink: channel %q was not declared", name)
		}
		if err := m.copyAtLead(dst, fields[i], leadIdx); err != nil {
			return fmt.Errorf("sink: writing channel %q: %w", name, err)
		}
	}
	m.writes++
	m.leads = append(m.leads, leadVals[0])
	return nil
}

// copyAtLead files a single-lead field into the full trajectory array at
// the given lead index. Every axis other than lead_time must match the
// declared schema exactly.
func (m *Memory) copyAtLead(dst *sparse.DenseArray, f *grid.Field, leadIdx int) error {
	if !slices.Equal(f.Coords.Dims(), m.coords.Dims()) {
		return fmt.Errorf("axes %v do not match declared schema %v", f.Coords.Dims(), m.coords.Dims())
	}
	li := m.coords.Axis(grid.LeadTime)
	declShape := m.coords.Shape()
	srcShape := f.Data.Shape
	for i := range declShape {
		want := declShape[i]
		if i == li {
			want = 1
		}
		if srcShape[i] != want {
			return fmt.Errorf("axis %q has size %d, schema expects %d", f.Coords.Dims()[i], srcShape[i], want)
		}
	}

	outer, inner := 1, 1
	for _, s := range declShape[:li] {
		outer *= s
	}
	for _, s := range declShape[li+1:] {
		inner *= s
	}
	nlead := declShape[li]
	for o := 0; o < outer; o++ {
		src := o * inner
		d := (o*nlead + leadIdx) * inner
		copy(dst.Elements[d:d+inner], f.Data.Elements[src:src+inner])
	}
	return nil
}

func (m *Memory) SetAttr(key, value string) {
	if _, ok := m.attrs[key]; !ok {
		m.attrKeys = append(m.attrKeys, key)
	}
	m.attrs[key] = value
}

func (m *Memory) Close() error { return nil }

// Coords returns the declared schema, or nil before declaration.
func (m *Memory) Coords() *grid.CoordSystem { return m.coords }

// Variables returns the declared channel names.
func (m *Memory) Variables() []string { return slices.Clone(m.vars) }

// Array returns the accumulated trajectory for one channel.
func (m *Memory) Array(variable string) *sparse.DenseArray { return m.arrays[variable] }

// Writes returns the number of Write calls accepted so far.
func (m *Memory) Writes() int { return m.writes }

// Leads returns the lead hours written, in write order.
func (m *Memory) Leads() []float64 { return slices.Clone(m.leads) }

// Attr returns a metadata attribute.
func (m *Memory) Attr(key string) string { return m.attrs[key] }

// Attrs returns metadata keys and values in insertion order.
func (m *Memory) Attrs() ([]string, map[string]string) {
	return slices.Clone(m.attrKeys), m.attrs
}

func findLead(declared []float64, lead float64) int {
	for i, h := range declared {
		if math.Abs(h-lead) < 1e-9 {
			return i
		}
	}
	return -1
}
