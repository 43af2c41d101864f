// Package grid holds the named-axis data model shared by every component of
// the toolkit: a CoordSystem describing tensor axes and a Field pairing a
// dense tensor with its coordinates.
package grid

import (
	"fmt"
	"slices"
)

// Canonical dimension names. Axis order in a CoordSystem always matches the
// axis order of the tensor it describes.
const (
	Ensemble = "ensemble"
	Time     = "time"
	LeadTime = "lead_time"
	Variable = "variable"
	Lat      = "lat"
	Lon      = "lon"
)

type axis struct {
	name   string
	values []float64
	names  []string // set only for the variable axis
}

// CoordSystem is an ordered mapping from dimension name to the coordinate
// values along that dimension. The variable axis additionally carries the
// channel names; its numeric values are the channel indices.
type CoordSystem struct {
	axes []axis
}

// NewCoords returns an empty coordinate system. Axes are appended with Add
// and AddVariable in tensor axis order.
func NewCoords() *CoordSystem {
	return &CoordSystem{}
}

// Add appends a numeric axis and returns the receiver for chaining.
// Duplicate or empty axes are programmer errors.
func (c *CoordSystem) Add(name string, values []float64) *CoordSystem {
	if c.Has(name) {
		panic(fmt.Sprintf("grid: axis %q already present", name))
	}
	if len(values) == 0 {
		panic(fmt.Sprintf("grid: axis %q must have at least one value", name))
	}
	c.axes = append(c.axes, axis{name: name, values: slices.Clone(values)})
	return c
}

// AddVariable appends the variable axis with the given channel names.
func (c *CoordSystem) AddVariable(names []string) *CoordSystem {
	if c.Has(Variable) {
		panic("grid: variable axis already present")
	}
	if len(names) == 0 {
		panic("grid: variable axis must have at least one channel")
	}
	values := make([]float64, len(names))
	for i := range names {
		values[i] = float64(i)
	}
	c.axes = append(c.axes, axis{name: Variable, values: values, names: slices.Clone(names)})
	return c
}

// Dims returns the axis names in tensor order.
func (c *CoordSystem) Dims() []string {
	dims := make([]string, len(c.axes))
	for i, a := range c.axes {
		dims[i] = a.name
	}
	return dims
}

// NumDims returns the number of axes.
func (c *CoordSystem) NumDims() int { return len(c.axes) }

// Axis returns the position of the named axis, or -1 if absent.
func (c *CoordSystem) Axis(name string) int {
	for i, a := range c.axes {
		if a.name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named axis is present.
func (c *CoordSystem) Has(name string) bool { return c.Axis(name) >= 0 }

// Values returns the coordinate values of the named axis, or nil if absent.
// The returned slice is owned by the coordinate system.
func (c *CoordSystem) Values(name string) []float64 {
	if i := c.Axis(name); i >= 0 {
		return c.axes[i].values
	}
	return nil
}

// VarNames returns the channel names of the variable axis, or nil if absent.
func (c *CoordSystem) VarNames() []string {
	if i := c.Axis(Variable); i >= 0 {
		return c.axes[i].names
	}
	return nil
}

// Shape returns the per-axis sizes in tensor order.
func (c *CoordSystem) Shape() []int {
	shape := make([]int, len(c.axes))
	for i, a := range c.axes {
		shape[i] = len(a.values)
	}
	return shape
}

// TotalSize returns the number of elements a conforming tensor holds.
func (c *CoordSystem) TotalSize() int {
	n := 1
	for _, a := range c.axes {
		n *= len(a.values)
	}
	return n
}

// Clone returns a deep copy.
func (c *CoordSystem) Clone() *CoordSystem {
	out := &CoordSystem{axes: make([]axis, len(c.axes))}
	for i, a := range c.axes {
		out.axes[i] = axis{name: a.name, values: slices.Clone(a.values), names: slices.Clone(a.names)}
	}
	return out
}

// WithLeading returns a copy with a new numeric axis prepended.
func (c *CoordSystem) WithLeading(name string, values []float64) *CoordSystem {
	if c.Has(name) {
		panic(fmt.Sprintf("grid: axis %q already present", name))
	}
	out := c.Clone()
	out.axes = append([]axis{{name: name, values: slices.Clone(values)}}, out.axes...)
	return out
}

// Without returns a copy with the named axis removed. Removing an absent
// axis is a no-op.
func (c *CoordSystem) Without(name string) *CoordSystem {
	out := c.Clone()
	if i := out.Axis(name); i >= 0 {
		out.axes = append(out.axes[:i], out.axes[i+1:]...)
	}
	return out
}

// WithValues returns a copy with the named axis's values replaced.
func (c *CoordSystem) WithValues(name string, values []float64) *CoordSystem {
	i := c.Axis(name)
	if i < 0 {
		panic(fmt.Sprintf("grid: axis %q not present", name))
	}
	if len(values) == 0 {
		panic(fmt.Sprintf("grid: axis %q must have at least one value", name))
	}
	out := c.Clone()
	out.axes[i].values = slices.Clone(values)
	return out
}

// Equal reports whether two coordinate systems have identical axes, values
// and channel names, in the same order.
func (c *CoordSystem) Equal(o *CoordSystem) bool {
	if len(c.axes) != len(o.axes) {
		return false
	}
	for i, a := range c.axes {
		b := o.axes[i]
		if a.name != b.name || !slices.Equal(a.values, b.values) || !slices.Equal(a.names, b.names) {
			return false
		}
	}
	return true
}

// CheckShape verifies that a tensor shape conforms to this coordinate
// system: one axis per tensor dimension with matching sizes.
func (c *CoordSystem) CheckShape(shape []int) error {
	if len(shape) != len(c.axes) {
		return fmt.Errorf("grid: tensor has %d axes, coordinates describe %d", len(shape), len(c.axes))
	}
	for i, a := range c.axes {
		if shape[i] != len(a.values) {
			return fmt.Errorf("grid: axis %q has size %d, coordinates have %d values", a.name, shape[i], len(a.values))
		}
	}
	return nil
}

func (c *CoordSystem) String() string {
	s := "{"
	for i, a := range c.axes {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s:%d", a.name, len(a.values))
	}
	return s + "}"
}
