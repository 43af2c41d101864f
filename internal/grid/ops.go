package grid

import (
	"fmt"
	"slices"

	"github.com/ctessum/sparse"
)

// Broadcast replicates a field across a new leading ensemble axis of size n.
// All members are identical copies of the input.
func Broadcast(f *Field, n int) *Field {
	if n < 1 {
		panic("grid: ensemble size must be positive")
	}
	members := make([]float64, n)
	for i := range members {
		members[i] = float64(i)
	}
	coords := f.Coords.WithLeading(Ensemble, members)
	out := sparse.ZerosDense(coords.Shape()...)
	block := len(f.Data.Elements)
	for i := 0; i < n; i++ {
		copy(out.Elements[i*block:(i+1)*block], f.Data.Elements)
	}
	return &Field{Data: out, Coords: coords}
}

// AddInPlace adds a noise tensor to the field's tensor. The shapes must
// match exactly.
func AddInPlace(f *Field, noise *sparse.DenseArray) error {
	if !slices.Equal(f.Data.Shape, noise.Shape) {
		return fmt.Errorf("grid: noise shape %v does not match state shape %v", noise.Shape, f.Data.Shape)
	}
	for i, v := range noise.Elements {
		f.Data.Elements[i] += v
	}
	return nil
}

// AlignTo reindexes a field so that every axis named by want matches want's
// coordinate values. Supported adjustments are reversing a numeric axis
// (e.g. latitude orientation) and reordering the variable axis by channel
// name. Axes of the field that want does not name are left untouched.
func AlignTo(f *Field, want *CoordSystem) (*Field, error) {
	out := f
	for _, name := range want.Dims() {
		i := out.Coords.Axis(name)
		if i < 0 {
			return nil, fmt.Errorf("grid: state is missing required axis %q", name)
		}
		wv := want.Values(name)
		fv := out.Coords.Values(name)
		if len(wv) != len(fv) {
			return nil, fmt.Errorf("grid: axis %q has %d values, expected %d", name, len(fv), len(wv))
		}
		if name == Variable {
			aligned, err := reorderVariables(out, want.VarNames())
			if err != nil {
				return nil, err
			}
			out = aligned
			continue
		}
		switch {
		case slices.Equal(fv, wv):
		case reversedEqual(fv, wv):
			out = flipAxis(out, i)
		default:
			return nil, fmt.Errorf("grid: cannot align axis %q to requested coordinates", name)
		}
	}
	return out, nil
}

// SplitVariables slices a field along the variable axis, returning one
// field per channel with the variable axis removed. Axis order of the
// remaining dimensions is preserved.
func SplitVariables(f *Field) ([]string, []*Field, error) {
	v := f.Coords.Axis(Variable)
	if v < 0 {
		return nil, nil, fmt.Errorf("grid: field has no variable axis")
	}
	names := f.Coords.VarNames()
	shape := f.Data.Shape
	outer, n, inner := strides(shape, v)
	coords := f.Coords.Without(Variable)

	fields := make([]*Field, len(names))
	for k := range names {
		out := sparse.ZerosDense(coords.Shape()...)
		for o := 0; o < outer; o++ {
			src := (o*n + k) * inner
			dst := o * inner
			copy(out.Elements[dst:dst+inner], f.Data.Elements[src:src+inner])
		}
		fields[k] = &Field{Data: out, Coords: coords.Clone()}
	}
	return slices.Clone(names), fields, nil
}

// strides decomposes a shape around axis i into the product of the leading
// dimensions, the axis length, and the product of the trailing dimensions.
func strides(shape []int, i int) (outer, n, inner int) {
	outer, inner = 1, 1
	for _, s := range shape[:i] {
		outer *= s
	}
	for _, s := range shape[i+1:] {
		inner *= s
	}
	return outer, shape[i], inner
}

func flipAxis(f *Field, i int) *Field {
	shape := f.Data.Shape
	outer, n, inner := strides(shape, i)
	out := sparse.ZerosDense(shape...)
	for o := 0; o < outer; o++ {
		for k := 0; k < n; k++ {
			src := (o*n + k) * inner
			dst := (o*n + (n - 1 - k)) * inner
			copy(out.Elements[dst:dst+inner], f.Data.Elements[src:src+inner])
		}
	}
	coords := f.Coords.Clone()
	name := f.Coords.Dims()[i]
	flipped := slices.Clone(f.Coords.Values(name))
	slices.Reverse(flipped)
	coords = coords.WithValues(name, flipped)
	return &Field{Data: out, Coords: coords}
}

func reorderVariables(f *Field, order []string) (*Field, error) {
	have := f.Coords.VarNames()
	if slices.Equal(have, order) {
		return f, nil
	}
	perm := make([]int, len(order))
	for k, name := range order {
		idx := slices.Index(have, name)
		if idx < 0 {
			return nil, fmt.Errorf("grid: variable %q not present in state", name)
		}
		perm[k] = idx
	}
	v := f.Coords.Axis(Variable)
	shape := f.Data.Shape
	outer, n, inner := strides(shape, v)
	out := sparse.ZerosDense(shape...)
	for o := 0; o < outer; o++ {
		for k := 0; k < n; k++ {
			src := (o*n + perm[k]) * inner
			dst := (o*n + k) * inner
			copy(out.Elements[dst:dst+inner], f.Data.Elements[src:src+inner])
		}
	}
	coords := f.Coords.Without(Variable)
	// Rebuild with the variable axis in its original position.
	rebuilt := NewCoords()
	for i, name := range f.Coords.Dims() {
		if i == v {
			rebuilt.AddVariable(order)
			continue
		}
		rebuilt.Add(name, coords.Values(name))
	}
	return &Field{Data: out, Coords: rebuilt}, nil
}

// Roll cyclically shifts the field's tensor along the named axis by the
// given number of cells. Coordinates are unchanged: the shift moves values
// around the axis, as in solid-body rotation around a periodic dimension.
func Roll(f *Field, dim string, cells int) error {
	i := f.Coords.Axis(dim)
	if i < 0 {
		return fmt.Errorf("grid: field has no %q axis", dim)
	}
	outer, n, inner := strides(f.Data.Shape, i)
	shift := ((cells % n) + n) % n
	if shift == 0 {
		return nil
	}
	buf := make([]float64, n*inner)
	for o := 0; o < outer; o++ {
		block := f.Data.Elements[o*n*inner : (o+1)*n*inner]
		for k := 0; k < n; k++ {
			dst := ((k + shift) % n) * inner
			copy(buf[dst:dst+inner], block[k*inner:(k+1)*inner])
		}
		copy(block, buf)
	}
	return nil
}

func reversedEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[len(b)-1-i] {
			return false
		}
	}
	return true
}
