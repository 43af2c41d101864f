package grid

import (
	"github.com/ctessum/sparse"
)

// Field is a dense tensor plus the coordinate system describing its axes.
// The invariant that shape and coordinates agree is checked on construction
// and preserved by every operation in this package.
type Field struct {
	Data   *sparse.DenseArray
	Coords *CoordSystem
}

// NewField pairs a tensor with its coordinates, verifying the shape
// invariant.
func NewField(data *sparse.DenseArray, coords *CoordSystem) (*Field, error) {
	if err := coords.CheckShape(data.Shape); err != nil {
		return nil, err
	}
	return &Field{Data: data, Coords: coords}, nil
}

// Zeros allocates a zero-filled field conforming to the given coordinates.
func Zeros(coords *CoordSystem) *Field {
	return &Field{Data: sparse.ZerosDense(coords.Shape()...), Coords: coords}
}

// Clone deep-copies the tensor and its coordinates.
func (f *Field) Clone() *Field {
	data := sparse.ZerosDense(f.Coords.Shape()...)
	copy(data.Elements, f.Data.Elements)
	return &Field{Data: data, Coords: f.Coords.Clone()}
}
