package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/vk/gridcastgo/internal/grid"
)

// NetCDF accumulates the trajectory in memory and materializes it as a
// classic NetCDF file on Close: one coordinate variable per axis and one
// data variable per channel, with run metadata as global attributes.
type NetCDF struct {
	mem  *Memory
	path string
}

// NewNetCDF returns a backend writing to the given path. The parent
// directory is created up front so a bad path fails before inference runs.
func NewNetCDF(path string) (*NetCDF, error) {
	if path == "" {
		return nil, fmt.Errorf("sink: netcdf path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink: creating output directory: %w", err)
		}
	}
	return &NetCDF{mem: NewMemory(), path: path}, nil
}

func (n *NetCDF) AddArray(total *grid.CoordSystem, variables []string) error {
	return n.mem.AddArray(total, variables)
}

func (n *NetCDF) Write(x *grid.Field) error { return n.mem.Write(x) }

func (n *NetCDF) SetAttr(key, value string) { n.mem.SetAttr(key, value) }

// Memory exposes the accumulated arrays, mirroring the in-memory backend's
// post-processing accessors.
func (n *NetCDF) Memory() *Memory { return n.mem }

// Close flushes the accumulated trajectory to disk.
func (n *NetCDF) Close() error {
	coords := n.mem.Coords()
	if coords == nil {
		return fmt.Errorf("sink: closing netcdf backend before schema declaration")
	}
	cw, err := cdf.OpenWriter(n.path)
	if err != nil {
		return fmt.Errorf("sink: creating %s: %w", n.path, err)
	}

	if keys, attrs := n.mem.Attrs(); len(keys) > 0 {
		vals := make(map[string]any, len(keys))
		for _, k := range keys {
			vals[k] = attrs[k]
		}
		om, err := util.NewOrderedMap(keys, vals)
		if err != nil {
			return fmt.Errorf("sink: building global attributes: %w", err)
		}
		if err := cw.AddGlobalAttrs(om); err != nil {
			return fmt.Errorf("sink: writing global attributes: %w", err)
		}
	}

	dims := coords.Dims()
	for _, name := range dims {
		v := api.Variable{
			Values:     slices.Clone(coords.Values(name)),
			Dimensions: []string{name},
		}
		if err := cw.AddVar(name, v); err != nil {
			return fmt.Errorf("sink: writing coordinate %q: %w", name, err)
		}
	}
	for _, name := range n.mem.Variables() {
		arr := n.mem.Array(name)
		v := api.Variable{
			Values:     nest(arr.Elements, arr.Shape),
			Dimensions: slices.Clone(dims),
		}
		if err := cw.AddVar(name, v); err != nil {
			return fmt.Errorf("sink: writing channel %q: %w", name, err)
		}
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("sink: closing %s: %w", n.path, err)
	}
	return nil
}

// nest converts a flat row-major array into the nested-slice representation
// the netcdf writer expects ([]float64, [][]float64, ...).
func nest(flat []float64, shape []int) any {
	if len(shape) <= 1 {
		return slices.Clone(flat)
	}
	n := shape[0]
	sub := len(flat) / n
	first := nest(flat[:sub], shape[1:])
	out := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(first)), n, n)
	out.Index(0).Set(reflect.ValueOf(first))
	for i := 1; i < n; i++ {
		out.Index(i).Set(reflect.ValueOf(nest(flat[i*sub:(i+1)*sub], shape[1:])))
	}
	return out.Interface()
}
