package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/vk/gridcastgo/internal/grid"
	"github.com/vk/gridcastgo/internal/timeref"
)

// NetCDF reads initial conditions from a local analysis file. The expected
// layout is the one this toolkit's NetCDF sink and common reanalysis
// extracts share: coordinate variables "time" (hours since the Unix epoch),
// "lat" and "lon", and one [time][lat][lon] data variable per channel.
type NetCDF struct {
	nc   api.Group
	path string
	lats []float64
	lons []float64
	time []float64
}

// OpenNetCDF opens an analysis file and reads its coordinate variables.
func OpenNetCDF(path string) (*NetCDF, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: opening %s: %w", path, err)
	}
	s := &NetCDF{nc: nc, path: path}
	for _, c := range []struct {
		name string
		dst  *[]float64
	}{
		{grid.Time, &s.time},
		{grid.Lat, &s.lats},
		{grid.Lon, &s.lons},
	} {
		vals, err := coordValues(nc, c.name)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("source: reading coordinate %q from %s: %w", c.name, path, err)
		}
		*c.dst = vals
	}
	return s, nil
}

func (s *NetCDF) Name() string { return "netcdf:" + s.path }

func (s *NetCDF) Grid() (lats, lons []float64) { return s.lats, s.lons }

// Close releases the underlying file handle.
func (s *NetCDF) Close() error {
	s.nc.Close()
	return nil
}

// Fetch reads the grid for one valid time. The analysis file carries states
// at fixed times, so the requested time plus lead must match a stored time
// coordinate exactly.
func (s *NetCDF) Fetch(ctx context.Context, t time.Time, lead time.Duration, variable string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	valid := timeref.Hours(t) + timeref.LeadHours(lead)
	idx := -1
	for i, h := range s.time {
		if math.Abs(h-valid) < 1e-6 {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("valid time %s not present in %s", timeref.FromHours(valid).Format(time.RFC3339), s.path)
	}

	vg, err := s.nc.GetVarGetter(variable)
	if err != nil {
		return nil, fmt.Errorf("variable %q unavailable in %s: %w", variable, s.path, err)
	}
	v, err := vg.GetSlice(int64(idx), int64(idx)+1)
	if err != nil {
		return nil, fmt.Errorf("reading %q at time index %d: %w", variable, idx, err)
	}
	return flattenPlane(v, len(s.lats), len(s.lons))
}

// coordValues reads a 1-D coordinate variable as float64.
func coordValues(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	v, err := vg.Values()
	if err != nil {
		return nil, err
	}
	switch vals := v.(type) {
	case []float64:
		return vals, nil
	case []float32:
		out := make([]float64, len(vals))
		for i, f := range vals {
			out[i] = float64(f)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(vals))
		for i, n := range vals {
			out[i] = float64(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported coordinate type %T", v)
	}
}

// flattenPlane converts a [1][lat][lon] slice from the netcdf reader into
// the flat row-major layout the fetch assembly expects.
func flattenPlane(v any, nlat, nlon int) ([]float64, error) {
	out := make([]float64, 0, nlat*nlon)
	switch planes := v.(type) {
	case [][][]float64:
		for _, row := range planes[0] {
			out = append(out, row...)
		}
	case [][][]float32:
		for _, row := range planes[0] {
			for _, f := range row {
				out = append(out, float64(f))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported data type %T", v)
	}
	if len(out) != nlat*nlon {
		return nil, fmt.Errorf("read %d values, grid has %d points", len(out), nlat*nlon)
	}
	return out, nil
}
