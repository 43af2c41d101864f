package model

import (
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridcastgo/internal/grid"
)

// initialState builds a 2x4 state over one variable with distinct values.
func initialState(t *testing.T) *grid.Field {
	t.Helper()
	coords := grid.NewCoords().
		Add(grid.LeadTime, []float64{0}).
		AddVariable([]string{"t2m"}).
		Add(grid.Lat, []float64{-45, 45}).
		Add(grid.Lon, []float64{0, 90, 180, 270})
	data := sparse.ZerosDense(coords.Shape()...)
	for i := range data.Elements {
		data.Elements[i] = float64(i)
	}
	f, err := grid.NewField(data, coords)
	require.NoError(t, err)
	return f
}

func TestStepModel_Coords(t *testing.T) {
	m, err := NewPersistence([]string{"t2m", "u10"}, 6*time.Hour)
	require.NoError(t, err)

	in := m.InputCoords()
	assert.Equal(t, []float64{0}, in.Values(grid.LeadTime))
	assert.Equal(t, []string{"t2m", "u10"}, in.VarNames())

	out := m.OutputCoords()
	assert.Equal(t, []float64{6}, out.Values(grid.LeadTime))
	assert.Equal(t, []string{"t2m", "u10"}, out.VarNames())
}

func TestIterator_LeadProgression(t *testing.T) {
	m, err := NewPersistence([]string{"t2m"}, 6*time.Hour)
	require.NoError(t, err)

	x := initialState(t)
	it := m.CreateIterator(x)

	for n := 0; n <= 3; n++ {
		state, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, []float64{float64(n) * 6}, state.Coords.Values(grid.LeadTime), "step %d", n)
		// Persistence never changes the values.
		assert.Equal(t, x.Data.Elements, state.Data.Elements, "step %d", n)
	}
}

func TestIterator_DoesNotMutateInput(t *testing.T) {
	m, err := NewAdvection([]string{"t2m"}, 6*time.Hour, 1)
	require.NoError(t, err)

	x := initialState(t)
	before := append([]float64(nil), x.Data.Elements...)

	it := m.CreateIterator(x)
	_, err = it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	require.NoError(t, err)

	assert.Equal(t, before, x.Data.Elements)
	assert.Equal(t, []float64{0}, x.Coords.Values(grid.LeadTime))
}

func TestIterator_Restartable(t *testing.T) {
	m, err := NewAdvection([]string{"t2m"}, 6*time.Hour, 1)
	require.NoError(t, err)
	x := initialState(t)

	collect := func() [][]float64 {
		it := m.CreateIterator(x)
		var out [][]float64
		for n := 0; n < 3; n++ {
			state, err := it.Next()
			require.NoError(t, err)
			out = append(out, append([]float64(nil), state.Data.Elements...))
		}
		return out
	}

	first := collect()
	second := collect()
	assert.Equal(t, first, second)
}

func TestAdvection_RollsLongitude(t *testing.T) {
	m, err := NewAdvection([]string{"t2m"}, 6*time.Hour, 1)
	require.NoError(t, err)

	it := m.CreateIterator(initialState(t))
	_, err = it.Next() // initial condition
	require.NoError(t, err)
	state, err := it.Next()
	require.NoError(t, err)

	// Each latitude row is shifted one cell eastward.
	assert.Equal(t, []float64{3, 0, 1, 2, 7, 4, 5, 6}, state.Data.Elements)
}

func TestDiffusion_Smooths(t *testing.T) {
	m, err := NewDiffusion([]string{"t2m"}, 6*time.Hour, 0.5)
	require.NoError(t, err)

	// One hot point in an otherwise zero state.
	coords := grid.NewCoords().
		Add(grid.LeadTime, []float64{0}).
		AddVariable([]string{"t2m"}).
		Add(grid.Lat, []float64{-45, 0, 45}).
		Add(grid.Lon, []float64{0, 120, 240})
	x := grid.Zeros(coords)
	x.Data.Elements[4] = 8 // centre of the 3x3 plane

	it := m.CreateIterator(x)
	_, err = it.Next()
	require.NoError(t, err)
	state, err := it.Next()
	require.NoError(t, err)

	// Mass spreads to the four neighbours and the total is conserved apart
	// from the pole clamping, which here only touches zero rows.
	assert.Equal(t, float64(4), state.Data.Elements[4])
	assert.Equal(t, float64(1), state.Data.Elements[1])
	assert.Equal(t, float64(1), state.Data.Elements[7])
	assert.Equal(t, float64(1), state.Data.Elements[3])
	assert.Equal(t, float64(1), state.Data.Elements[5])

	t.Run("requires trailing lat lon", func(t *testing.T) {
		bad := grid.Zeros(grid.NewCoords().
			Add(grid.LeadTime, []float64{0}).
			Add(grid.Lon, []float64{0, 120, 240}).
			Add(grid.Lat, []float64{-45, 0, 45}))
		it := m.CreateIterator(bad)
		_, err := it.Next() // initial condition passes through
		require.NoError(t, err)
		_, err = it.Next()
		assert.ErrorContains(t, err, "must end with [lat, lon]")
	})
}

func TestBuiltinValidation(t *testing.T) {
	testCases := []struct {
		name string
		make func() (Prognostic, error)
	}{
		{"no variables", func() (Prognostic, error) { return NewPersistence(nil, 6*time.Hour) }},
		{"zero step", func() (Prognostic, error) { return NewPersistence([]string{"t2m"}, 0) }},
		{"zero advection cells", func() (Prognostic, error) { return NewAdvection([]string{"t2m"}, 6*time.Hour, 0) }},
		{"alpha too small", func() (Prognostic, error) { return NewDiffusion([]string{"t2m"}, 6*time.Hour, 0) }},
		{"alpha too large", func() (Prognostic, error) { return NewDiffusion([]string{"t2m"}, 6*time.Hour, 1.5) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.make()
			assert.Error(t, err)
		})
	}
}
