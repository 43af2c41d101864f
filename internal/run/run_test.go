package run

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridcastgo/internal/grid"
	"github.com/vk/gridcastgo/internal/model"
	"github.com/vk/gridcastgo/internal/perturbation"
	"github.com/vk/gridcastgo/internal/sink"
	"github.com/vk/gridcastgo/internal/source"
	"github.com/vk/gridcastgo/internal/timeref"
)

// countingSource wraps the synthetic source and counts fetches, so tests can
// assert that validation failures happen before any data is pulled.
type countingSource struct {
	*source.Synthetic
	fetches atomic.Int64
}

func (c *countingSource) Fetch(ctx context.Context, t time.Time, lead time.Duration, variable string) ([]float64, error) {
	c.fetches.Add(1)
	return c.Synthetic.Fetch(ctx, t, lead, variable)
}

func testFixture(t *testing.T) (model.Prognostic, *countingSource) {
	t.Helper()
	m, err := model.NewPersistence([]string{"t2m", "u10"}, 6*time.Hour)
	require.NoError(t, err)
	syn, err := source.NewSynthetic(5, 8, nil)
	require.NoError(t, err)
	return m, &countingSource{Synthetic: syn}
}

func TestEnsemble_WritesEveryLead(t *testing.T) {
	m, src := testFixture(t)
	mem := sink.NewMemory()

	got, err := Ensemble(context.Background(), []string{"2024-01-01"}, 4, 3, m, perturbation.Zero{}, src, mem)
	require.NoError(t, err)
	require.Same(t, mem, got)

	// nsteps+1 writes, leads strictly increasing by the native step.
	assert.Equal(t, 5, mem.Writes())
	assert.Equal(t, []float64{0, 6, 12, 18, 24}, mem.Leads())

	coords := mem.Coords()
	require.NotNil(t, coords)
	assert.Equal(t, []string{grid.Ensemble, grid.Time, grid.LeadTime, grid.Lat, grid.Lon}, coords.Dims())
	assert.Equal(t, []float64{0, 1, 2}, coords.Values(grid.Ensemble))
	assert.Equal(t, []float64{0, 6, 12, 18, 24}, coords.Values(grid.LeadTime))
	assert.Equal(t, []string{"t2m", "u10"}, mem.Variables())
}

func TestEnsemble_ZeroSteps(t *testing.T) {
	m, src := testFixture(t)
	mem := sink.NewMemory()

	_, err := Ensemble(context.Background(), []string{"2024-01-01"}, 0, 2, m, perturbation.Zero{}, src, mem)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Writes())
	assert.Equal(t, []float64{0}, mem.Leads())
	assert.Equal(t, []float64{0}, mem.Coords().Values(grid.LeadTime))
}

func TestEnsemble_ZeroNoiseMembersIdentical(t *testing.T) {
	m, src := testFixture(t)
	mem := sink.NewMemory()

	_, err := Ensemble(context.Background(), []string{"2024-01-01"}, 2, 3, m, perturbation.Zero{}, src, mem)
	require.NoError(t, err)

	arr := mem.Array("t2m")
	block := len(arr.Elements) / 3
	for member := 1; member < 3; member++ {
		assert.Equal(t, arr.Elements[:block], arr.Elements[member*block:(member+1)*block],
			"member %d should match member 0 under zero noise", member)
	}
}

func TestEnsemble_GaussianNoiseDiverges(t *testing.T) {
	m, src := testFixture(t)
	mem := sink.NewMemory()

	noise, err := perturbation.NewGaussian(0.5, 42)
	require.NoError(t, err)
	_, err = Ensemble(context.Background(), []string{"2024-01-01"}, 1, 2, m, noise, src, mem)
	require.NoError(t, err)

	arr := mem.Array("t2m")
	block := len(arr.Elements) / 2
	assert.NotEqual(t, arr.Elements[:block], arr.Elements[block:])
}

func TestEnsemble_Reproducible(t *testing.T) {
	runOnce := func() []float64 {
		m, src := testFixture(t)
		mem := sink.NewMemory()
		noise, err := perturbation.NewGaussian(0.1, 7)
		require.NoError(t, err)
		_, err = Ensemble(context.Background(), []string{"2024-01-01"}, 2, 2, m, noise, src, mem)
		require.NoError(t, err)
		return mem.Array("t2m").Elements
	}
	if diff := cmp.Diff(runOnce(), runOnce()); diff != "" {
		t.Errorf("seeded reruns produced different trajectories (-first +second):\n%s", diff)
	}
}

func TestEnsemble_Validation(t *testing.T) {
	m, src := testFixture(t)

	t.Run("empty time list fails before any fetch", func(t *testing.T) {
		_, err := Ensemble(context.Background(), nil, 2, 2, m, perturbation.Zero{}, src, sink.NewMemory())
		assert.ErrorIs(t, err, timeref.ErrEmpty)
		assert.Zero(t, src.fetches.Load())
	})

	t.Run("unparseable time fails before any fetch", func(t *testing.T) {
		_, err := Ensemble(context.Background(), []string{"someday"}, 2, 2, m, perturbation.Zero{}, src, sink.NewMemory())
		assert.ErrorContains(t, err, "cannot parse timestamp")
		assert.Zero(t, src.fetches.Load())
	})

	t.Run("negative steps", func(t *testing.T) {
		_, err := Ensemble(context.Background(), []string{"2024-01-01"}, -1, 2, m, perturbation.Zero{}, src, sink.NewMemory())
		assert.ErrorContains(t, err, "nsteps")
	})

	t.Run("zero members", func(t *testing.T) {
		_, err := Ensemble(context.Background(), []string{"2024-01-01"}, 2, 0, m, perturbation.Zero{}, src, sink.NewMemory())
		assert.ErrorContains(t, err, "ensemble size")
	})

	t.Run("nil perturbation", func(t *testing.T) {
		_, err := Ensemble(context.Background(), []string{"2024-01-01"}, 2, 2, m, nil, src, sink.NewMemory())
		assert.ErrorContains(t, err, "perturbation")
	})

	t.Run("canceled context aborts stepping", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Ensemble(ctx, []string{"2024-01-01"}, 2, 2, m, perturbation.Zero{}, src, sink.NewMemory())
		assert.Error(t, err)
	})
}

func TestDeterministic(t *testing.T) {
	m, src := testFixture(t)
	mem := sink.NewMemory()

	_, err := Deterministic(context.Background(), []string{"2024-01-01", "2024-01-02"}, 3, m, src, mem)
	require.NoError(t, err)

	assert.Equal(t, 4, mem.Writes())
	assert.Equal(t, []float64{0, 6, 12, 18}, mem.Leads())

	coords := mem.Coords()
	// No ensemble axis, but both batch times are carried.
	assert.Equal(t, []string{grid.Time, grid.LeadTime, grid.Lat, grid.Lon}, coords.Dims())
	assert.Len(t, coords.Values(grid.Time), 2)
}

func TestDeterministic_PersistenceKeepsInitialState(t *testing.T) {
	m, src := testFixture(t)
	mem := sink.NewMemory()

	_, err := Deterministic(context.Background(), []string{"2024-01-01"}, 2, m, src, mem)
	require.NoError(t, err)

	// Persistence repeats the initial condition at every lead.
	arr := mem.Array("t2m")
	shape := mem.Coords().Shape()
	li := mem.Coords().Axis(grid.LeadTime)
	require.Equal(t, 1, li) // [time, lead, lat, lon] with a single batch time

	nlead := shape[li]
	inner := 1
	for _, s := range shape[li+1:] {
		inner *= s
	}
	for l := 1; l < nlead; l++ {
		assert.Equal(t, arr.Elements[:inner], arr.Elements[l*inner:(l+1)*inner],
			"lead %d should repeat the initial state", l)
	}
}
