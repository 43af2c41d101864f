package app_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridcastgo/internal/grid"
	"github.com/vk/gridcastgo/internal/sink"
	"github.com/vk/gridcastgo/internal/testutil"
)

func TestApp_EnsembleRunEndToEnd(t *testing.T) {
	cast := `
run "ens" {
  time    = ["2024-01-01"]
  steps   = 3
  members = 4

  model "advection" {
    variables  = ["t2m", "u10"]
    step_hours = 6
  }

  perturbation "gaussian" {
    amplitude = 0.1
    seed      = 42
  }

  source "synthetic" {
    lats = 9
    lons = 16
  }

  sink "memory" {}
}
`
	result := testutil.RunCast(t, map[string]string{"ens.hcl": cast})
	require.NoError(t, result.Err, result.LogOutput)

	backend := result.App.Backend("ens")
	require.NotNil(t, backend)
	mem, ok := backend.(*sink.Memory)
	require.True(t, ok)

	assert.Equal(t, 4, mem.Writes())
	assert.Equal(t, []float64{0, 6, 12, 18}, mem.Leads())
	assert.Equal(t, []string{"t2m", "u10"}, mem.Variables())

	coords := mem.Coords()
	assert.Equal(t, []float64{0, 1, 2, 3}, coords.Values(grid.Ensemble))
	assert.Len(t, coords.Values(grid.Lat), 9)
	assert.Len(t, coords.Values(grid.Lon), 16)

	assert.Equal(t, "ens", mem.Attr("run_name"))
	assert.Equal(t, "advection", mem.Attr("model"))
	assert.Equal(t, "synthetic", mem.Attr("source"))
	assert.NotEmpty(t, mem.Attr("run_id"))

	assert.Contains(t, result.LogOutput, "Running ensemble workflow.")
	assert.Contains(t, result.LogOutput, "Inference complete.")
}

func TestApp_DeterministicRunEndToEnd(t *testing.T) {
	cast := `
run "det" {
  time  = ["2024-01-01T00:00:00Z"]
  steps = 2

  model "persistence" {
    variables = ["t2m"]
  }

  source "synthetic" {}

  sink "memory" {}
}
`
	result := testutil.RunCast(t, map[string]string{"det.hcl": cast})
	require.NoError(t, result.Err, result.LogOutput)

	mem := result.App.Backend("det").(*sink.Memory)
	assert.Equal(t, 3, mem.Writes())
	assert.False(t, mem.Coords().Has(grid.Ensemble))
	assert.Contains(t, result.LogOutput, "Running deterministic workflow.")
}

func TestApp_NetCDFSinkEndToEnd(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "forecast.nc")
	cast := fmt.Sprintf(`
run "file" {
  time    = ["2024-01-01"]
  steps   = 1
  members = 2

  model "persistence" {
    variables = ["t2m"]
  }

  perturbation "zero" {}

  source "synthetic" {
    lats = 5
    lons = 8
  }

  sink "netcdf" {
    path = %q
  }
}
`, outPath)
	result := testutil.RunCast(t, map[string]string{"file.hcl": cast})
	require.NoError(t, result.Err, result.LogOutput)

	nc, err := netcdf.Open(outPath)
	require.NoError(t, err)
	defer nc.Close()

	vg, err := nc.GetVarGetter("t2m")
	require.NoError(t, err)
	assert.Equal(t, []string{"ensemble", "time", "lead_time", "lat", "lon"}, vg.Dimensions())

	attrs := nc.Attributes()
	v, ok := attrs.Get("run_name")
	require.True(t, ok)
	assert.Equal(t, "file", v)
}

func TestApp_MultipleRunsInFileOrder(t *testing.T) {
	cast := `
run "first" {
  time  = ["2024-01-01"]
  steps = 0

  model "persistence" {
    variables = ["t2m"]
  }

  source "synthetic" {}

  sink "memory" {}
}

run "second" {
  time  = ["2024-01-01"]
  steps = 1

  model "persistence" {
    variables = ["t2m"]
  }

  source "synthetic" {}

  sink "memory" {}
}
`
	result := testutil.RunCast(t, map[string]string{"runs.hcl": cast})
	require.NoError(t, result.Err, result.LogOutput)

	assert.Equal(t, 1, result.App.Backend("first").(*sink.Memory).Writes())
	assert.Equal(t, 2, result.App.Backend("second").(*sink.Memory).Writes())
}

func TestApp_PerturbationIgnoredForDeterministicRun(t *testing.T) {
	cast := `
run "det" {
  time  = ["2024-01-01"]
  steps = 0

  model "persistence" {
    variables = ["t2m"]
  }

  perturbation "gaussian" {}

  source "synthetic" {}

  sink "memory" {}
}
`
	result := testutil.RunCast(t, map[string]string{"det.hcl": cast})
	require.NoError(t, result.Err, result.LogOutput)
	assert.Contains(t, result.LogOutput, "Perturbation block ignored")
}

func TestApp_StartupFailures(t *testing.T) {
	testCases := []struct {
		name    string
		cast    string
		wantLog string
	}{
		{
			name: "unknown model variant",
			cast: `
run "bad" {
  time  = ["2024-01-01"]
  steps = 1

  model "graphcast" {
    variables = ["t2m"]
  }

  source "synthetic" {}

  sink "memory" {}
}
`,
			wantLog: `unknown model variant "graphcast"`,
		},
		{
			name: "ensemble without perturbation",
			cast: `
run "bad" {
  time    = ["2024-01-01"]
  steps   = 1
  members = 2

  model "persistence" {
    variables = ["t2m"]
  }

  source "synthetic" {}

  sink "memory" {}
}
`,
			wantLog: "requires a perturbation block",
		},
		{
			name:    "empty description",
			cast:    "\n",
			wantLog: "no run blocks",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := testutil.RunCast(t, map[string]string{"bad.hcl": tc.cast})
			require.Error(t, result.Err)
			assert.ErrorContains(t, result.Err, "application startup panicked")
			assert.ErrorContains(t, result.Err, tc.wantLog)
		})
	}
}

func TestApp_RunFailureNamesTheRun(t *testing.T) {
	cast := `
run "doomed" {
  time  = ["2024-01-01"]
  steps = 1

  model "persistence" {
    variables = ["msl"]
  }

  source "synthetic" {
    variables = ["t2m"]
  }

  sink "memory" {}
}
`
	result := testutil.RunCast(t, map[string]string{"doomed.hcl": cast})
	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, `run "doomed" failed`)
	assert.ErrorContains(t, result.Err, "not available")
}
