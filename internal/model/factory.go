package model

import (
	"context"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// defaultStep is the native output step used when a model block does not
// set step_hours.
const defaultStep = 6 * time.Hour

func stepFromHours(h float64) time.Duration {
	if h == 0 {
		return defaultStep
	}
	return time.Duration(h * float64(time.Hour))
}

// PersistenceFactory builds the persistence model from an HCL block body.
func PersistenceFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Prognostic, error) {
	var in struct {
		Variables []string `hcl:"variables"`
		StepHours float64  `hcl:"step_hours,optional"`
	}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return NewPersistence(in.Variables, stepFromHours(in.StepHours))
}

// AdvectionFactory builds the zonal advection model from an HCL block body.
func AdvectionFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Prognostic, error) {
	var in struct {
		Variables []string `hcl:"variables"`
		StepHours float64  `hcl:"step_hours,optional"`
		Cells     int      `hcl:"cells,optional"`
	}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	if in.Cells == 0 {
		in.Cells = 1
	}
	return NewAdvection(in.Variables, stepFromHours(in.StepHours), in.Cells)
}

// DiffusionFactory builds the diffusion model from an HCL block body.
func DiffusionFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Prognostic, error) {
	var in struct {
		Variables []string `hcl:"variables"`
		StepHours float64  `hcl:"step_hours,optional"`
		Alpha     float64  `hcl:"alpha,optional"`
	}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	if in.Alpha == 0 {
		in.Alpha = 0.2
	}
	return NewDiffusion(in.Variables, stepFromHours(in.StepHours), in.Alpha)
}
