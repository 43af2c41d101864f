package perturbation

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// defaultAmplitude matches the noise level commonly used for initial
// condition perturbations on normalized fields.
const defaultAmplitude = 0.05

type noiseInput struct {
	Amplitude float64 `hcl:"amplitude,optional"`
	Seed      int64   `hcl:"seed,optional"`
}

func (in *noiseInput) amplitude() float64 {
	if in.Amplitude == 0 {
		return defaultAmplitude
	}
	return in.Amplitude
}

// ZeroFactory builds the all-zero method from an HCL block body.
func ZeroFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Method, error) {
	var in struct{}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return Zero{}, nil
}

// GaussianFactory builds the white-noise method from an HCL block body.
func GaussianFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Method, error) {
	var in noiseInput
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return NewGaussian(in.amplitude(), in.Seed)
}

// SphericalFactory builds the latitude-scaled method from an HCL block body.
func SphericalFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Method, error) {
	var in noiseInput
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return NewSpherical(in.amplitude(), in.Seed)
}
