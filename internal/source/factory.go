package source

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// SyntheticFactory builds the analytic source from an HCL block body.
func SyntheticFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Source, error) {
	var in struct {
		Lats      int      `hcl:"lats,optional"`
		Lons      int      `hcl:"lons,optional"`
		Variables []string `hcl:"variables,optional"`
	}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	if in.Lats == 0 {
		in.Lats = 37
	}
	if in.Lons == 0 {
		in.Lons = 72
	}
	return NewSynthetic(in.Lats, in.Lons, in.Variables)
}

// NetCDFFactory opens a local analysis file as a source.
func NetCDFFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Source, error) {
	var in struct {
		Path string `hcl:"path"`
	}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return OpenNetCDF(in.Path)
}

// GridpointFactory builds the HTTP source from an HCL block body. The API
// key is usually interpolated from the environment in the run description.
func GridpointFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Source, error) {
	var in struct {
		BaseURL string  `hcl:"base_url"`
		APIKey  string  `hcl:"api_key,optional"`
		RPS     float64 `hcl:"rps,optional"`
		Burst   int     `hcl:"burst,optional"`
	}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return NewGridpoint(ctx, in.BaseURL, in.APIKey, in.RPS, in.Burst)
}
