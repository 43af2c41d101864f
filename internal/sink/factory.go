package sink

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// MemoryFactory builds the in-memory backend from an HCL block body.
func MemoryFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Backend, error) {
	var in struct{}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return NewMemory(), nil
}

// NetCDFFactory builds the file backend from an HCL block body.
func NetCDFFactory(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (Backend, error) {
	var in struct {
		Path string `hcl:"path"`
	}
	if diags := gohcl.DecodeBody(body, ectx, &in); diags.HasErrors() {
		return nil, diags
	}
	return NewNetCDF(in.Path)
}
