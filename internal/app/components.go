package app

import (
	"github.com/vk/gridcastgo/internal/model"
	"github.com/vk/gridcastgo/internal/perturbation"
	"github.com/vk/gridcastgo/internal/registry"
	"github.com/vk/gridcastgo/internal/sink"
	"github.com/vk/gridcastgo/internal/source"
)

// registerBuiltins wires every built-in component variant into a fresh
// registry. Variant names are the labels run descriptions use.
func registerBuiltins(r *registry.Registry) {
	r.RegisterModel("persistence", model.PersistenceFactory)
	r.RegisterModel("advection", model.AdvectionFactory)
	r.RegisterModel("diffusion", model.DiffusionFactory)

	r.RegisterPerturbation("zero", perturbation.ZeroFactory)
	r.RegisterPerturbation("gaussian", perturbation.GaussianFactory)
	r.RegisterPerturbation("spherical", perturbation.SphericalFactory)

	r.RegisterSource("synthetic", source.SyntheticFactory)
	r.RegisterSource("netcdf", source.NetCDFFactory)
	r.RegisterSource("gridpoint", source.GridpointFactory)

	r.RegisterSink("memory", sink.MemoryFactory)
	r.RegisterSink("netcdf", sink.NetCDFFactory)
}
