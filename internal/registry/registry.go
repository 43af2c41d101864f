// Package registry holds the component factories a run description can
// reference: prognostic models, perturbation methods, data sources and IO
// backends, each keyed by variant name.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/gridcastgo/internal/model"
	"github.com/vk/gridcastgo/internal/perturbation"
	"github.com/vk/gridcastgo/internal/sink"
	"github.com/vk/gridcastgo/internal/source"
)

// Factories build a component from the HCL body of its block, evaluated
// under the app's eval context.
type (
	ModelFactory        func(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (model.Prognostic, error)
	PerturbationFactory func(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (perturbation.Method, error)
	SourceFactory       func(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (source.Source, error)
	SinkFactory         func(ctx context.Context, body hcl.Body, ectx *hcl.EvalContext) (sink.Backend, error)
)

// Registry holds the registered factories for a single application
// instance.
type Registry struct {
	models        map[string]ModelFactory
	perturbations map[string]PerturbationFactory
	sources       map[string]SourceFactory
	sinks         map[string]SinkFactory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		models:        make(map[string]ModelFactory),
		perturbations: make(map[string]PerturbationFactory),
		sources:       make(map[string]SourceFactory),
		sinks:         make(map[string]SinkFactory),
	}
}

// RegisterModel adds a prognostic-model variant. Registering the same name
// twice is a programmer error.
func (r *Registry) RegisterModel(name string, f ModelFactory) {
	if _, exists := r.models[name]; exists {
		panic(fmt.Sprintf("model variant %q already registered", name))
	}
	r.models[name] = f
}

// RegisterPerturbation adds a perturbation-method variant.
func (r *Registry) RegisterPerturbation(name string, f PerturbationFactory) {
	if _, exists := r.perturbations[name]; exists {
		panic(fmt.Sprintf("perturbation variant %q already registered", name))
	}
	r.perturbations[name] = f
}

// RegisterSource adds a data-source variant.
func (r *Registry) RegisterSource(name string, f SourceFactory) {
	if _, exists := r.sources[name]; exists {
		panic(fmt.Sprintf("source variant %q already registered", name))
	}
	r.sources[name] = f
}

// RegisterSink adds an IO-backend variant.
func (r *Registry) RegisterSink(name string, f SinkFactory) {
	if _, exists := r.sinks[name]; exists {
		panic(fmt.Sprintf("sink variant %q already registered", name))
	}
	r.sinks[name] = f
}

// NewModel constructs the named model variant from its block body.
func (r *Registry) NewModel(ctx context.Context, name string, body hcl.Body, ectx *hcl.EvalContext) (model.Prognostic, error) {
	f, ok := r.models[name]
	if !ok {
		return nil, unknownVariant("model", name, keys(r.models))
	}
	return f(ctx, body, ectx)
}

// NewPerturbation constructs the named perturbation variant.
func (r *Registry) NewPerturbation(ctx context.Context, name string, body hcl.Body, ectx *hcl.EvalContext) (perturbation.Method, error) {
	f, ok := r.perturbations[name]
	if !ok {
		return nil, unknownVariant("perturbation", name, keys(r.perturbations))
	}
	return f(ctx, body, ectx)
}

// NewSource constructs the named source variant.
func (r *Registry) NewSource(ctx context.Context, name string, body hcl.Body, ectx *hcl.EvalContext) (source.Source, error) {
	f, ok := r.sources[name]
	if !ok {
		return nil, unknownVariant("source", name, keys(r.sources))
	}
	return f(ctx, body, ectx)
}

// NewSink constructs the named sink variant.
func (r *Registry) NewSink(ctx context.Context, name string, body hcl.Body, ectx *hcl.EvalContext) (sink.Backend, error) {
	f, ok := r.sinks[name]
	if !ok {
		return nil, unknownVariant("sink", name, keys(r.sinks))
	}
	return f(ctx, body, ectx)
}

// HasModel reports whether a model variant is registered.
func (r *Registry) HasModel(name string) bool { _, ok := r.models[name]; return ok }

// HasPerturbation reports whether a perturbation variant is registered.
func (r *Registry) HasPerturbation(name string) bool { _, ok := r.perturbations[name]; return ok }

// HasSource reports whether a source variant is registered.
func (r *Registry) HasSource(name string) bool { _, ok := r.sources[name]; return ok }

// HasSink reports whether a sink variant is registered.
func (r *Registry) HasSink(name string) bool { _, ok := r.sinks[name]; return ok }

func unknownVariant(kind, name string, known []string) error {
	return fmt.Errorf("unknown %s variant %q, registered: %v", kind, name, known)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
