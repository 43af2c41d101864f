// Package config loads and validates HCL run descriptions: which component
// variants to assemble and the forecast parameters to drive them with.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Component selects one registered variant of a component kind. The block
// label is the variant name; the body is decoded by the variant's factory.
type Component struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

// Run describes one forecast run: the initialization times, the forecast
// length, the ensemble size, and the four components to assemble.
type Run struct {
	Name    string   `hcl:"name,label"`
	Time    []string `hcl:"time"`
	Steps   int      `hcl:"steps"`
	Members int      `hcl:"members,optional"`

	Model        *Component `hcl:"model,block"`
	Perturbation *Component `hcl:"perturbation,block"`
	Source       *Component `hcl:"source,block"`
	Sink         *Component `hcl:"sink,block"`
}

// Ensemble reports whether this run carries an ensemble dimension.
func (r *Run) Ensemble() bool { return r.Members > 0 }

// Model is the root of a parsed run description.
type Model struct {
	Runs []*Run `hcl:"run,block"`
}

// validate applies the structural rules that gohcl cannot express.
func (m *Model) validate() error {
	if len(m.Runs) == 0 {
		return fmt.Errorf("config: no run blocks found")
	}
	seen := make(map[string]bool)
	for _, r := range m.Runs {
		if seen[r.Name] {
			return fmt.Errorf("config: duplicate run name %q", r.Name)
		}
		seen[r.Name] = true
		if len(r.Time) == 0 {
			return fmt.Errorf("config: run %q has an empty time list", r.Name)
		}
		if r.Steps < 0 {
			return fmt.Errorf("config: run %q has negative steps", r.Name)
		}
		if r.Members < 0 {
			return fmt.Errorf("config: run %q has negative members", r.Name)
		}
		if r.Model == nil {
			return fmt.Errorf("config: run %q is missing a model block", r.Name)
		}
		if r.Source == nil {
			return fmt.Errorf("config: run %q is missing a source block", r.Name)
		}
		if r.Sink == nil {
			return fmt.Errorf("config: run %q is missing a sink block", r.Name)
		}
		if r.Ensemble() && r.Perturbation == nil {
			return fmt.Errorf("config: ensemble run %q requires a perturbation block", r.Name)
		}
	}
	return nil
}

// EnvContext builds the evaluation context run descriptions are decoded
// under. It exposes the process environment as the `env` map so block
// attributes can interpolate secrets instead of hardcoding them.
func EnvContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}
