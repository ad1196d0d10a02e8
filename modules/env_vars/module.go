// Package env_vars provides an agent that exposes the process environment to
// downstream expressions, e.g. for feeding API-key-dependent agents.
package env_vars

import (
	"context"
	"os"
	"reflect"
	"strings"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input is empty because this agent takes no arguments.
type Input struct{}

// Deps is empty because this agent does not use any resources.
type Deps struct{}

// OnRunEnvVars is the handler for the 'env_vars' agent. Its output exposes
// every environment variable under the 'all' attribute.
func OnRunEnvVars(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	envMap := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = cty.StringVal(pair[1])
		}
	}

	all := cty.MapValEmpty(cty.String)
	if len(envMap) > 0 {
		all = cty.MapVal(envMap)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"all": all,
	}), nil
}

// Register registers the agent with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAgent("env_vars", &registry.RegisteredAgent{
		Description: "Exposes the process environment as an output map.",
		NewInput:    func() any { return new(Input) },
		InputType:   reflect.TypeOf(Input{}),
		NewDeps:     func() any { return new(Deps) },
		Outputs: map[string]*config.OutputDefinition{
			"all": {Name: "all", Description: "All environment variables."},
		},
		Fn: OnRunEnvVars,
	})
}
