// Package print provides a utility agent that prints its input values. It is
// mostly useful for verifying graph wiring: point it at another agent's
// output and run the graph.
package print

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print agent.
type Input struct {
	Value map[string]string `hcl:"input"`
}

// Deps is empty because this agent does not use any resources.
type Deps struct{}

// OnRunPrint is the handler for the 'print' agent.
func OnRunPrint(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	ctxlog.FromContext(ctx).Info("Printing input")

	if input.Value == nil {
		fmt.Println("      (null)")
		return cty.NilVal, nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Value))
	for k := range input.Value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("      %s = %q\n", k, input.Value[k])
	}

	return cty.NilVal, nil
}

// Register registers the agent with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAgent("print", &registry.RegisteredAgent{
		Description: "Prints a map of values for manual verification.",
		NewInput:    func() any { return new(Input) },
		InputType:   reflect.TypeOf(Input{}),
		NewDeps:     func() any { return new(Deps) },
		Inputs: map[string]*config.InputDefinition{
			"input": {Name: "input", Description: "Values to print.", Optional: true},
		},
		Fn: OnRunPrint,
	})
}
