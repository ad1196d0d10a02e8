package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/dag"
	"github.com/zclconf/go-cty/cty"
)

// runAgentNode decodes the agent's arguments, injects its resource
// dependencies and invokes the registered handler.
func (e *Executor) runAgentNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("agent", node.ID)
	logger.Info("▶️ Starting agent")

	agentDef, ok := e.registry.Agents[node.AgentConfig.Type]
	if !ok {
		return fmt.Errorf("unknown agent type '%s'", node.AgentConfig.Type)
	}

	evalCtx := e.buildEvalContext(ctx, node)

	inputStruct := agentDef.NewInput()
	if inputStruct != nil {
		err := e.converter.DecodeBody(ctx, inputStruct, node.AgentConfig.Arguments, agentDef.Inputs, evalCtx)
		if err != nil {
			return fmt.Errorf("failed to decode arguments for %s: %w", node.ID, err)
		}
	}

	depsStruct, err := e.buildDepsStruct(ctx, node, agentDef.NewDeps)
	if err != nil {
		return err
	}

	handlerFunc := reflect.ValueOf(agentDef.Fn)
	results := handlerFunc.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(depsStruct),
		reflect.ValueOf(inputStruct),
	})

	if errResult := results[1].Interface(); errResult != nil {
		return errResult.(error)
	}

	output := results[0].Interface().(cty.Value)
	if !output.IsNull() {
		node.SetOutput(output)
	}

	logger.Info("✅ Finished agent")
	return nil
}
