package executor

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/dag"
	"github.com/zclconf/go-cty/cty"
)

// buildEvalContext creates the HCL evaluation context for a node. It exposes
// the outputs of every completed agent under
// agent.<type>.<name>.output.<field>, giving downstream expressions a
// consistent global view of the run so far.
func (e *Executor) buildEvalContext(ctx context.Context, node *dag.Node) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building evaluation context.", "node", node.ID)

	// map[agent_type] -> map[instance_name] -> {output = <value>}
	outputsByType := make(map[string]map[string]cty.Value)

	for _, graphNode := range e.graph.Nodes {
		if graphNode.Type != dag.AgentNode || graphNode.State() != dag.Done {
			continue
		}
		output, ok := graphNode.OutputValue()
		if !ok {
			continue
		}

		agentType := graphNode.AgentConfig.Type
		instanceName := graphNode.AgentConfig.Name

		if _, ok := outputsByType[agentType]; !ok {
			outputsByType[agentType] = make(map[string]cty.Value)
		}
		outputsByType[agentType][instanceName] = cty.ObjectVal(map[string]cty.Value{
			"output": output,
		})
	}

	finalOutputs := make(map[string]cty.Value)
	for agentType, instances := range outputsByType {
		finalOutputs[agentType] = cty.ObjectVal(instances)
	}

	vars := map[string]cty.Value{
		"agent": cty.ObjectVal(finalOutputs),
	}
	return &hcl.EvalContext{Variables: vars}
}
