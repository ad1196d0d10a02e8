package dag

import (
	"context"
	"fmt"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/registry"
)

// Build assembles the execution graph from the loaded config model. The first
// pass creates nodes, the second pass links dependency edges, and the result
// is verified to be acyclic.
func Build(ctx context.Context, model *config.Model, r *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	graph := newGraph()

	for _, res := range model.Resources {
		if _, ok := r.Assets[res.AssetType]; !ok {
			return nil, fmt.Errorf("resource '%s.%s' uses unknown asset type '%s'", res.AssetType, res.Name, res.AssetType)
		}
		n := newNode(fmt.Sprintf("resource.%s.%s", res.AssetType, res.Name), ResourceNode)
		n.ResourceConfig = res
		if err := graph.addNode(n); err != nil {
			return nil, err
		}
		logger.Debug("Added resource node.", "id", n.ID)
	}

	for _, agent := range model.Agents {
		if _, ok := r.Agents[agent.Type]; !ok {
			return nil, fmt.Errorf("agent '%s.%s' uses unknown agent type '%s'", agent.Type, agent.Name, agent.Type)
		}
		n := newNode(fmt.Sprintf("agent.%s.%s", agent.Type, agent.Name), AgentNode)
		n.AgentConfig = agent
		if err := graph.addNode(n); err != nil {
			return nil, err
		}
		logger.Debug("Added agent node.", "id", n.ID)
	}

	if err := linkNodes(ctx, graph); err != nil {
		return nil, err
	}

	if err := graph.DetectCycles(); err != nil {
		return nil, err
	}

	return graph, nil
}
