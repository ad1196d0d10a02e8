package dag

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/coingraph/internal/ctxlog"
)

// linkNodes performs the second build pass, establishing dependency edges.
func linkNodes(ctx context.Context, graph *Graph) error {
	for _, node := range sortedNodes(graph.Nodes) {
		var dependsOn []string
		var expressions []hcl.Expression

		if node.Type == AgentNode {
			dependsOn = node.AgentConfig.DependsOn
			for _, expr := range node.AgentConfig.Arguments {
				expressions = append(expressions, expr)
			}
			for _, expr := range node.AgentConfig.Uses {
				expressions = append(expressions, expr)
			}
		} else {
			dependsOn = node.ResourceConfig.DependsOn
			for _, expr := range node.ResourceConfig.Arguments {
				expressions = append(expressions, expr)
			}
		}

		if err := linkExplicitDeps(ctx, node, dependsOn, graph); err != nil {
			return err
		}
		for _, expr := range expressions {
			if err := linkImplicitDeps(ctx, node, expr, graph); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkExplicitDeps resolves dependencies from a `depends_on` list. Addresses
// are bare "type.name" strings; both the agent and resource namespaces are
// probed.
func linkExplicitDeps(ctx context.Context, node *Node, dependsOn []string, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, depAddr := range dependsOn {
		agentID := "agent." + depAddr
		resourceID := "resource." + depAddr

		depNode, found := graph.Nodes[agentID]
		if !found {
			if depNode, found = graph.Nodes[resourceID]; !found {
				return fmt.Errorf("node '%s' depends on non-existent identifier '%s'", node.ID, depAddr)
			}
		}

		logger.Debug("Linking explicit dependency.", "from", node.ID, "to", depNode.ID)
		if err := graph.link(depNode, node); err != nil {
			return err
		}
	}
	return nil
}

// linkImplicitDeps scans an expression for variable traversals that reference
// another node's output and creates the corresponding edges.
func linkImplicitDeps(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, traversal := range expr.Variables() {
		if len(traversal) < 3 {
			continue
		}
		rootName := traversal.RootName()
		if rootName != "agent" && rootName != "resource" {
			continue
		}
		typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !typeOk || !nameOk {
			continue
		}
		depID := fmt.Sprintf("%s.%s.%s", rootName, typeAttr.Name, nameAttr.Name)
		depNode, ok := graph.Nodes[depID]
		if !ok {
			return fmt.Errorf("node '%s' references non-existent node '%s'", node.ID, depID)
		}

		logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
		if err := graph.link(depNode, node); err != nil {
			return err
		}
	}
	return nil
}
