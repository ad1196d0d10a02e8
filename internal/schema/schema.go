package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Graph File Structures ---

// AgentArgs represents the content of the 'arguments' block within an agent.
type AgentArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// UsesBlock represents the content of the 'uses' block within an agent.
type UsesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Agent represents an `agent` block from a user's graph file. It is a
// runnable instance of a registered agent type.
type Agent struct {
	AgentType string         `hcl:"agent_type,label"`
	Name      string         `hcl:"instance_name,label"`
	Arguments *AgentArgs     `hcl:"arguments,block"`
	Uses      *UsesBlock     `hcl:"uses,block"`
	DependsOn hcl.Expression `hcl:"depends_on,optional"`
}

// Resource represents a `resource` block from a user's graph file. It is a
// managed, stateful instance of a registered asset type.
type Resource struct {
	AssetType string         `hcl:"asset_type,label"`
	Name      string         `hcl:"instance_name,label"`
	Arguments *AgentArgs     `hcl:"arguments,block"`
	DependsOn hcl.Expression `hcl:"depends_on,optional"`
}

// GraphConfig represents the top-level structure of a user's graph file,
// containing all declared agents and resources.
type GraphConfig struct {
	Agents    []*Agent    `hcl:"agent,block"`
	Resources []*Resource `hcl:"resource,block"`
	Body      hcl.Body    `hcl:",remain"`
}
