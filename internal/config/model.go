package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of a research graph:
// the agent instances to run and the shared resources they use.
type Model struct {
	Agents    []*Agent
	Resources []*Resource
}

// Agent is the format-agnostic representation of an `agent` block. It is a
// runnable instance of a registered agent type.
type Agent struct {
	Type      string
	Name      string
	Arguments map[string]hcl.Expression
	Uses      map[string]hcl.Expression
	DependsOn []string
}

// Resource is the format-agnostic representation of a `resource` block. It is
// a managed, stateful instance of a registered asset type.
type Resource struct {
	AssetType string
	Name      string
	Arguments map[string]hcl.Expression
	DependsOn []string
}

// InputDefinition declares a single input argument of an agent or asset.
type InputDefinition struct {
	Name        string
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition declares a single named value an agent publishes for
// downstream expressions.
type OutputDefinition struct {
	Name        string
	Description string
}
