package hcl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/schema"
)

// translateAgent converts the HCL-specific agent schema into the agnostic model.
func (l *Loader) translateAgent(a *schema.Agent) (*config.Agent, error) {
	args, err := extractBodyAttributes(argsBody(a.Arguments))
	if err != nil {
		return nil, fmt.Errorf("agent %s.%s: invalid arguments block: %w", a.AgentType, a.Name, err)
	}
	uses, err := extractBodyAttributes(usesBody(a.Uses))
	if err != nil {
		return nil, fmt.Errorf("agent %s.%s: invalid uses block: %w", a.AgentType, a.Name, err)
	}
	dependsOn, err := translateDependsOn(a.DependsOn)
	if err != nil {
		return nil, fmt.Errorf("agent %s.%s: %w", a.AgentType, a.Name, err)
	}

	return &config.Agent{
		Type:      a.AgentType,
		Name:      a.Name,
		Arguments: args,
		Uses:      uses,
		DependsOn: dependsOn,
	}, nil
}

// translateResource converts the HCL-specific resource schema into the agnostic model.
func (l *Loader) translateResource(r *schema.Resource) (*config.Resource, error) {
	args, err := extractBodyAttributes(argsBody(r.Arguments))
	if err != nil {
		return nil, fmt.Errorf("resource %s.%s: invalid arguments block: %w", r.AssetType, r.Name, err)
	}
	dependsOn, err := translateDependsOn(r.DependsOn)
	if err != nil {
		return nil, fmt.Errorf("resource %s.%s: %w", r.AssetType, r.Name, err)
	}

	return &config.Resource{
		AssetType: r.AssetType,
		Name:      r.Name,
		Arguments: args,
		DependsOn: dependsOn,
	}, nil
}

// translateDependsOn turns a `depends_on = [agent.x.y, resource.a.b]` list of
// traversals into canonical "type.name" address strings. Quoted string
// entries are accepted too.
func translateDependsOn(expr hcl.Expression) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	exprs, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		// An omitted optional attribute decodes to a null literal, which
		// ExprList rejects.
		if v, vDiags := expr.Value(nil); !vDiags.HasErrors() && v.IsNull() {
			return nil, nil
		}
		return nil, fmt.Errorf("depends_on must be a list: %w", diags)
	}

	var out []string
	for _, e := range exprs {
		if traversal, tDiags := hcl.AbsTraversalForExpr(e); !tDiags.HasErrors() {
			addr, err := traversalToAddress(traversal)
			if err != nil {
				return nil, err
			}
			out = append(out, addr)
			continue
		}
		v, vDiags := e.Value(nil)
		if vDiags.HasErrors() {
			return nil, fmt.Errorf("invalid depends_on entry: %w", vDiags)
		}
		out = append(out, v.AsString())
	}
	return out, nil
}

// traversalToAddress renders a depends_on traversal like agent.coincap.btc as
// the bare address "coincap.btc". The leading agent/resource root is kept out
// of the address so the DAG builder can probe both namespaces.
func traversalToAddress(traversal hcl.Traversal) (string, error) {
	var parts []string
	for _, step := range traversal {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			parts = append(parts, s.Name)
		case hcl.TraverseAttr:
			parts = append(parts, s.Name)
		default:
			return "", fmt.Errorf("unsupported depends_on reference syntax")
		}
	}
	if len(parts) == 3 && (parts[0] == "agent" || parts[0] == "resource") {
		parts = parts[1:]
	}
	if len(parts) != 2 {
		return "", fmt.Errorf("depends_on reference must look like agent.<type>.<name> or <type>.<name>")
	}
	return strings.Join(parts, "."), nil
}

func argsBody(a *schema.AgentArgs) hcl.Body {
	if a == nil {
		return nil
	}
	return a.Body
}

func usesBody(u *schema.UsesBlock) hcl.Body {
	if u == nil {
		return nil
	}
	return u.Body
}
