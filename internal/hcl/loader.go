package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/fsutil"
	"github.com/vk/coingraph/internal/schema"
)

// Loader parses HCL graph files and translates them into the config model.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads every .hcl file under the given paths, decodes the agent and
// resource blocks and merges them into a single model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}

	for _, path := range paths {
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to discover graph files under %q: %w", path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no .hcl graph files found under %q", path)
		}

		for _, file := range files {
			logger.Debug("Parsing graph file.", "path", file)
			parsed, diags := l.parser.ParseHCLFile(file)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to parse %q: %w", file, diags)
			}

			var graphCfg schema.GraphConfig
			if diags := gohcl.DecodeBody(parsed.Body, nil, &graphCfg); diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode %q: %w", file, diags)
			}

			for _, a := range graphCfg.Agents {
				agent, err := l.translateAgent(a)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", file, err)
				}
				model.Agents = append(model.Agents, agent)
			}
			for _, res := range graphCfg.Resources {
				resource, err := l.translateResource(res)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", file, err)
				}
				model.Resources = append(model.Resources, resource)
			}
		}
	}

	logger.Debug("Graph files loaded.", "agents", len(model.Agents), "resources", len(model.Resources))
	return model, nil
}

// ParseBytes decodes an in-memory HCL document. It exists for tests and for
// callers that already hold the file contents.
func (l *Loader) ParseBytes(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	parsed, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %q: %w", filename, diags)
	}

	var graphCfg schema.GraphConfig
	if diags := gohcl.DecodeBody(parsed.Body, nil, &graphCfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %q: %w", filename, diags)
	}

	model := &config.Model{}
	for _, a := range graphCfg.Agents {
		agent, err := l.translateAgent(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		model.Agents = append(model.Agents, agent)
	}
	for _, res := range graphCfg.Resources {
		resource, err := l.translateResource(res)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		model.Resources = append(model.Resources, resource)
	}
	return model, nil
}

// extractBodyAttributes flattens an attribute-only HCL body into a map of
// named expressions. A nil body yields an empty map.
func extractBodyAttributes(body hcl.Body) (map[string]hcl.Expression, error) {
	out := make(map[string]hcl.Expression)
	if body == nil {
		return out, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	for name, attr := range attrs {
		out[name] = attr.Expr
	}
	return out, nil
}
