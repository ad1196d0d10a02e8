// Package report provides the terminal agent of a research graph: it renders
// a Markdown report from a title and named sections and writes it to stdout
// or a file.
package report

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the report agent.
type Input struct {
	Title    string            `hcl:"title"`
	Sections map[string]string `hcl:"sections"`
	Path     string            `hcl:"path"`
}

// Deps is empty because this agent only writes output.
type Deps struct{}

// OnRunReport is the handler for the 'report' agent. When path is empty the
// report goes to stdout.
func OnRunReport(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	log := ctxlog.FromContext(ctx)

	if strings.TrimSpace(input.Title) == "" {
		return cty.NilVal, fmt.Errorf("report requires a non-empty title")
	}
	if len(input.Sections) == 0 {
		return cty.NilVal, fmt.Errorf("report requires at least one section")
	}

	rendered := Render(input.Title, input.Sections, time.Now().UTC())

	if input.Path == "" {
		fmt.Print(rendered)
	} else {
		if err := os.WriteFile(input.Path, []byte(rendered), 0o644); err != nil {
			return cty.NilVal, fmt.Errorf("failed to write report: %w", err)
		}
		log.Info("Report written.", "path", input.Path)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"path":  cty.StringVal(input.Path),
		"chars": cty.NumberIntVal(int64(len(rendered))),
	}), nil
}

// Render produces the Markdown document. Sections render in alphabetical
// order so the output is stable across runs.
func Render(title string, sections map[string]string, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_Generated %s_\n\n", generatedAt.Format("2006-01-02 15:04 MST"))

	keys := make([]string, 0, len(sections))
	for k := range sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", k, strings.TrimSpace(sections[k]))
	}
	return b.String()
}

// Register registers the agent with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAgent("report", &registry.RegisteredAgent{
		Description: "Renders a Markdown report from named sections.",
		NewInput:    func() any { return new(Input) },
		InputType:   reflect.TypeOf(Input{}),
		NewDeps:     func() any { return new(Deps) },
		Inputs: map[string]*config.InputDefinition{
			"title":    {Name: "title", Description: "Report title."},
			"sections": {Name: "sections", Description: "Section name to Markdown body."},
			"path":     {Name: "path", Description: "Output file; stdout when empty.", Optional: true},
		},
		Outputs: map[string]*config.OutputDefinition{
			"path":  {Name: "path", Description: "Where the report was written."},
			"chars": {Name: "chars", Description: "Rendered document length."},
		},
		Fn: OnRunReport,
	})
}
