package dag

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WritePlan renders a human-readable execution plan: every node with its
// dependencies, followed by the waves of nodes that will run concurrently.
// This is the output a user inspects to verify that independent gathering
// agents are actually scheduled in parallel.
func (g *Graph) WritePlan(w io.Writer) error {
	if len(g.Nodes) == 0 {
		_, err := fmt.Fprintln(w, "Execution plan: no nodes.")
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Execution plan: %d node(s)\n\n", len(g.Nodes))

	for _, n := range sortedNodes(g.Nodes) {
		if len(n.Deps) == 0 {
			fmt.Fprintf(&b, "  %s\n", n.ID)
			continue
		}
		deps := make([]string, 0, len(n.Deps))
		for id := range n.Deps {
			deps = append(deps, id)
		}
		sort.Strings(deps)
		fmt.Fprintf(&b, "  %s\n", n.ID)
		for _, dep := range deps {
			fmt.Fprintf(&b, "    <- %s\n", dep)
		}
	}

	b.WriteString("\nConcurrency waves:\n")
	for i, wave := range g.Waves() {
		fmt.Fprintf(&b, "  wave %d: %s\n", i, strings.Join(wave, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDOT exports the graph in Graphviz DOT format. Agent nodes are drawn as
// boxes, resource nodes as ellipses; edges point from dependency to
// dependent, matching execution order.
func (g *Graph) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph coingraph {\n")
	b.WriteString("  rankdir = LR;\n")

	for _, n := range sortedNodes(g.Nodes) {
		shape := "box"
		if n.Type == ResourceNode {
			shape = "ellipse"
		}
		fmt.Fprintf(&b, "  %q [shape=%s];\n", n.ID, shape)
	}

	for _, n := range sortedNodes(g.Nodes) {
		deps := make([]string, 0, len(n.Deps))
		for id := range n.Deps {
			deps = append(deps, id)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			fmt.Fprintf(&b, "  %q -> %q;\n", dep, n.ID)
		}
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}
