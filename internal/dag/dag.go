package dag

import (
	"fmt"
	"sort"
)

// Graph is the directed acyclic graph of agent and resource nodes for one
// research run. It is assembled by Build and is immutable afterwards; nodes
// carry their own mutable runtime state.
type Graph struct {
	Nodes map[string]*Node
}

// newGraph returns an initialized, empty Graph.
func newGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// addNode inserts a node, rejecting duplicate IDs.
func (g *Graph) addNode(n *Node) error {
	if _, exists := g.Nodes[n.ID]; exists {
		return fmt.Errorf("duplicate node ID %q", n.ID)
	}
	g.Nodes[n.ID] = n
	return nil
}

// link creates a directed edge meaning "to depends on from". Self-references
// are rejected; linking the same pair twice is a no-op.
func (g *Graph) link(from, to *Node) error {
	if from.ID == to.ID {
		return fmt.Errorf("self-referential dependency not allowed: %s", from.ID)
	}
	if _, exists := to.Deps[from.ID]; exists {
		return nil
	}
	to.Deps[from.ID] = from
	from.Dependents[to.ID] = to
	return nil
}

// Roots returns the IDs of all nodes with no dependencies, sorted.
func (g *Graph) Roots() []string {
	var roots []string
	for id, n := range g.Nodes {
		if len(n.Deps) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// DetectCycles checks the graph for cycles using a three-color depth-first
// search. It returns a non-nil error naming a node involved in the first
// cycle found.
func (g *Graph) DetectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range sortedNodes(n.Dependents) {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range sortedNodes(g.Nodes) {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Waves groups node IDs into topological levels: every node in wave i only
// depends on nodes in waves < i, so all nodes within one wave may run
// concurrently. The graph must be acyclic.
func (g *Graph) Waves() [][]string {
	depth := make(map[string]int, len(g.Nodes))

	var depthOf func(n *Node) int
	depthOf = func(n *Node) int {
		if d, ok := depth[n.ID]; ok {
			return d
		}
		max := 0
		for _, dep := range n.Deps {
			if d := depthOf(dep) + 1; d > max {
				max = d
			}
		}
		depth[n.ID] = max
		return max
	}

	maxDepth := -1
	for _, n := range g.Nodes {
		if d := depthOf(n); d > maxDepth {
			maxDepth = d
		}
	}
	if maxDepth < 0 {
		return nil
	}

	waves := make([][]string, maxDepth+1)
	for id, d := range depth {
		waves[d] = append(waves[d], id)
	}
	for _, wave := range waves {
		sort.Strings(wave)
	}
	return waves
}

// sortedNodes returns map values ordered by ID for deterministic traversal.
func sortedNodes(m map[string]*Node) []*Node {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, m[id])
	}
	return nodes
}
