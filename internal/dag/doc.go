// Package dag builds and owns the dependency graph of a research run.
//
// Building is a two-pass process over the config model: the first pass
// creates one node per agent and resource block, the second pass links
// dependency edges from explicit depends_on lists and from implicit
// references inside argument expressions (agent.<type>.<name>.output.<field>
// and resource.<type>.<name>). The finished graph is checked for cycles
// before anything runs.
//
// The graph also knows how to describe itself: WritePlan prints the nodes,
// their edges and the waves of nodes that can execute concurrently, and
// WriteDOT exports the same structure for Graphviz. Printing the plan is how
// a user verifies that independent gathering agents really are scheduled in
// parallel.
package dag
