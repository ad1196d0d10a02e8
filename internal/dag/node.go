package dag

import (
	"sync"

	"github.com/vk/coingraph/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// NodeType distinguishes runnable agents from stateful resources.
type NodeType int

const (
	// AgentNode is a runnable agent instance.
	AgentNode NodeType = iota
	// ResourceNode is a managed, shared asset instance.
	ResourceNode
)

// State is the lifecycle state of a node during a run.
type State int

const (
	// Pending means the node has not started yet.
	Pending State = iota
	// Running means a worker is currently executing the node.
	Running
	// Done means the node finished successfully.
	Done
	// Failed means the node's handler returned an error.
	Failed
	// Skipped means an upstream failure prevented the node from running.
	Skipped
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Node is a single vertex in the execution graph: either an agent instance
// or a resource instance, plus its dependency links and runtime state.
type Node struct {
	ID   string
	Type NodeType

	AgentConfig    *config.Agent
	ResourceConfig *config.Resource

	Deps       map[string]*Node
	Dependents map[string]*Node

	// Output holds the agent's published value once the node is Done.
	Output    cty.Value
	HasOutput bool
	Err       error

	mu            sync.Mutex
	state         State
	remainingDeps int
	// remainingDependents counts unfinished dependents of a resource node so
	// the executor can destroy the resource as soon as it is no longer needed.
	remainingDependents int
	destroyOnce         sync.Once
}

// newNode initializes a node with empty link maps.
func newNode(id string, nodeType NodeType) *Node {
	return &Node{
		ID:         id,
		Type:       nodeType,
		Deps:       make(map[string]*Node),
		Dependents: make(map[string]*Node),
	}
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// TryStart transitions the node from Pending to Running. It reports false if
// the node is no longer Pending, which happens when an upstream failure
// skipped the node while it sat in the ready queue.
func (n *Node) TryStart() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Pending {
		return false
	}
	n.state = Running
	return true
}

// TrySkip transitions the node from Pending to Skipped, recording the cause.
// It reports whether the transition happened.
func (n *Node) TrySkip(cause error) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Pending {
		return false
	}
	n.state = Skipped
	n.Err = cause
	return true
}

// Finish moves a Running node into a terminal state.
func (n *Node) Finish(state State, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = state
	if err != nil {
		n.Err = err
	}
}

// SetOutput records the node's published value.
func (n *Node) SetOutput(val cty.Value) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Output = val
	n.HasOutput = true
}

// OutputValue returns the published value and whether one exists.
func (n *Node) OutputValue() (cty.Value, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Output, n.HasOutput
}

// ResetCounters primes the scheduling counters before a run.
func (n *Node) ResetCounters() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.remainingDeps = len(n.Deps)
	n.remainingDependents = len(n.Dependents)
}

// DecrementDeps marks one dependency as satisfied and returns the number of
// dependencies still outstanding.
func (n *Node) DecrementDeps() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.remainingDeps--
	return n.remainingDeps
}

// DecrementDependents marks one dependent as finished and returns the number
// of dependents still outstanding. Used for resource cleanup.
func (n *Node) DecrementDependents() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.remainingDependents--
	return n.remainingDependents
}

// OnceDestroyed runs fn at most once over the node's lifetime. The executor
// uses it so a resource's destroy handler cannot fire twice.
func (n *Node) OnceDestroyed(fn func()) {
	n.destroyOnce.Do(fn)
}
