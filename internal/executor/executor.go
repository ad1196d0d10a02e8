// Package executor runs the execution graph on a pool of concurrent workers.
//
// Nodes are dispatched through a ready channel: a node is pushed when its
// remaining-dependency count reaches zero, so every node whose dependencies
// are satisfied runs as soon as a worker is free. A node failure cancels the
// run context and transitively skips the failed node's dependents. Resource
// nodes create shared assets before their dependents run and are destroyed as
// soon as their last dependent finishes.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/dag"
	"github.com/vk/coingraph/internal/hcl"
	"github.com/vk/coingraph/internal/registry"
)

// Executor orchestrates the end-to-end execution of a graph.
type Executor struct {
	graph     *dag.Graph
	workers   int
	registry  *registry.Registry
	converter *hcl.Converter

	wg                sync.WaitGroup
	resourceInstances sync.Map

	mu       sync.Mutex
	failures []error
}

// New creates an Executor for the given graph.
func New(graph *dag.Graph, workers int, r *registry.Registry, converter *hcl.Converter) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		graph:     graph,
		workers:   workers,
		registry:  r,
		converter: converter,
	}
}

// Run executes every node in dependency order and blocks until the run
// reaches a terminal state. It returns the joined errors of all failed and
// skipped nodes, or nil on full success.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if len(e.graph.Nodes) == 0 {
		logger.Warn("No nodes in graph, nothing to execute.")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, n := range e.graph.Nodes {
		n.ResetCounters()
	}

	readyChan := make(chan *dag.Node, len(e.graph.Nodes))
	e.wg.Add(len(e.graph.Nodes))

	seeded := 0
	for _, id := range e.graph.Roots() {
		readyChan <- e.graph.Nodes[id]
		seeded++
	}
	logger.Debug("Seeded ready queue.", "count", seeded, "workers", e.workers)

	for i := 0; i < e.workers; i++ {
		go e.worker(ctx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	// Destroy any resources that survived the run, e.g. because a failure
	// skipped their dependents before the descendant count hit zero.
	e.destroyRemaining(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.failures) > 0 {
		return fmt.Errorf("execution failed: %w", errors.Join(e.failures...))
	}
	return nil
}

// recordFailure appends a node failure for the final run error.
func (e *Executor) recordFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, err)
}

// skipDependents transitively marks all not-yet-started dependents of a
// failed node as Skipped, releasing their slot in the wait group.
func (e *Executor) skipDependents(ctx context.Context, n *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.Dependents {
		cause := fmt.Errorf("skipped: dependency %s failed", n.ID)
		if dependent.TrySkip(cause) {
			logger.Warn("Skipping dependent node.", "node", dependent.ID, "failed_dependency", n.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		}
	}
}
