package executor

import (
	"context"

	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/dag"
)

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", n.ID)

		if ctx.Err() != nil {
			if n.TrySkip(ctx.Err()) {
				e.wg.Done()
				e.skipDependents(ctx, n)
			}
			continue
		}

		if !n.TryStart() {
			// Skipped while queued; the skipper already released its slot.
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		var err error
		switch n.Type {
		case dag.ResourceNode:
			err = e.runResourceNode(ctx, n)
		case dag.AgentNode:
			err = e.runAgentNode(ctx, n)
		}

		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			n.Finish(dag.Failed, err)
			e.recordFailure(err)
			cancel()
			e.skipDependents(ctx, n)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		n.Finish(dag.Done, nil)

		for _, dependent := range n.Dependents {
			if dependent.DecrementDeps() == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		if n.Type == dag.AgentNode {
			e.releaseResources(ctx, n)
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// releaseResources decrements the descendant count of every resource the
// finished agent depended on and destroys resources nobody needs anymore.
func (e *Executor) releaseResources(ctx context.Context, n *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dep := range n.Deps {
		if dep.Type != dag.ResourceNode {
			continue
		}
		if dep.DecrementDependents() == 0 {
			logger.Debug("Resource no longer needed, destroying.", "resourceID", dep.ID)
			e.destroyResource(ctx, dep)
		}
	}
}
