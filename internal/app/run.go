package app

import (
	"context"
	"fmt"

	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/dag"
	"github.com/vk/coingraph/internal/executor"
)

// Run builds the execution graph, prints it for verification and, unless the
// app is in print-only mode, executes it.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer()
		defer a.stopHealthcheckServer(ctx)
	}

	a.logger.Debug("Building dependency graph from config model...")
	graph, err := dag.Build(ctx, a.model, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	// The plan is always printed so the graph can be verified by inspection
	// before (or instead of) running it.
	if a.config.DotOutput {
		if err := graph.WriteDOT(a.outW); err != nil {
			return fmt.Errorf("failed to write DOT graph: %w", err)
		}
	} else {
		if err := graph.WritePlan(a.outW); err != nil {
			return fmt.Errorf("failed to write execution plan: %w", err)
		}
	}

	if a.config.PrintOnly {
		a.logger.Info("Print-only mode, skipping execution.")
		return nil
	}

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No nodes found in graph, execution not required.")
		return nil
	}

	a.logger.Info("🚀 Starting concurrent execution...", "workers", a.config.WorkerCount)
	exec := executor.New(graph, a.config.WorkerCount, a.registry, a.converter)
	if err := exec.Run(ctx); err != nil {
		return err
	}
	a.logger.Info("🏁 Execution finished.")

	return nil
}
