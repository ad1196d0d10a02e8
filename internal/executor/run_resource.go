package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/dag"
)

// runResourceNode creates a stateful shared asset and stores the live
// instance for injection into dependent agents.
func (e *Executor) runResourceNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)
	logger.Info("▶️ Creating resource")

	assetDef, ok := e.registry.Assets[node.ResourceConfig.AssetType]
	if !ok {
		return fmt.Errorf("unknown asset type '%s'", node.ResourceConfig.AssetType)
	}

	inputStruct := assetDef.NewInput()
	if inputStruct != nil {
		evalCtx := e.buildEvalContext(ctx, node)
		err := e.converter.DecodeBody(ctx, inputStruct, node.ResourceConfig.Arguments, assetDef.Inputs, evalCtx)
		if err != nil {
			return fmt.Errorf("failed to decode arguments for %s: %w", node.ID, err)
		}
	}

	handlerFunc := reflect.ValueOf(assetDef.CreateFn)
	results := handlerFunc.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(inputStruct)})
	resourceObj, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return errResult.(error)
	}

	e.resourceInstances.Store(node.ID, resourceObj)
	logger.Info("✅ Resource created")
	return nil
}

// destroyResource invokes the asset's destroy handler exactly once.
func (e *Executor) destroyResource(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)
	node.OnceDestroyed(func() {
		instance, found := e.resourceInstances.Load(node.ID)
		if !found {
			return
		}
		logger.Info("🔥 Destroying resource")

		assetDef, ok := e.registry.Assets[node.ResourceConfig.AssetType]
		if !ok || assetDef.DestroyFn == nil {
			return
		}
		results := reflect.ValueOf(assetDef.DestroyFn).Call([]reflect.Value{reflect.ValueOf(instance)})
		if len(results) > 0 {
			if errResult := results[0].Interface(); errResult != nil {
				logger.Error("Resource destroy handler failed.", "error", errResult.(error))
			}
		}
		e.resourceInstances.Delete(node.ID)
	})
}

// destroyRemaining sweeps resources still alive at the end of a run.
func (e *Executor) destroyRemaining(ctx context.Context) {
	for _, n := range e.graph.Nodes {
		if n.Type == dag.ResourceNode {
			e.destroyResource(ctx, n)
		}
	}
}
