package testutil

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// ExecutionRecord holds the start and end times of a single agent execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two executions were in flight at the same time.
func (r *ExecutionRecord) Overlaps(other *ExecutionRecord) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// SleeperModule registers a "sleeper" agent that sleeps for a fixed duration
// and records when each instance ran. Concurrency tests use the records to
// prove that independent nodes overlapped.
type SleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
}

// NewSleeperModule creates a sleeper module for concurrency tests.
func NewSleeperModule(sleep time.Duration) *SleeperModule {
	return &SleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

type sleeperInput struct {
	ID string `hcl:"id"`
}

type emptyDeps struct{}

// Register registers the "sleeper" agent type.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.RegisterAgent("sleeper", &registry.RegisteredAgent{
		Description: "Sleeps and records its execution window.",
		NewInput:    func() any { return new(sleeperInput) },
		InputType:   reflect.TypeOf(sleeperInput{}),
		NewDeps:     func() any { return new(emptyDeps) },
		Inputs: map[string]*config.InputDefinition{
			"id": {Name: "id", Description: "Identifier to record under."},
		},
		Fn: func(ctx context.Context, deps *emptyDeps, input *sleeperInput) (cty.Value, error) {
			start := time.Now()
			time.Sleep(m.sleepDuration)
			end := time.Now()

			m.mu.Lock()
			m.ExecutionTimes[input.ID] = &ExecutionRecord{Start: start, End: end}
			m.mu.Unlock()

			return cty.ObjectVal(map[string]cty.Value{
				"id": cty.StringVal(input.ID),
			}), nil
		},
	})
}

// Record returns the execution record for an ID, or nil if it never ran.
func (m *SleeperModule) Record(id string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecutionTimes[id]
}

// NoOpModule registers a "noop" agent that takes no inputs and does nothing.
// It exists for tests that need valid HCL but no behavior.
type NoOpModule struct{}

// Register registers the "noop" agent type.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterAgent("noop", &registry.RegisteredAgent{
		Description: "Does nothing.",
		NewInput:    func() any { return new(struct{}) },
		InputType:   reflect.TypeOf(struct{}{}),
		NewDeps:     func() any { return new(emptyDeps) },
		Fn: func(ctx context.Context, deps *emptyDeps, input *struct{}) (cty.Value, error) {
			return cty.NilVal, nil
		},
	})
}

// SimpleModule is a helper for registering a single ad-hoc agent or asset
// from inside a test.
type SimpleModule struct {
	AgentName string
	Agent     *registry.RegisteredAgent

	AssetName string
	Asset     *registry.RegisteredAsset
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.AgentName != "" && m.Agent != nil {
		r.RegisterAgent(m.AgentName, m.Agent)
	}
	if m.AssetName != "" && m.Asset != nil {
		r.RegisterAsset(m.AssetName, m.Asset)
	}
}
