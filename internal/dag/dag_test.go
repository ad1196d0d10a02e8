package dag_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/dag"
	"github.com/vk/coingraph/internal/hcl"
	"github.com/vk/coingraph/internal/registry"
	"github.com/vk/coingraph/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

// buildFromHCL parses the source and assembles the graph against a registry
// containing the "noop" agent and a "store" asset.
func buildFromHCL(t *testing.T, source string) (*dag.Graph, error) {
	t.Helper()

	model, err := hcl.NewLoader().ParseBytes(context.Background(), "graph.hcl", []byte(source))
	require.NoError(t, err)

	r := registry.New()
	(&testutil.NoOpModule{}).Register(r)
	(&testutil.SimpleModule{
		AssetName: "store",
		Asset: &registry.RegisteredAsset{
			NewInput:  func() any { return new(struct{}) },
			InputType: reflect.TypeOf(struct{}{}),
			CreateFn:  func(ctx context.Context, input *struct{}) (string, error) { return "store", nil },
			DestroyFn: func(s string) error { return nil },
		},
	}).Register(r)

	return dag.Build(context.Background(), model, r)
}

func TestBuild_NodeIDs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	source := `
agent "noop" "a" {}
resource "store" "main" {}
`

	// --- Act ---
	graph, err := buildFromHCL(t, source)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 2)
	assert.Contains(t, graph.Nodes, "agent.noop.a")
	assert.Contains(t, graph.Nodes, "resource.store.main")
	assert.Equal(t, dag.AgentNode, graph.Nodes["agent.noop.a"].Type)
	assert.Equal(t, dag.ResourceNode, graph.Nodes["resource.store.main"].Type)
}

func TestBuild_UnknownTypes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			name:    "unknown agent type",
			source:  `agent "does_not_exist" "a" {}`,
			wantMsg: "unknown agent type 'does_not_exist'",
		},
		{
			name:    "unknown asset type",
			source:  `resource "does_not_exist" "a" {}`,
			wantMsg: "unknown asset type 'does_not_exist'",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := buildFromHCL(t, tc.source)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestBuild_DuplicateNodeID(t *testing.T) {
	t.Parallel()

	source := `
agent "noop" "a" {}
agent "noop" "a" {}
`

	_, err := buildFromHCL(t, source)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate node ID "agent.noop.a"`)
}

func TestBuild_ExplicitDependency(t *testing.T) {
	t.Parallel()

	source := `
agent "noop" "a" {}

agent "noop" "b" {
  depends_on = [agent.noop.a]
}
`

	graph, err := buildFromHCL(t, source)

	require.NoError(t, err)
	b := graph.Nodes["agent.noop.b"]
	require.Contains(t, b.Deps, "agent.noop.a")
	assert.Contains(t, graph.Nodes["agent.noop.a"].Dependents, "agent.noop.b")
}

func TestBuild_ExplicitDependencyOnResource(t *testing.T) {
	t.Parallel()

	// A bare address probes the agent namespace first, then resources.
	source := `
resource "store" "main" {}

agent "noop" "a" {
  depends_on = ["store.main"]
}
`

	graph, err := buildFromHCL(t, source)

	require.NoError(t, err)
	assert.Contains(t, graph.Nodes["agent.noop.a"].Deps, "resource.store.main")
}

func TestBuild_ExplicitDependencyMissing(t *testing.T) {
	t.Parallel()

	source := `
agent "noop" "a" {
  depends_on = [agent.noop.ghost]
}
`

	_, err := buildFromHCL(t, source)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends on non-existent identifier 'noop.ghost'")
}

func TestBuild_CycleDetected(t *testing.T) {
	t.Parallel()

	source := `
agent "noop" "a" {
  depends_on = [agent.noop.b]
}

agent "noop" "b" {
  depends_on = [agent.noop.a]
}
`

	_, err := buildFromHCL(t, source)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestBuild_ImplicitDependencyFromArguments(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// b's argument references a's output, which must create an edge without
	// any depends_on.
	source := `
agent "producer" "a" {}

agent "consumer" "b" {
  arguments {
    value = agent.producer.a.output.answer
  }
}
`
	model, err := hcl.NewLoader().ParseBytes(context.Background(), "graph.hcl", []byte(source))
	require.NoError(t, err)

	r := registry.New()
	registerPassthrough(r, "producer")
	registerPassthrough(r, "consumer")

	// --- Act ---
	graph, err := dag.Build(context.Background(), model, r)

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, graph.Nodes["agent.consumer.b"].Deps, "agent.producer.a")
}

func TestBuild_ImplicitDependencyMissingNode(t *testing.T) {
	t.Parallel()

	source := `
agent "consumer" "b" {
  arguments {
    value = agent.producer.ghost.output.answer
  }
}
`
	model, err := hcl.NewLoader().ParseBytes(context.Background(), "graph.hcl", []byte(source))
	require.NoError(t, err)

	r := registry.New()
	registerPassthrough(r, "consumer")
	registerPassthrough(r, "producer")

	_, err = dag.Build(context.Background(), model, r)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "references non-existent node 'agent.producer.ghost'")
}

func TestRoots(t *testing.T) {
	t.Parallel()

	source := `
agent "noop" "a" {}
agent "noop" "b" {}

agent "noop" "c" {
  depends_on = [agent.noop.a, agent.noop.b]
}
`

	graph, err := buildFromHCL(t, source)

	require.NoError(t, err)
	assert.Equal(t, []string{"agent.noop.a", "agent.noop.b"}, graph.Roots())
}

func TestWaves(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// a and b are independent; c waits for both; d waits for c.
	source := `
agent "noop" "a" {}
agent "noop" "b" {}

agent "noop" "c" {
  depends_on = [agent.noop.a, agent.noop.b]
}

agent "noop" "d" {
  depends_on = [agent.noop.c]
}
`

	// --- Act ---
	graph, err := buildFromHCL(t, source)

	// --- Assert ---
	require.NoError(t, err)
	waves := graph.Waves()
	require.Len(t, waves, 3)
	assert.Equal(t, []string{"agent.noop.a", "agent.noop.b"}, waves[0])
	assert.Equal(t, []string{"agent.noop.c"}, waves[1])
	assert.Equal(t, []string{"agent.noop.d"}, waves[2])
}

// registerPassthrough registers an agent type with a single optional "value"
// input that echoes nothing.
func registerPassthrough(r *registry.Registry, name string) {
	type input struct {
		Value string `hcl:"value"`
	}
	type deps struct{}

	r.RegisterAgent(name, &registry.RegisteredAgent{
		NewInput:  func() any { return new(input) },
		InputType: reflect.TypeOf(input{}),
		NewDeps:   func() any { return new(deps) },
		Inputs: map[string]*config.InputDefinition{
			"value": {Name: "value", Optional: true},
		},
		Fn: func(ctx context.Context, d *deps, in *input) (cty.Value, error) {
			return cty.NilVal, nil
		},
	})
}
