// Package testutil holds the shared integration-test harness: it writes an
// HCL graph to a temp dir, boots a full App against it and captures logs and
// plan output for assertions.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/coingraph/internal/app"
	"github.com/vk/coingraph/internal/hcl"
	"github.com/vk/coingraph/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run. Output
// contains both the logs and the printed execution plan, since the harness
// points them at the same buffer.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
}

// RunGraph boots a full application against the given HCL source and runs it
// with a background context.
func RunGraph(t *testing.T, source string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunGraphWithContext(context.Background(), t, source, nil, modules...)
}

// RunGraphWithContext boots a full application against the given HCL source.
// mutate, when non-nil, adjusts the app config before startup (e.g. to set
// print-only mode). Startup panics are recovered into HarnessResult.Err so
// tests can assert on configuration failures.
func RunGraphWithContext(ctx context.Context, t *testing.T, source string, mutate func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	graphPath := filepath.Join(t.TempDir(), "graph.hcl")
	require.NoError(t, os.WriteFile(graphPath, []byte(source), 0o644))

	appConfig, err := app.NewConfig(app.Config{
		GraphPath:   graphPath,
		LogFormat:   "text",
		LogLevel:    "debug",
		WorkerCount: 4,
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(appConfig)
	}

	output := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(output, appConfig, hcl.NewLoader(), modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			Output: output.String(),
			Err:    fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("COINGRAPH_TEST_LOGS") == "true" {
		t.Logf("--- Full output for %s ---\n%s", t.Name(), output.String())
	}

	return &HarnessResult{
		Output: output.String(),
		Err:    runErr,
		App:    testApp,
	}
}
