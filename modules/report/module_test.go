package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	sections := map[string]string{
		"Technicals": "MACD is bullish.",
		"Analysis":   "Cautiously bullish overall.\n",
	}
	generatedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// --- Act ---
	rendered := Render("BTC Research", sections, generatedAt)

	// --- Assert ---
	assert.True(t, strings.HasPrefix(rendered, "# BTC Research\n"))
	assert.Contains(t, rendered, "_Generated 2026-08-30 12:00 UTC_")
	assert.Contains(t, rendered, "## Analysis\n\nCautiously bullish overall.\n")
	assert.Contains(t, rendered, "## Technicals\n\nMACD is bullish.\n")
	assert.Less(t,
		strings.Index(rendered, "## Analysis"), strings.Index(rendered, "## Technicals"),
		"sections must render in alphabetical order")
}

func TestOnRunReport_WritesFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "report.md")
	input := &Input{
		Title:    "Weekly BTC Brief",
		Sections: map[string]string{"Summary": "All quiet."},
		Path:     path,
	}

	// --- Act ---
	output, err := OnRunReport(context.Background(), &Deps{}, input)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, path, output.GetAttr("path").AsString())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Weekly BTC Brief")
	assert.Contains(t, string(content), "## Summary")

	chars, _ := output.GetAttr("chars").AsBigFloat().Int64()
	assert.Equal(t, int64(len(content)), chars)
}

func TestOnRunReport_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   *Input
		wantMsg string
	}{
		{
			name:    "empty title",
			input:   &Input{Sections: map[string]string{"a": "b"}},
			wantMsg: "non-empty title",
		},
		{
			name:    "no sections",
			input:   &Input{Title: "Report"},
			wantMsg: "at least one section",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := OnRunReport(context.Background(), &Deps{}, tc.input)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}
