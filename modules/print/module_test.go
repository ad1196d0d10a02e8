package print

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunPrint(t *testing.T) {
	t.Parallel()

	output, err := OnRunPrint(context.Background(), &Deps{}, &Input{
		Value: map[string]string{"price": "65000", "symbol": "BTC"},
	})

	require.NoError(t, err)
	assert.True(t, output.IsNull(), "the print agent publishes no output")
}

func TestOnRunPrint_NilInput(t *testing.T) {
	t.Parallel()

	output, err := OnRunPrint(context.Background(), &Deps{}, &Input{})

	require.NoError(t, err)
	assert.True(t, output.IsNull())
}
