package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletionClient records the last request and returns a canned
// response.
type fakeCompletionClient struct {
	lastRequest openai.ChatCompletionRequest
	response    openai.ChatCompletionResponse
	err         error
}

func (f *fakeCompletionClient) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastRequest = request
	return f.response, f.err
}

func TestOnRunAnalyst(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := &fakeCompletionClient{
		response: openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "  Cautiously bullish.  "}},
			},
		},
	}
	deps := &Deps{AI: &Analyst{Client: fake, Model: "gpt-4o-mini", Temperature: 0.2}}
	input := &Input{
		Question: "Should I increase my BTC exposure this week?",
		Context: map[string]string{
			"macd":   "MACD crossed above the signal line yesterday.",
			"quotes": "BTC is up 4.7% over 7 days.",
		},
	}

	// --- Act ---
	output, err := OnRunAnalyst(context.Background(), deps, input)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "Cautiously bullish.", output.GetAttr("analysis").AsString())
	assert.Equal(t, "gpt-4o-mini", output.GetAttr("model").AsString())

	require.Len(t, fake.lastRequest.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, fake.lastRequest.Messages[0].Role)
	assert.Contains(t, fake.lastRequest.Messages[0].Content, "crypto investment analyst")

	userPrompt := fake.lastRequest.Messages[1].Content
	assert.Contains(t, userPrompt, "## macd")
	assert.Contains(t, userPrompt, "## quotes")
	assert.Contains(t, userPrompt, "## Question")
	assert.Less(t,
		strings.Index(userPrompt, "## macd"), strings.Index(userPrompt, "## quotes"),
		"evidence sections must render in deterministic alphabetical order")
}

func TestOnRunAnalyst_SystemPromptOverride(t *testing.T) {
	t.Parallel()

	fake := &fakeCompletionClient{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		},
	}
	deps := &Deps{AI: &Analyst{Client: fake, Model: "m"}}
	input := &Input{Question: "q", SystemPrompt: "You are a pirate."}

	_, err := OnRunAnalyst(context.Background(), deps, input)

	require.NoError(t, err)
	assert.Equal(t, "You are a pirate.", fake.lastRequest.Messages[0].Content)
}

func TestOnRunAnalyst_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty question", func(t *testing.T) {
		t.Parallel()

		deps := &Deps{AI: &Analyst{Client: &fakeCompletionClient{}, Model: "m"}}

		_, err := OnRunAnalyst(context.Background(), deps, &Input{Question: "   "})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-empty question")
	})

	t.Run("completion failure", func(t *testing.T) {
		t.Parallel()

		fake := &fakeCompletionClient{err: errors.New("model overloaded")}
		deps := &Deps{AI: &Analyst{Client: fake, Model: "m"}}

		_, err := OnRunAnalyst(context.Background(), deps, &Input{Question: "q"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat completion failed")
		assert.Contains(t, err.Error(), "model overloaded")
	})

	t.Run("no choices", func(t *testing.T) {
		t.Parallel()

		deps := &Deps{AI: &Analyst{Client: &fakeCompletionClient{}, Model: "m"}}

		_, err := OnRunAnalyst(context.Background(), deps, &Input{Question: "q"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no choices")
	})
}

func TestOnCreateAnalyst(t *testing.T) {
	// Not parallel: mutates the process environment.
	t.Setenv("OPENAI_API_KEY", "")

	t.Run("missing key", func(t *testing.T) {
		_, err := OnCreateAnalyst(context.Background(), &AssetInput{Model: "m"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("explicit key", func(t *testing.T) {
		analyst, err := OnCreateAnalyst(context.Background(), &AssetInput{
			APIKey:      "sk-test",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   512,
		})

		require.NoError(t, err)
		assert.NotNil(t, analyst.Client)
		assert.Equal(t, "gpt-4o-mini", analyst.Model)
		assert.Equal(t, 0.3, analyst.Temperature)
		assert.Equal(t, 512, analyst.MaxTokens)
		require.NoError(t, OnDestroyAnalyst(analyst))
	})
}
