// Package llm provides an OpenAI-compatible chat completion asset and an
// analyst agent that turns gathered market data into a written assessment.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const defaultSystemPrompt = "You are a careful crypto investment analyst. " +
	"You are given market data gathered from independent sources. " +
	"Weigh the evidence, point out contradictions between sources, and finish " +
	"with a clearly labeled assessment. Never present speculation as fact."

// Module implements the registry.Module interface for this package.
type Module struct{}

// CompletionClient is the part of the OpenAI client the analyst needs.
// Narrowing the interface keeps tests free of the real network client.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Analyst is the shared chat-completion resource: a configured client plus
// the model parameters every request uses.
type Analyst struct {
	Client      CompletionClient
	Model       string
	Temperature float64
	MaxTokens   int
}

// AssetInput defines the configuration for the shared completion client. Any
// OpenAI-compatible endpoint works via base_url.
type AssetInput struct {
	APIKey      string  `hcl:"api_key"`
	BaseURL     string  `hcl:"base_url"`
	Model       string  `hcl:"model"`
	Temperature float64 `hcl:"temperature"`
	MaxTokens   float64 `hcl:"max_tokens"`
}

// OnCreateAnalyst builds the shared completion resource. When no key is
// configured it falls back to the OPENAI_API_KEY environment variable.
func OnCreateAnalyst(ctx context.Context, input *AssetInput) (*Analyst, error) {
	apiKey := input.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai requires an api_key argument or the OPENAI_API_KEY environment variable")
	}

	cfg := openai.DefaultConfig(apiKey)
	if input.BaseURL != "" {
		cfg.BaseURL = input.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	ctxlog.FromContext(ctx).Debug("Creating completion client.", "model", input.Model, "base_url", cfg.BaseURL)
	return &Analyst{
		Client:      openai.NewClientWithConfig(cfg),
		Model:       input.Model,
		Temperature: input.Temperature,
		MaxTokens:   int(input.MaxTokens),
	}, nil
}

// OnDestroyAnalyst is a no-op; the client holds no persistent connections
// worth tearing down.
func OnDestroyAnalyst(analyst *Analyst) error {
	return nil
}

// Input defines the arguments for the analyst agent. Context entries are
// named evidence sections, typically wired from upstream agent outputs.
type Input struct {
	Question     string            `hcl:"question"`
	Context      map[string]string `hcl:"context"`
	SystemPrompt string            `hcl:"system_prompt"`
}

// Deps declares the completion resource the agent consumes.
type Deps struct {
	AI *Analyst `hcl:"ai"`
}

// OnRunAnalyst is the handler for the 'analyst' agent. It assembles the
// evidence sections and the question into one user prompt and returns the
// model's assessment.
func OnRunAnalyst(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	log := ctxlog.FromContext(ctx)

	if strings.TrimSpace(input.Question) == "" {
		return cty.NilVal, fmt.Errorf("analyst requires a non-empty question")
	}

	systemPrompt := input.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	req := openai.ChatCompletionRequest{
		Model:       deps.AI.Model,
		Temperature: float32(deps.AI.Temperature),
		MaxTokens:   deps.AI.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(input.Question, input.Context)},
		},
	}

	log.Debug("Requesting analysis.", "model", deps.AI.Model, "evidence_sections", len(input.Context))
	resp, err := deps.AI.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return cty.NilVal, fmt.Errorf("chat completion returned no choices")
	}

	analysis := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug("Received analysis.", "chars", len(analysis))

	return cty.ObjectVal(map[string]cty.Value{
		"analysis": cty.StringVal(analysis),
		"model":    cty.StringVal(resp.Model),
	}), nil
}

// buildUserPrompt renders the evidence sections in deterministic order
// followed by the question.
func buildUserPrompt(question string, evidence map[string]string) string {
	var b strings.Builder

	keys := make([]string, 0, len(evidence))
	for k := range evidence {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "## %s\n%s\n\n", k, evidence[k])
	}
	fmt.Fprintf(&b, "## Question\n%s\n", question)
	return b.String()
}

// Register registers the asset and agent with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAsset("openai", &registry.RegisteredAsset{
		Description: "A shared OpenAI-compatible chat completion client.",
		NewInput:    func() any { return new(AssetInput) },
		InputType:   reflect.TypeOf(AssetInput{}),
		Inputs: map[string]*config.InputDefinition{
			"api_key":     {Name: "api_key", Description: "API key; falls back to OPENAI_API_KEY.", Optional: true},
			"base_url":    {Name: "base_url", Description: "Override for OpenAI-compatible endpoints.", Optional: true},
			"model":       {Name: "model", Description: "Model identifier.", Optional: true, Default: stringDefault(openai.GPT4oMini)},
			"temperature": {Name: "temperature", Description: "Sampling temperature.", Optional: true, Default: numberDefault(0.2)},
			"max_tokens":  {Name: "max_tokens", Description: "Completion token limit; 0 means provider default.", Optional: true, Default: numberDefault(0)},
		},
		CreateFn:  OnCreateAnalyst,
		DestroyFn: OnDestroyAnalyst,
	})

	r.RegisterAgent("analyst", &registry.RegisteredAgent{
		Description: "Produces a written assessment from gathered evidence.",
		NewInput:    func() any { return new(Input) },
		InputType:   reflect.TypeOf(Input{}),
		NewDeps:     func() any { return new(Deps) },
		Inputs: map[string]*config.InputDefinition{
			"question":      {Name: "question", Description: "The question the analyst must answer."},
			"context":       {Name: "context", Description: "Named evidence sections from upstream agents.", Optional: true},
			"system_prompt": {Name: "system_prompt", Description: "Override the analyst persona.", Optional: true},
		},
		Outputs: map[string]*config.OutputDefinition{
			"analysis": {Name: "analysis", Description: "The written assessment."},
			"model":    {Name: "model", Description: "The model that produced it."},
		},
		Fn: OnRunAnalyst,
	})
}

func stringDefault(s string) *cty.Value {
	val := cty.StringVal(s)
	return &val
}

func numberDefault(v float64) *cty.Value {
	val := cty.NumberFloatVal(v)
	return &val
}
