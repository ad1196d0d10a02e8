package coincap

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// AssetInput defines the configuration for the shared CoinCap client.
type AssetInput struct {
	APIKey            string  `hcl:"api_key"`
	BaseURL           string  `hcl:"base_url"`
	TimeoutSeconds    float64 `hcl:"timeout_seconds"`
	RequestsPerSecond float64 `hcl:"requests_per_second"`
}

// OnCreateClient builds the shared API client resource. When no key is
// configured it falls back to the COINCAP_API_KEY environment variable.
func OnCreateClient(ctx context.Context, input *AssetInput) (*Client, error) {
	apiKey := input.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("COINCAP_API_KEY")
	}
	timeout := time.Duration(input.TimeoutSeconds * float64(time.Second))

	ctxlog.FromContext(ctx).Debug("Creating CoinCap client.", "base_url", input.BaseURL, "has_api_key", apiKey != "")
	return NewClient(input.BaseURL, apiKey, timeout, input.RequestsPerSecond), nil
}

// OnDestroyClient releases the client's idle connections.
func OnDestroyClient(client *Client) error {
	client.Close()
	return nil
}

// HistoryInput defines the arguments for the coincap_history agent. Dates
// use the YYYY-MM-DD format.
type HistoryInput struct {
	Symbol    string `hcl:"symbol"`
	StartDate string `hcl:"start_date"`
	EndDate   string `hcl:"end_date"`
	Interval  string `hcl:"interval"`
}

// Deps declares the resources the gathering agents consume.
type Deps struct {
	API *Client `hcl:"api"`
}

// OnRunHistory is the handler for the 'coincap_history' agent. It fetches
// dated USD prices for the requested window and summarizes the move across
// it.
func OnRunHistory(ctx context.Context, deps *Deps, input *HistoryInput) (cty.Value, error) {
	log := ctxlog.FromContext(ctx)

	start, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid start_date %q: %w", input.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", input.EndDate)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid end_date %q: %w", input.EndDate, err)
	}
	if !end.After(start) {
		return cty.NilVal, fmt.Errorf("end_date %s must be after start_date %s", input.EndDate, input.StartDate)
	}

	quotes, err := deps.API.History(ctx, input.Symbol, start, end, input.Interval)
	if err != nil {
		return cty.NilVal, err
	}
	log.Debug("Fetched price history.", "symbol", input.Symbol, "points", len(quotes))

	points := make([]cty.Value, 0, len(quotes))
	for _, q := range quotes {
		points = append(points, cty.ObjectVal(map[string]cty.Value{
			"date":      cty.StringVal(q.Date.Format(time.RFC3339)),
			"price_usd": cty.NumberFloatVal(q.PriceUSD),
		}))
	}

	first := quotes[0].PriceUSD
	latest := quotes[len(quotes)-1].PriceUSD
	changePct := 0.0
	if first != 0 {
		changePct = (latest - first) / first * 100
	}

	return cty.ObjectVal(map[string]cty.Value{
		"symbol":       cty.StringVal(input.Symbol),
		"slug":         cty.StringVal(Slug(input.Symbol)),
		"latest_price": cty.NumberFloatVal(latest),
		"change_pct":   cty.NumberFloatVal(changePct),
		"points":       cty.ListVal(points),
	}), nil
}

// MACDInput defines the arguments for the coincap_macd agent.
type MACDInput struct {
	Symbol string `hcl:"symbol"`
}

// OnRunMACD is the handler for the 'coincap_macd' agent. Besides the raw
// indicator series it reports whether the latest observation sits in bullish
// territory (MACD line above the signal line).
func OnRunMACD(ctx context.Context, deps *Deps, input *MACDInput) (cty.Value, error) {
	series, err := deps.API.MACD(ctx, input.Symbol)
	if err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Debug("Fetched MACD series.", "symbol", input.Symbol, "points", len(series))

	points := make([]cty.Value, 0, len(series))
	for _, p := range series {
		points = append(points, cty.ObjectVal(map[string]cty.Value{
			"date":      cty.StringVal(p.Date.Format(time.RFC3339)),
			"macd":      cty.NumberFloatVal(p.MACD),
			"signal":    cty.NumberFloatVal(p.Signal),
			"histogram": cty.NumberFloatVal(p.Histogram),
		}))
	}

	latest := series[len(series)-1]
	return cty.ObjectVal(map[string]cty.Value{
		"symbol":  cty.StringVal(input.Symbol),
		"bullish": cty.BoolVal(latest.MACD > latest.Signal),
		"latest": cty.ObjectVal(map[string]cty.Value{
			"macd":      cty.NumberFloatVal(latest.MACD),
			"signal":    cty.NumberFloatVal(latest.Signal),
			"histogram": cty.NumberFloatVal(latest.Histogram),
		}),
		"points": cty.ListVal(points),
	}), nil
}

// Register registers the asset and agents with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAsset("coincap", &registry.RegisteredAsset{
		Description: "A shared, rate-limited CoinCap REST API client.",
		NewInput:    func() any { return new(AssetInput) },
		InputType:   reflect.TypeOf(AssetInput{}),
		Inputs: map[string]*config.InputDefinition{
			"api_key":             {Name: "api_key", Description: "API key; falls back to COINCAP_API_KEY.", Optional: true},
			"base_url":            {Name: "base_url", Description: "Override the API endpoint.", Optional: true},
			"timeout_seconds":     {Name: "timeout_seconds", Description: "HTTP request timeout.", Optional: true, Default: numberDefault(10)},
			"requests_per_second": {Name: "requests_per_second", Description: "Client-side rate limit.", Optional: true, Default: numberDefault(5)},
		},
		CreateFn:  OnCreateClient,
		DestroyFn: OnDestroyClient,
	})

	r.RegisterAgent("coincap_history", &registry.RegisteredAgent{
		Description: "Fetches historical USD prices for an asset.",
		NewInput:    func() any { return new(HistoryInput) },
		InputType:   reflect.TypeOf(HistoryInput{}),
		NewDeps:     func() any { return new(Deps) },
		Inputs: map[string]*config.InputDefinition{
			"symbol":     {Name: "symbol", Description: "Ticker symbol, e.g. BTC."},
			"start_date": {Name: "start_date", Description: "Window start, YYYY-MM-DD."},
			"end_date":   {Name: "end_date", Description: "Window end, YYYY-MM-DD."},
			"interval":   {Name: "interval", Description: "Candle interval (m1..d1).", Optional: true, Default: stringDefault("h1")},
		},
		Outputs: map[string]*config.OutputDefinition{
			"symbol":       {Name: "symbol", Description: "Echo of the requested symbol."},
			"slug":         {Name: "slug", Description: "Resolved CoinCap asset slug."},
			"latest_price": {Name: "latest_price", Description: "Most recent price in the window."},
			"change_pct":   {Name: "change_pct", Description: "Percent change across the window."},
			"points":       {Name: "points", Description: "Dated price observations."},
		},
		Fn: OnRunHistory,
	})

	r.RegisterAgent("coincap_macd", &registry.RegisteredAgent{
		Description: "Fetches the MACD technical indicator for an asset.",
		NewInput:    func() any { return new(MACDInput) },
		InputType:   reflect.TypeOf(MACDInput{}),
		NewDeps:     func() any { return new(Deps) },
		Inputs: map[string]*config.InputDefinition{
			"symbol": {Name: "symbol", Description: "Ticker symbol, e.g. BTC."},
		},
		Outputs: map[string]*config.OutputDefinition{
			"symbol":  {Name: "symbol", Description: "Echo of the requested symbol."},
			"bullish": {Name: "bullish", Description: "Whether MACD is above the signal line."},
			"latest":  {Name: "latest", Description: "Most recent indicator observation."},
			"points":  {Name: "points", Description: "Full indicator series."},
		},
		Fn: OnRunMACD,
	})
}

func numberDefault(v float64) *cty.Value {
	val := cty.NumberFloatVal(v)
	return &val
}

func stringDefault(s string) *cty.Value {
	val := cty.StringVal(s)
	return &val
}
