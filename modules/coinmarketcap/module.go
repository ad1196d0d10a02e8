package coinmarketcap

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

// AssetInput defines the configuration for the shared CoinMarketCap client.
type AssetInput struct {
	APIKey            string  `hcl:"api_key"`
	BaseURL           string  `hcl:"base_url"`
	TimeoutSeconds    float64 `hcl:"timeout_seconds"`
	RequestsPerSecond float64 `hcl:"requests_per_second"`
}

// OnCreateClient builds the shared API client resource. The Pro API rejects
// unauthenticated requests, so a missing key fails resource creation.
func OnCreateClient(ctx context.Context, input *AssetInput) (*Client, error) {
	apiKey := input.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("CMC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("coinmarketcap requires an api_key argument or the CMC_API_KEY environment variable")
	}
	timeout := time.Duration(input.TimeoutSeconds * float64(time.Second))

	ctxlog.FromContext(ctx).Debug("Creating CoinMarketCap client.", "base_url", input.BaseURL)
	return NewClient(input.BaseURL, apiKey, timeout, input.RequestsPerSecond), nil
}

// OnDestroyClient releases the client's idle connections.
func OnDestroyClient(client *Client) error {
	client.Close()
	return nil
}

// QuotesInput defines the arguments for the cmc_quotes agent.
type QuotesInput struct {
	Symbol string `hcl:"symbol"`
}

// GlobalInput is empty because the cmc_global agent takes no arguments.
type GlobalInput struct{}

// Deps declares the resources the gathering agents consume.
type Deps struct {
	API *Client `hcl:"api"`
}

// OnRunQuotes is the handler for the 'cmc_quotes' agent.
func OnRunQuotes(ctx context.Context, deps *Deps, input *QuotesInput) (cty.Value, error) {
	quote, err := deps.API.Quotes(ctx, input.Symbol)
	if err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Debug("Fetched latest quote.", "symbol", input.Symbol, "price", quote.Price)

	return cty.ObjectVal(map[string]cty.Value{
		"name":               cty.StringVal(quote.Name),
		"symbol":             cty.StringVal(quote.Symbol),
		"price":              cty.NumberFloatVal(quote.Price),
		"volume_24h":         cty.NumberFloatVal(quote.Volume24h),
		"market_cap":         cty.NumberFloatVal(quote.MarketCap),
		"percent_change_1h":  cty.NumberFloatVal(quote.PercentChange1h),
		"percent_change_24h": cty.NumberFloatVal(quote.PercentChange24h),
		"percent_change_7d":  cty.NumberFloatVal(quote.PercentChange7d),
	}), nil
}

// OnRunGlobal is the handler for the 'cmc_global' agent.
func OnRunGlobal(ctx context.Context, deps *Deps, input *GlobalInput) (cty.Value, error) {
	metrics, err := deps.API.Global(ctx)
	if err != nil {
		return cty.NilVal, err
	}
	ctxlog.FromContext(ctx).Debug("Fetched global market metrics.", "btc_dominance", metrics.BTCDominance)

	return cty.ObjectVal(map[string]cty.Value{
		"total_market_cap": cty.NumberFloatVal(metrics.TotalMarketCap),
		"total_volume_24h": cty.NumberFloatVal(metrics.TotalVolume24h),
		"btc_dominance":    cty.NumberFloatVal(metrics.BTCDominance),
		"eth_dominance":    cty.NumberFloatVal(metrics.ETHDominance),
	}), nil
}

// Register registers the asset and agents with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAsset("coinmarketcap", &registry.RegisteredAsset{
		Description: "A shared, rate-limited CoinMarketCap Pro API client.",
		NewInput:    func() any { return new(AssetInput) },
		InputType:   reflect.TypeOf(AssetInput{}),
		Inputs: map[string]*config.InputDefinition{
			"api_key":             {Name: "api_key", Description: "API key; falls back to CMC_API_KEY.", Optional: true},
			"base_url":            {Name: "base_url", Description: "Override the API endpoint.", Optional: true},
			"timeout_seconds":     {Name: "timeout_seconds", Description: "HTTP request timeout.", Optional: true, Default: numberDefault(10)},
			"requests_per_second": {Name: "requests_per_second", Description: "Client-side rate limit.", Optional: true, Default: numberDefault(2)},
		},
		CreateFn:  OnCreateClient,
		DestroyFn: OnDestroyClient,
	})

	r.RegisterAgent("cmc_quotes", &registry.RegisteredAgent{
		Description: "Fetches the latest USD quote for an asset.",
		NewInput:    func() any { return new(QuotesInput) },
		InputType:   reflect.TypeOf(QuotesInput{}),
		NewDeps:     func() any { return new(Deps) },
		Inputs: map[string]*config.InputDefinition{
			"symbol": {Name: "symbol", Description: "Ticker symbol, e.g. BTC."},
		},
		Outputs: map[string]*config.OutputDefinition{
			"name":               {Name: "name", Description: "Asset name."},
			"symbol":             {Name: "symbol", Description: "Ticker symbol."},
			"price":              {Name: "price", Description: "Latest USD price."},
			"volume_24h":         {Name: "volume_24h", Description: "24h trading volume."},
			"market_cap":         {Name: "market_cap", Description: "Market capitalization."},
			"percent_change_1h":  {Name: "percent_change_1h", Description: "1h price change."},
			"percent_change_24h": {Name: "percent_change_24h", Description: "24h price change."},
			"percent_change_7d":  {Name: "percent_change_7d", Description: "7d price change."},
		},
		Fn: OnRunQuotes,
	})

	r.RegisterAgent("cmc_global", &registry.RegisteredAgent{
		Description: "Fetches global crypto market metrics.",
		NewInput:    func() any { return new(GlobalInput) },
		InputType:   reflect.TypeOf(GlobalInput{}),
		NewDeps:     func() any { return new(Deps) },
		Outputs: map[string]*config.OutputDefinition{
			"total_market_cap": {Name: "total_market_cap", Description: "Total market capitalization."},
			"total_volume_24h": {Name: "total_volume_24h", Description: "Total 24h trading volume."},
			"btc_dominance":    {Name: "btc_dominance", Description: "Bitcoin market-cap dominance."},
			"eth_dominance":    {Name: "eth_dominance", Description: "Ethereum market-cap dominance."},
		},
		Fn: OnRunGlobal,
	})
}

func numberDefault(v float64) *cty.Value {
	val := cty.NumberFloatVal(v)
	return &val
}
