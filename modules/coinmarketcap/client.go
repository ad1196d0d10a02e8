// Package coinmarketcap provides a shared CoinMarketCap Pro API asset and
// gathering agents for per-asset quotes and global market metrics.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the CoinMarketCap Pro API endpoint.
const DefaultBaseURL = "https://pro-api.coinmarketcap.com"

// symbolToID maps common ticker symbols to CoinMarketCap numeric IDs, which
// the quote endpoints key on.
var symbolToID = map[string]int{
	"btc": 1,
	"eth": 1027,
}

// Client is a rate-limited CoinMarketCap Pro API client, shared between
// gathering agents as a resource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient creates a CoinMarketCap client. The API key is required by the
// Pro API and sent on every request.
func NewClient(baseURL, apiKey string, timeout time.Duration, requestsPerSecond float64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("coinmarketcap returned %s for %s: %s", resp.Status, path, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// Quote summarizes the latest market state of a single asset.
type Quote struct {
	Name             string
	Symbol           string
	Price            float64
	Volume24h        float64
	MarketCap        float64
	PercentChange1h  float64
	PercentChange24h float64
	PercentChange7d  float64
}

type quotesResponse struct {
	Data map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Quote  map[string]struct {
			Price            float64 `json:"price"`
			Volume24h        float64 `json:"volume_24h"`
			MarketCap        float64 `json:"market_cap"`
			PercentChange1h  float64 `json:"percent_change_1h"`
			PercentChange24h float64 `json:"percent_change_24h"`
			PercentChange7d  float64 `json:"percent_change_7d"`
		} `json:"quote"`
	} `json:"data"`
}

// Quotes fetches the latest USD quote for a symbol. Only symbols with a
// known CoinMarketCap ID are supported.
func (c *Client) Quotes(ctx context.Context, symbol string) (*Quote, error) {
	id, ok := symbolToID[strings.ToLower(symbol)]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q: no CoinMarketCap ID mapping", symbol)
	}

	query := url.Values{}
	query.Set("id", strconv.Itoa(id))
	query.Set("convert", "USD")

	var resp quotesResponse
	if err := c.get(ctx, "/v1/cryptocurrency/quotes/latest", query, &resp); err != nil {
		return nil, err
	}

	entry, ok := resp.Data[strconv.Itoa(id)]
	if !ok {
		return nil, fmt.Errorf("no quote data returned for %s", symbol)
	}
	usd, ok := entry.Quote["USD"]
	if !ok {
		return nil, fmt.Errorf("no USD quote returned for %s", symbol)
	}

	return &Quote{
		Name:             entry.Name,
		Symbol:           entry.Symbol,
		Price:            usd.Price,
		Volume24h:        usd.Volume24h,
		MarketCap:        usd.MarketCap,
		PercentChange1h:  usd.PercentChange1h,
		PercentChange24h: usd.PercentChange24h,
		PercentChange7d:  usd.PercentChange7d,
	}, nil
}

// GlobalMetrics summarizes the state of the whole crypto market.
type GlobalMetrics struct {
	TotalMarketCap float64
	TotalVolume24h float64
	BTCDominance   float64
	ETHDominance   float64
}

type globalMetricsResponse struct {
	Data struct {
		BTCDominance float64 `json:"btc_dominance"`
		ETHDominance float64 `json:"eth_dominance"`
		Quote        map[string]struct {
			TotalMarketCap float64 `json:"total_market_cap"`
			TotalVolume24h float64 `json:"total_volume_24h"`
		} `json:"quote"`
	} `json:"data"`
}

// Global fetches the latest global market metrics in USD.
func (c *Client) Global(ctx context.Context) (*GlobalMetrics, error) {
	query := url.Values{}
	query.Set("convert", "USD")

	var resp globalMetricsResponse
	if err := c.get(ctx, "/v1/global-metrics/quotes/latest", query, &resp); err != nil {
		return nil, err
	}

	usd, ok := resp.Data.Quote["USD"]
	if !ok {
		return nil, fmt.Errorf("no USD data in global metrics response")
	}

	return &GlobalMetrics{
		TotalMarketCap: usd.TotalMarketCap,
		TotalVolume24h: usd.TotalVolume24h,
		BTCDominance:   resp.Data.BTCDominance,
		ETHDominance:   resp.Data.ETHDominance,
	}, nil
}
