// Package coincap provides a shared CoinCap REST API asset and the gathering
// agents built on it: historical USD quotes and the MACD technical indicator.
package coincap

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

// DefaultBaseURL is the CoinCap REST API endpoint.
const DefaultBaseURL = "https://rest.coincap.io"

// symbolToSlug maps common ticker symbols to CoinCap asset slugs. Unknown
// symbols are passed through lower-cased, since CoinCap slugs are lower-case
// asset names.
var symbolToSlug = map[string]string{
	"btc": "bitcoin",
	"eth": "ethereum",
}

// Slug resolves a ticker symbol to the CoinCap asset slug.
func Slug(symbol string) string {
	lower := strings.ToLower(symbol)
	if slug, ok := symbolToSlug[lower]; ok {
		return slug
	}
	return lower
}

// validIntervals is the set of candle intervals the history endpoint accepts.
var validIntervals = map[string]struct{}{
	"m1": {}, "m5": {}, "m15": {}, "m30": {},
	"h1": {}, "h2": {}, "h6": {}, "h12": {},
	"d1": {},
}

// Client is a rate-limited CoinCap REST API client, shared between gathering
// agents as a resource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient creates a CoinCap client. The API key is optional; when present
// it is sent as a Bearer token for higher rate limits. requestsPerSecond
// bounds the client-side request rate.
func NewClient(baseURL, apiKey string, timeout time.Duration, requestsPerSecond float64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
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

// get performs a rate-limited GET against the API and decodes the JSON
// response into out.
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
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("coincap returned %s for %s: %s", resp.Status, path, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// Quote is a single dated USD price observation.
type Quote struct {
	Date     time.Time
	PriceUSD float64
}

// MACDPoint is one observation of the MACD indicator series.
type MACDPoint struct {
	Date      time.Time
	MACD      float64
	Signal    float64
	Histogram float64
}

// floatString decodes JSON values that the API serves either as numbers or
// as quoted numeric strings.
type floatString float64

func (f *floatString) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	*f = floatString(v)
	return nil
}

type historyResponse struct {
	Data []struct {
		PriceUSD floatString `json:"priceUsd"`
		Date     time.Time   `json:"date"`
	} `json:"data"`
}

// History fetches dated USD prices for a symbol between start and end at the
// given candle interval (default h1). It returns an error when the API has
// no data for the symbol or range.
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]Quote, error) {
	if interval == "" {
		interval = "h1"
	}
	if _, ok := validIntervals[interval]; !ok {
		return nil, fmt.Errorf("invalid interval %q: must be one of m1, m5, m15, m30, h1, h2, h6, h12, d1", interval)
	}

	query := url.Values{}
	query.Set("interval", interval)
	query.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	query.Set("end", strconv.FormatInt(end.UnixMilli(), 10))

	var resp historyResponse
	path := fmt.Sprintf("/v3/assets/%s/history", Slug(symbol))
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no historical data available for %s", symbol)
	}

	quotes := make([]Quote, 0, len(resp.Data))
	for _, q := range resp.Data {
		quotes = append(quotes, Quote{Date: q.Date, PriceUSD: float64(q.PriceUSD)})
	}
	return quotes, nil
}

type macdResponse struct {
	MACD []struct {
		Date      time.Time   `json:"date"`
		MACD      floatString `json:"macd"`
		Signal    floatString `json:"signal"`
		Histogram floatString `json:"histogram"`
	} `json:"macd"`
}

// MACD fetches the MACD technical indicator series for a symbol.
func (c *Client) MACD(ctx context.Context, symbol string) ([]MACDPoint, error) {
	var resp macdResponse
	path := fmt.Sprintf("/v3/ta/%s/macd", Slug(symbol))
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.MACD) == 0 {
		return nil, fmt.Errorf("no MACD data available for %s", symbol)
	}

	points := make([]MACDPoint, 0, len(resp.MACD))
	for _, p := range resp.MACD {
		points = append(points, MACDPoint{
			Date:      p.Date,
			MACD:      float64(p.MACD),
			Signal:    float64(p.Signal),
			Histogram: float64(p.Histogram),
		})
	}
	return points, nil
}
