package coinmarketcap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotes(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cryptocurrency/quotes/latest", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("id"))
		assert.Equal(t, "USD", r.URL.Query().Get("convert"))
		assert.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))

		fmt.Fprint(w, `{
			"data": {
				"1": {
					"name": "Bitcoin",
					"symbol": "BTC",
					"quote": {
						"USD": {
							"price": 65000.5,
							"volume_24h": 30000000000,
							"market_cap": 1280000000000,
							"percent_change_1h": 0.1,
							"percent_change_24h": -1.2,
							"percent_change_7d": 4.7
						}
					}
				}
			}
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second, 100)

	// --- Act ---
	quote, err := client.Quotes(context.Background(), "BTC")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", quote.Name)
	assert.Equal(t, "BTC", quote.Symbol)
	assert.Equal(t, 65000.5, quote.Price)
	assert.Equal(t, -1.2, quote.PercentChange24h)
	assert.Equal(t, 4.7, quote.PercentChange7d)
}

func TestQuotes_UnknownSymbol(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused", "k", time.Second, 100)

	_, err := client.Quotes(context.Background(), "NOPE")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown symbol "NOPE"`)
}

func TestQuotes_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status": {"error_message": "API key invalid"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", time.Second, 100)

	_, err := client.Quotes(context.Background(), "BTC")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "API key invalid")
}

func TestGlobal(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/global-metrics/quotes/latest", r.URL.Path)
		fmt.Fprint(w, `{
			"data": {
				"btc_dominance": 52.3,
				"eth_dominance": 17.1,
				"quote": {
					"USD": {
						"total_market_cap": 2400000000000,
						"total_volume_24h": 90000000000
					}
				}
			}
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second, 100)

	// --- Act ---
	metrics, err := client.Global(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 52.3, metrics.BTCDominance)
	assert.Equal(t, 17.1, metrics.ETHDominance)
	assert.Equal(t, 2.4e12, metrics.TotalMarketCap)
	assert.Equal(t, 9e10, metrics.TotalVolume24h)
}

func TestOnRunQuotes(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": {
				"1027": {
					"name": "Ethereum",
					"symbol": "ETH",
					"quote": {
						"USD": {
							"price": 3200.25,
							"volume_24h": 12000000000,
							"market_cap": 384000000000,
							"percent_change_1h": 0.2,
							"percent_change_24h": 2.5,
							"percent_change_7d": -0.8
						}
					}
				}
			}
		}`)
	}))
	defer server.Close()

	deps := &Deps{API: NewClient(server.URL, "test-key", 5*time.Second, 100)}

	// --- Act ---
	output, err := OnRunQuotes(context.Background(), deps, &QuotesInput{Symbol: "ETH"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", output.GetAttr("name").AsString())

	price, _ := output.GetAttr("price").AsBigFloat().Float64()
	assert.Equal(t, 3200.25, price)

	change, _ := output.GetAttr("percent_change_24h").AsBigFloat().Float64()
	assert.Equal(t, 2.5, change)
}

func TestOnCreateClient_RequiresKey(t *testing.T) {
	// Not parallel: mutates the process environment.
	t.Setenv("CMC_API_KEY", "")

	_, err := OnCreateClient(context.Background(), &AssetInput{TimeoutSeconds: 10})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}
