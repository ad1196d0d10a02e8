package coincap

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

func TestSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bitcoin", Slug("BTC"))
	assert.Equal(t, "bitcoin", Slug("btc"))
	assert.Equal(t, "ethereum", Slug("ETH"))
	assert.Equal(t, "dogecoin", Slug("DOGECOIN"), "unknown symbols pass through lower-cased")
}

func TestHistory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/assets/bitcoin/history", r.URL.Path)
		assert.Equal(t, "h1", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("start"))
		assert.NotEmpty(t, r.URL.Query().Get("end"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{
			"data": [
				{"priceUsd": "100.5", "date": "2026-08-28T00:00:00.000Z"},
				{"priceUsd": "110.0", "date": "2026-08-29T00:00:00.000Z"}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second, 100)

	// --- Act ---
	quotes, err := client.History(context.Background(), "BTC",
		time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		"h1")

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, 100.5, quotes[0].PriceUSD)
	assert.Equal(t, 110.0, quotes[1].PriceUSD)
	assert.Equal(t, 2026, quotes[0].Date.Year())
}

func TestHistory_InvalidInterval(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused", "", time.Second, 100)

	_, err := client.History(context.Background(), "BTC", time.Now().Add(-time.Hour), time.Now(), "h99")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid interval "h99"`)
}

func TestHistory_EmptyData(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, 100)

	_, err := client.History(context.Background(), "XYZ", time.Now().Add(-time.Hour), time.Now(), "h1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no historical data available for XYZ")
}

func TestHistory_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, 100)

	_, err := client.History(context.Background(), "BTC", time.Now().Add(-time.Hour), time.Now(), "h1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestMACD(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/ta/ethereum/macd", r.URL.Path)
		fmt.Fprint(w, `{
			"macd": [
				{"date": "2026-08-28T00:00:00.000Z", "macd": "1.5", "signal": "1.2", "histogram": "0.3"},
				{"date": "2026-08-29T00:00:00.000Z", "macd": 1.8, "signal": 1.4, "histogram": 0.4}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, 100)

	// --- Act ---
	points, err := client.MACD(context.Background(), "ETH")

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, points, 2)
	// Both quoted strings and bare numbers must decode.
	assert.Equal(t, 1.5, points[0].MACD)
	assert.Equal(t, 1.2, points[0].Signal)
	assert.Equal(t, 0.4, points[1].Histogram)
}

func TestMACD_EmptySeries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"macd": []}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, 100)

	_, err := client.MACD(context.Background(), "BTC")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no MACD data available for BTC")
}
