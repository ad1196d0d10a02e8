// Package pricestream provides an agent that samples live trade prices from
// the CoinCap websocket feed for a bounded duration and summarizes what it
// saw per asset.
package pricestream

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vk/coingraph/internal/config"
	"github.com/vk/coingraph/internal/ctxlog"
	"github.com/vk/coingraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// DefaultFeedURL is the CoinCap live price feed. Asset slugs are appended as
// the 'assets' query parameter.
const DefaultFeedURL = "wss://ws.coincap.io/prices"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the price_stream agent.
type Input struct {
	Assets          []string `hcl:"assets"`
	DurationSeconds float64  `hcl:"duration_seconds"`
	FeedURL         string   `hcl:"feed_url"`
}

// Deps is empty because this agent dials the feed itself.
type Deps struct{}

// assetStats accumulates observations for one asset slug.
type assetStats struct {
	last  float64
	min   float64
	max   float64
	ticks int
}

// OnRunPriceStream is the handler for the 'price_stream' agent. It connects
// to the feed, reads price messages until the sampling window closes, and
// returns last/min/max/ticks per requested asset.
func OnRunPriceStream(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	log := ctxlog.FromContext(ctx)

	if len(input.Assets) == 0 {
		return cty.NilVal, fmt.Errorf("price_stream requires at least one asset slug")
	}
	duration := time.Duration(input.DurationSeconds * float64(time.Second))
	if duration <= 0 {
		return cty.NilVal, fmt.Errorf("duration_seconds must be positive, got %v", input.DurationSeconds)
	}

	feedURL, err := buildFeedURL(input.FeedURL, input.Assets)
	if err != nil {
		return cty.NilVal, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, feedURL, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to connect to price feed: %w", err)
	}
	defer conn.Close()
	log.Debug("Connected to price feed.", "url", feedURL, "duration", duration)

	stats := make(map[string]*assetStats)
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return cty.NilVal, err
		}
		conn.SetReadDeadline(deadline)

		var msg map[string]string
		if err := conn.ReadJSON(&msg); err != nil {
			// The read deadline closing the window is the normal exit.
			if time.Now().After(deadline) {
				break
			}
			return cty.NilVal, fmt.Errorf("price feed read failed: %w", err)
		}
		for slug, raw := range msg {
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			s, ok := stats[slug]
			if !ok {
				s = &assetStats{min: price, max: price}
				stats[slug] = s
			}
			s.last = price
			if price < s.min {
				s.min = price
			}
			if price > s.max {
				s.max = price
			}
			s.ticks++
		}
	}

	return summarize(input.Assets, stats), nil
}

func buildFeedURL(base string, assets []string) (string, error) {
	if base == "" {
		base = DefaultFeedURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid feed_url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("assets", strings.Join(assets, ","))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// summarize builds the per-asset output map. Assets that never ticked during
// the window are reported with zero values so downstream expressions can
// still address them.
func summarize(assets []string, stats map[string]*assetStats) cty.Value {
	totalTicks := 0
	perAsset := make(map[string]cty.Value, len(assets))

	sorted := append([]string(nil), assets...)
	sort.Strings(sorted)
	for _, slug := range sorted {
		s := stats[slug]
		if s == nil {
			s = &assetStats{}
		}
		totalTicks += s.ticks
		perAsset[slug] = cty.ObjectVal(map[string]cty.Value{
			"last":  cty.NumberFloatVal(s.last),
			"min":   cty.NumberFloatVal(s.min),
			"max":   cty.NumberFloatVal(s.max),
			"ticks": cty.NumberIntVal(int64(s.ticks)),
		})
	}

	return cty.ObjectVal(map[string]cty.Value{
		"assets":      cty.ObjectVal(perAsset),
		"total_ticks": cty.NumberIntVal(int64(totalTicks)),
	})
}

// Register registers the agent with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAgent("price_stream", &registry.RegisteredAgent{
		Description: "Samples live prices from the CoinCap websocket feed.",
		NewInput:    func() any { return new(Input) },
		InputType:   reflect.TypeOf(Input{}),
		NewDeps:     func() any { return new(Deps) },
		Inputs: map[string]*config.InputDefinition{
			"assets":           {Name: "assets", Description: "CoinCap asset slugs to watch, e.g. bitcoin."},
			"duration_seconds": {Name: "duration_seconds", Description: "Length of the sampling window.", Optional: true, Default: numberDefault(5)},
			"feed_url":         {Name: "feed_url", Description: "Override the websocket feed URL.", Optional: true},
		},
		Outputs: map[string]*config.OutputDefinition{
			"assets":      {Name: "assets", Description: "Per-asset last/min/max/ticks summary."},
			"total_ticks": {Name: "total_ticks", Description: "Total price updates observed."},
		},
		Fn: OnRunPriceStream,
	})
}

func numberDefault(v float64) *cty.Value {
	val := cty.NumberFloatVal(v)
	return &val
}
