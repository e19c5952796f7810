// spread-debugger is a housekeeping CLI that reads one ticker snapshot
// per (venue, symbol) out of the Redis key-value side channel and
// prints the resulting cross-venue spread. It is never on the hot
// trading path.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ai-agentic-browser/arbitrage-core/internal/arbitrage"
	"github.com/ai-agentic-browser/arbitrage-core/internal/config"
)

// tickerSnapshot is the subset of fields this debugger needs out of
// the `{venue}:linear:tickers:{symbol}` JSON blob.
type tickerSnapshot struct {
	Bid string `json:"bid"`
	Ask string `json:"ask"`
}

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "symbol to inspect")
	venuesFlag := flag.String("venues", "bybit,binance,okx", "comma-separated venue list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("invalid redis url: %v", err)
	}
	opts.Password = cfg.Redis.Password
	opts.DB = cfg.Redis.DB
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	registry := arbitrage.NewSymbolRegistry()
	store := arbitrage.NewMarketDataStore(cfg.Arbitrage.MaxSymbols)

	venues := strings.Split(*venuesFlag, ",")
	for _, venue := range venues {
		venue = strings.TrimSpace(venue)
		key := fmt.Sprintf("%s:linear:tickers:%s", venue, *symbol)

		raw, err := client.Get(ctx, key).Result()
		if err != nil {
			fmt.Printf("%-10s %s: no data (%v)\n", venue, key, err)
			continue
		}

		var snap tickerSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			fmt.Printf("%-10s %s: malformed payload: %v\n", venue, key, err)
			continue
		}

		bid, err := parseBid(snap.Bid)
		if err != nil {
			fmt.Printf("%-10s %s: bad bid %q: %v\n", venue, key, snap.Bid, err)
			continue
		}
		ask, err := parseAsk(snap.Ask)
		if err != nil {
			fmt.Printf("%-10s %s: bad ask %q: %v\n", venue, key, snap.Ask, err)
			continue
		}

		id := registry.GetOrInsert(venue, *symbol)
		store.Update(id, bid, ask, 0)
		fmt.Printf("%-10s bid=%.8f ask=%.8f\n", venue, bid, ask)
	}

	printSpreads(registry, store, *symbol, venues)
}

func printSpreads(registry *arbitrage.SymbolRegistry, store *arbitrage.MarketDataStore, symbol string, venues []string) {
	fmt.Println("\ncross-venue spreads (long ask -> short bid):")
	for _, longVenue := range venues {
		longVenue = strings.TrimSpace(longVenue)
		longID := registry.GetOrInsert(longVenue, symbol)
		longQuote, ok := store.GetQuote(longID)
		if !ok || longQuote.Ask <= 0 {
			continue
		}
		for _, shortVenue := range venues {
			shortVenue = strings.TrimSpace(shortVenue)
			if shortVenue == longVenue {
				continue
			}
			shortID := registry.GetOrInsert(shortVenue, symbol)
			shortQuote, ok := store.GetQuote(shortID)
			if !ok || shortQuote.Bid <= 0 {
				continue
			}
			spreadBps := (shortQuote.Bid - longQuote.Ask) / longQuote.Ask * 10000
			fmt.Printf("  long=%-10s short=%-10s spread_bps=%.4f\n", longVenue, shortVenue, spreadBps)
		}
	}
}

// parseBid/parseAsk parse a venue-specific numeric string into a float64.
// Kept as distinct functions since venues occasionally diverge on bid vs
// ask quoting conventions (scientific notation, trailing venue suffixes).
func parseBid(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
func parseAsk(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
