package arbitrage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/arbitrage-core/internal/exchanges/common"
)

func newTestDetector(t *testing.T, minSpreadBps float64, minConfidence int) (*Detector, *SymbolRegistry, *MarketDataStore, *OpportunityQueue) {
	t.Helper()
	registry := NewSymbolRegistry()
	store := NewMarketDataStore(16)
	queue := NewOpportunityQueue(16)
	d := NewDetector(registry, store, queue, nil, nil,
		DepthThresholds{MinDepthUSD: 0, MaxLatencyMicros: 1_000_000, MinFundingDelta: -1},
		minSpreadBps, minConfidence, 0, nil)
	return d, registry, store, queue
}

func TestDetector_EmitsOpportunityAboveSpreadThreshold(t *testing.T) {
	d, registry, _, queue := newTestDetector(t, 1.0, 0)
	now := time.Now()

	longID := registry.GetOrInsert("bybit", "BTCUSDT")
	shortID := registry.GetOrInsert("binance", "BTCUSDT")

	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: longID, Bid: 99.9, Ask: 100.0, TimestampUs: uint64(now.UnixMicro())}, now)
	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: shortID, Bid: 100.5, Ask: 100.6, TimestampUs: uint64(now.UnixMicro())}, now)

	opp, ok := queue.PopBest()
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", opp.Symbol)
	assert.Equal(t, "bybit", opp.LongExchange)
	assert.Equal(t, "binance", opp.ShortExchange)

	expectedSpreadBps := (100.5 - 100.0) / 100.0 * 10000
	assert.InDelta(t, expectedSpreadBps, opp.SpreadBps, 1e-9)
}

func TestDetector_RejectsSpreadBelowThreshold(t *testing.T) {
	d, registry, _, queue := newTestDetector(t, 50.0, 0)
	now := time.Now()

	longID := registry.GetOrInsert("bybit", "BTCUSDT")
	shortID := registry.GetOrInsert("binance", "BTCUSDT")

	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: longID, Bid: 99.9, Ask: 100.0, TimestampUs: uint64(now.UnixMicro())}, now)
	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: shortID, Bid: 100.01, Ask: 100.1, TimestampUs: uint64(now.UnixMicro())}, now)

	assert.Equal(t, 0, queue.Len())
}

func TestDetector_RejectsStaleQuote(t *testing.T) {
	registry := NewSymbolRegistry()
	store := NewMarketDataStore(16)
	queue := NewOpportunityQueue(16)
	d := NewDetector(registry, store, queue, nil, nil,
		DepthThresholds{MaxLatencyMicros: 1_000_000, MinFundingDelta: -1},
		1.0, 0, 2*time.Second, nil)

	now := time.Now()
	stale := now.Add(-10 * time.Second)

	longID := registry.GetOrInsert("bybit", "BTCUSDT")
	shortID := registry.GetOrInsert("binance", "BTCUSDT")

	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: longID, Bid: 99.9, Ask: 100.0, TimestampUs: uint64(stale.UnixMicro())}, now)
	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: shortID, Bid: 110.0, Ask: 110.1, TimestampUs: uint64(now.UnixMicro())}, now)

	assert.Equal(t, 0, queue.Len(), "a stale long-side quote must not be paired into an opportunity")
}

func TestDetector_DropsInvalidQuoteWithoutPanicking(t *testing.T) {
	d, registry, _, queue := newTestDetector(t, 1.0, 0)
	now := time.Now()
	id := registry.GetOrInsert("bybit", "BTCUSDT")

	assert.NotPanics(t, func() {
		d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: id, Bid: 10, Ask: 5, TimestampUs: uint64(now.UnixMicro())}, now)
	})
	assert.Equal(t, 0, queue.Len())
}

func TestDetector_HardConstraintGateBlocksOnInsufficientDepth(t *testing.T) {
	registry := NewSymbolRegistry()
	store := NewMarketDataStore(16)
	queue := NewOpportunityQueue(16)
	backend := common.NewSimulatedBackend(true)
	backend.SetDepth("bybit", "BTCUSDT", 10)
	backend.SetDepth("binance", "BTCUSDT", 10)

	d := NewDetector(registry, store, queue, backend, nil,
		DepthThresholds{MinDepthUSD: 1_000_000, MaxLatencyMicros: 1_000_000, MinFundingDelta: -1},
		1.0, 0, 0, nil)

	now := time.Now()
	longID := registry.GetOrInsert("bybit", "BTCUSDT")
	shortID := registry.GetOrInsert("binance", "BTCUSDT")

	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: longID, Bid: 99.9, Ask: 100.0, TimestampUs: uint64(now.UnixMicro())}, now)
	d.ProcessUpdate(context.Background(), MarketUpdate{SymbolID: shortID, Bid: 110.0, Ask: 110.1, TimestampUs: uint64(now.UnixMicro())}, now)

	assert.Equal(t, 0, queue.Len(), "insufficient order book depth must block opportunity emission")
}
