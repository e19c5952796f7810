package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opp(symbol, long, short string, profit float64) ArbitrageOpportunity {
	return ArbitrageOpportunity{
		Symbol:                       symbol,
		LongExchange:                 long,
		ShortExchange:                short,
		ProjectedProfitAfterSlippage: decimal.NewFromFloat(profit),
	}
}

func TestOpportunityQueue_PopBestReturnsHighestProfit(t *testing.T) {
	q := NewOpportunityQueue(8)
	q.Push(opp("BTCUSDT", "bybit", "binance", 10))
	q.Push(opp("ETHUSDT", "bybit", "okx", 50))
	q.Push(opp("SOLUSDT", "binance", "okx", 30))

	best, ok := q.PopBest()
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT", best.Symbol)

	assert.Equal(t, 2, q.Len())
}

func TestOpportunityQueue_CoalescesOnKey(t *testing.T) {
	q := NewOpportunityQueue(8)
	q.Push(opp("BTCUSDT", "bybit", "binance", 10))
	q.Push(opp("BTCUSDT", "bybit", "binance", 99))

	assert.Equal(t, 1, q.Len(), "pushing the same (symbol,long,short) key must replace, not append")

	best, ok := q.PopBest()
	require.True(t, ok)
	assert.True(t, best.ProjectedProfitAfterSlippage.Equal(decimal.NewFromFloat(99)))
}

func TestOpportunityQueue_EvictsLowestScoringWhenFull(t *testing.T) {
	q := NewOpportunityQueue(2)
	q.Push(opp("A", "bybit", "binance", 5))
	q.Push(opp("B", "bybit", "binance", 10))
	q.Push(opp("C", "bybit", "binance", 20)) // should evict A (lowest)

	assert.Equal(t, 2, q.Len())

	seen := map[string]bool{}
	for {
		o, ok := q.PopBest()
		if !ok {
			break
		}
		seen[o.Symbol] = true
	}
	assert.False(t, seen["A"], "lowest scoring entry should have been evicted")
	assert.True(t, seen["B"])
	assert.True(t, seen["C"])
}

func TestOpportunityQueue_EvictStaleRemovesOldEntries(t *testing.T) {
	q := NewOpportunityQueue(8)
	q.Push(opp("A", "bybit", "binance", 5))

	evicted := q.EvictStale(time.Now().Add(10*time.Second), 5*time.Second)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, q.Len())
}

func TestOpportunityQueue_PopBestOnEmptyReturnsFalse(t *testing.T) {
	q := NewOpportunityQueue(8)
	_, ok := q.PopBest()
	assert.False(t, ok)
}
