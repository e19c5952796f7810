package arbitrage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketDataStore_UpdateAndRead(t *testing.T) {
	s := NewMarketDataStore(8)

	ok := s.Update(3, 100.0, 100.5, 12345)
	require.True(t, ok)

	q, ok := s.GetQuote(3)
	require.True(t, ok)
	assert.InDelta(t, 100.0, q.Bid, 1e-9)
	assert.InDelta(t, 100.5, q.Ask, 1e-9)
	assert.Equal(t, uint64(12345), q.TimestampUs)
}

func TestMarketDataStore_AbsentSlotReturnsNotOK(t *testing.T) {
	s := NewMarketDataStore(8)
	_, ok := s.GetQuote(5)
	assert.False(t, ok)
}

func TestMarketDataStore_OutOfRangeSymbolIgnored(t *testing.T) {
	s := NewMarketDataStore(4)
	ok := s.Update(100, 1, 2, 0)
	assert.False(t, ok)
}

func TestMarketDataStore_InvalidBidAskRejected(t *testing.T) {
	s := NewMarketDataStore(4)

	assert.False(t, s.Update(0, -1, 10, 0), "negative bid must be rejected")
	assert.False(t, s.Update(0, 10, 5, 0), "bid greater than ask must be rejected")
	assert.False(t, s.Update(0, 0, 10, 0), "zero bid must be rejected")

	_, ok := s.GetQuote(0)
	assert.False(t, ok, "rejected updates must not publish a slot")
}

func TestMarketDataStore_ConcurrentReadersNeverSeeTornValue(t *testing.T) {
	s := NewMarketDataStore(1)
	s.Update(0, 1, 2, 1)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		bid := 1.0
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			bid++
			s.Update(0, bid, bid+1, uint64(i))
		}
	}()

	for i := 0; i < 1000; i++ {
		q, ok := s.GetQuote(0)
		if ok {
			assert.LessOrEqual(t, q.Bid, q.Ask, "a consistent read must never observe bid > ask")
		}
	}
	close(stop)
	wg.Wait()
}

func TestMarketDataStore_IterSpreadsComputesBidAskSpread(t *testing.T) {
	s := NewMarketDataStore(4)
	s.Update(0, 100, 101, 1) // 100bps-ish spread
	s.Update(2, 50, 50.05, 1)

	spreads := s.IterSpreads(1)
	require.Len(t, spreads, 2)

	byID := map[uint32]float64{}
	for _, sp := range spreads {
		byID[sp.SymbolID] = sp.SpreadBps
	}
	assert.InDelta(t, (101.0-100.0)/101.0*10000, byID[0], 1e-6)
	assert.InDelta(t, (50.05-50.0)/50.05*10000, byID[2], 1e-6)
}

func TestMarketDataStore_Capacity(t *testing.T) {
	s := NewMarketDataStore(16)
	assert.Equal(t, 16, s.Capacity())

	s2 := NewMarketDataStore(0)
	assert.Equal(t, MaxSymbols, s2.Capacity())
}
