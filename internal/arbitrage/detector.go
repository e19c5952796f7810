package arbitrage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/arbitrage-core/internal/exchanges/common"
	"github.com/ai-agentic-browser/arbitrage-core/pkg/observability"
)

// FundingProvider supplies the funding-rate delta between two venues
// for a symbol. Implementations typically read it from a funding-rate
// cache refreshed out of band.
type FundingProvider interface {
	FundingDelta8h(longVenue, shortVenue, symbol string) float64
}

// DepthThresholds configures the hard-constraint gates the Detector
// evaluates before emitting an opportunity.
type DepthThresholds struct {
	MinDepthUSD      float64
	MaxLatencyMicros int64
	MinFundingDelta  float64
}

// Detector consumes Market Pipeline updates, writes the Market Data
// Store, computes cross-venue spreads, applies hard constraints and a
// composite confidence score, and offers passing candidates to the
// Opportunity Queue.
type Detector struct {
	registry *SymbolRegistry
	store    *MarketDataStore
	queue    *OpportunityQueue
	backend  common.ExecutionBackend
	funding  FundingProvider

	thresholds         DepthThresholds
	minSpreadBps       float64
	minConfidenceScore int
	quoteStaleness     time.Duration

	logger *observability.Logger
}

// NewDetector wires the Detector's collaborators. backend and funding
// may be nil; a nil backend treats depth/latency constraints as always
// satisfied, and a nil funding provider treats funding delta as always
// substantial — both exist to keep the Detector independently testable
// against just the Market Pipeline and Market Data Store.
func NewDetector(
	registry *SymbolRegistry,
	store *MarketDataStore,
	queue *OpportunityQueue,
	backend common.ExecutionBackend,
	funding FundingProvider,
	thresholds DepthThresholds,
	minSpreadBps float64,
	minConfidenceScore int,
	quoteStaleness time.Duration,
	logger *observability.Logger,
) *Detector {
	return &Detector{
		registry:           registry,
		store:              store,
		queue:              queue,
		backend:            backend,
		funding:            funding,
		thresholds:         thresholds,
		minSpreadBps:       minSpreadBps,
		minConfidenceScore: minConfidenceScore,
		quoteStaleness:     quoteStaleness,
		logger:             logger,
	}
}

// Run drains the pipeline until it is closed, processing each update
// in turn. This is the detector's hot path and must not block or
// allocate beyond what a single ProcessUpdate call does.
func (d *Detector) Run(ctx context.Context, pipeline *MarketPipeline) {
	for {
		update, ok := pipeline.Consume()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.ProcessUpdate(ctx, update, time.Now())
	}
}

// ProcessUpdate runs the refresh-evaluate-gate-score-emit pipeline for
// a single MarketUpdate. now is threaded through explicitly so
// staleness checks are deterministic under test.
func (d *Detector) ProcessUpdate(ctx context.Context, update MarketUpdate, now time.Time) {
	if update.Ask <= 0 {
		return
	}
	if !d.store.Update(update.SymbolID, update.Bid, update.Ask, update.TimestampUs) {
		if d.logger != nil {
			d.logger.Warn(ctx, "invariant violation: dropping market update", map[string]interface{}{
				"symbol_id": update.SymbolID, "bid": update.Bid, "ask": update.Ask,
			})
		}
		return
	}

	key, ok := d.registry.Get(update.SymbolID)
	if !ok {
		return
	}

	peers := d.registry.VenueIDsForSymbol(key.Symbol)
	for _, longID := range peers {
		longKey, _ := d.registry.Get(longID)
		longQuote, ok := d.store.GetQuote(longID)
		if !ok || longQuote.Ask <= 0 {
			continue
		}
		if d.isStale(longQuote.TimestampUs, now) {
			continue
		}

		for _, shortID := range peers {
			if shortID == longID {
				continue
			}
			shortKey, _ := d.registry.Get(shortID)
			shortQuote, ok := d.store.GetQuote(shortID)
			if !ok || shortQuote.Bid <= 0 {
				continue
			}
			if d.isStale(shortQuote.TimestampUs, now) {
				continue
			}

			d.evaluatePair(ctx, key.Symbol, longKey.Venue, shortKey.Venue, longQuote, shortQuote, now)
		}
	}
}

func (d *Detector) isStale(tsUs uint64, now time.Time) bool {
	if d.quoteStaleness <= 0 {
		return false
	}
	age := now.Sub(time.UnixMicro(int64(tsUs)))
	return age > d.quoteStaleness
}

// evaluatePair computes the spread for one directed (long, short) venue
// pair and, if it clears hard constraints and the confidence floor,
// emits an ArbitrageOpportunity.
func (d *Detector) evaluatePair(ctx context.Context, symbol, longVenue, shortVenue string, long, short Quote, now time.Time) {
	spreadBps := (short.Bid - long.Ask) / long.Ask * 10000
	if spreadBps < d.minSpreadBps {
		return
	}

	depthLong := d.orderBookDepth(ctx, longVenue, symbol)
	depthShort := d.orderBookDepth(ctx, shortVenue, symbol)
	latencyOK := d.exchangeLatencyOK(longVenue) && d.exchangeLatencyOK(shortVenue)
	fundingDelta := d.fundingDelta8h(longVenue, shortVenue, symbol)

	constraints := HardConstraints{
		OrderBookDepthSufficient: depthLong >= d.thresholds.MinDepthUSD && depthShort >= d.thresholds.MinDepthUSD,
		ExchangeLatencyOK:        latencyOK,
		FundingDeltaSubstantial:  fundingDelta >= d.thresholds.MinFundingDelta,
	}
	if !constraints.Passed() {
		return
	}

	metrics := ConfluenceMetrics{
		FundingDelta:    fundingDelta,
		HardConstraints: constraints,
	}
	score := compositeConfidenceScore(spreadBps, metrics)
	if score < d.minConfidenceScore {
		return
	}

	longPrice := decimal.NewFromFloat(long.Ask)
	shortPrice := decimal.NewFromFloat(short.Bid)
	spread := shortPrice.Sub(longPrice)

	opp := ArbitrageOpportunity{
		Symbol:                       symbol,
		LongExchange:                 longVenue,
		ShortExchange:                shortVenue,
		LongPrice:                    longPrice,
		ShortPrice:                   shortPrice,
		SpreadBps:                    spreadBps,
		FundingDelta8h:               fundingDelta,
		ConfidenceScore:              score,
		ProjectedProfitUSD:           spread,
		ProjectedProfitAfterSlippage: spread,
		Metrics:                      metrics,
		OrderBookDepthLong:           depthLong,
		OrderBookDepthShort:          depthShort,
		Timestamp:                    now,
	}
	d.queue.Push(opp)
}

func (d *Detector) orderBookDepth(ctx context.Context, venue, symbol string) float64 {
	if d.backend == nil {
		return d.thresholds.MinDepthUSD
	}
	depth, err := d.backend.GetOrderBookDepth(ctx, venue, symbol, 10)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn(ctx, "order book depth lookup failed", map[string]interface{}{
				"venue": venue, "symbol": symbol, "error": err.Error(),
			})
		}
		return 0
	}
	return depth
}

func (d *Detector) exchangeLatencyOK(venue string) bool {
	if d.backend == nil {
		return true
	}
	stats := d.backend.GetLatencyStats(venue)
	if stats == nil {
		return true
	}
	return stats.P99LatencyMicros <= d.thresholds.MaxLatencyMicros
}

func (d *Detector) fundingDelta8h(longVenue, shortVenue, symbol string) float64 {
	if d.funding == nil {
		return d.thresholds.MinFundingDelta
	}
	return d.funding.FundingDelta8h(longVenue, shortVenue, symbol)
}

// compositeConfidenceScore combines spread magnitude and soft
// confluence signals into a 0..100 score. The exact weighting is a
// policy knob deliberately left open by the upstream scoring function;
// this implementation rewards wider spreads and substantial funding
// delta, capped at 100.
func compositeConfidenceScore(spreadBps float64, metrics ConfluenceMetrics) int {
	score := spreadBps * 8
	if metrics.FundingDelta > 0 {
		score += metrics.FundingDelta * 100
	}
	if metrics.ATRTrend {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return int(score)
}
