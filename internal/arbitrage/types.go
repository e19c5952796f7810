package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"
)

// HardConstraints are the boolean pre-trade gates that must all be
// true before an opportunity is emitted.
type HardConstraints struct {
	OrderBookDepthSufficient bool
	ExchangeLatencyOK        bool
	FundingDeltaSubstantial  bool
}

// Passed reports whether every hard constraint holds.
func (h HardConstraints) Passed() bool {
	return h.OrderBookDepthSufficient && h.ExchangeLatencyOK && h.FundingDeltaSubstantial
}

// ConfluenceMetrics carries the soft quality signals that feed the
// composite confidence score.
type ConfluenceMetrics struct {
	FundingDelta               float64
	FundingDeltaProjected      float64
	OBIRatio                   float64
	OICurrent                  float64
	OI24hAvg                   float64
	VWAPDeviation              float64
	ATR                        float64
	ATRTrend                   bool
	LiquidationClusterDistance float64
	HardConstraints            HardConstraints
}

// ArbitrageOpportunity is a candidate cross-exchange trade surfaced by
// the Detector.
type ArbitrageOpportunity struct {
	Symbol                       string
	LongExchange                 string
	ShortExchange                string
	LongPrice                    decimal.Decimal
	ShortPrice                   decimal.Decimal
	SpreadBps                    float64
	FundingDelta8h               float64
	ConfidenceScore              int // 0..=100
	ProjectedProfitUSD           decimal.Decimal
	ProjectedProfitAfterSlippage decimal.Decimal
	Metrics                      ConfluenceMetrics
	OrderBookDepthLong           float64
	OrderBookDepthShort          float64
	Timestamp                    time.Time
}

// Key identifies the (symbol, long, short) triple the Opportunity
// Queue coalesces on.
func (o ArbitrageOpportunity) Key() OpportunityKey {
	return OpportunityKey{Symbol: o.Symbol, LongExchange: o.LongExchange, ShortExchange: o.ShortExchange}
}

// OpportunityKey is the coalescing/uniqueness key for the Opportunity Queue.
type OpportunityKey struct {
	Symbol        string
	LongExchange  string
	ShortExchange string
}
