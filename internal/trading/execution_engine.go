// Package trading implements the Atomic Execution Protocol: the
// paired-leg order submission and hedge-recovery algorithm at the
// apex of the arbitrage core.
package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/arbitrage-core/internal/arbitrage"
	"github.com/ai-agentic-browser/arbitrage-core/internal/exchanges/common"
	"github.com/ai-agentic-browser/arbitrage-core/pkg/observability"
)

// HedgeTimingMetrics records the timestamps the protocol threads
// through a paired entry, including any hedge recovery. Zero values
// mean that stage was never reached.
type HedgeTimingMetrics struct {
	SubmittedLongAt        time.Time
	SubmittedShortAt       time.Time
	FillDetectedAt         time.Time
	CancelInitiatedAt      time.Time
	CancelCompletedAt      time.Time
	MarketOrderInitiatedAt time.Time
	MarketOrderAcceptedAt  time.Time
	MarketOrderFilledAt    time.Time
}

// OtherLegCheckLatency is the time between submitting the legs and
// detecting that only one filled.
func (m HedgeTimingMetrics) OtherLegCheckLatency() time.Duration {
	if m.FillDetectedAt.IsZero() {
		return 0
	}
	return m.FillDetectedAt.Sub(m.SubmittedLongAt)
}

// CancelLatency is the time spent cancelling the unfilled leg.
func (m HedgeTimingMetrics) CancelLatency() time.Duration {
	if m.CancelCompletedAt.IsZero() {
		return 0
	}
	return m.CancelCompletedAt.Sub(m.CancelInitiatedAt)
}

// MarketOrderLatency is the time spent placing the hedge market order.
func (m HedgeTimingMetrics) MarketOrderLatency() time.Duration {
	if m.MarketOrderFilledAt.IsZero() {
		return 0
	}
	return m.MarketOrderFilledAt.Sub(m.MarketOrderInitiatedAt)
}

// Outcome classifies how ExecuteAtomicEntry resolved.
type Outcome int

const (
	OutcomeBothFilled Outcome = iota
	OutcomeHedgeRecovered
	OutcomeNoFill
	OutcomeHalted
	OutcomeLockContention
	OutcomeFatalHalt
	OutcomeEmergencyClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBothFilled:
		return "both_filled"
	case OutcomeHedgeRecovered:
		return "hedge_recovered"
	case OutcomeNoFill:
		return "no_fill"
	case OutcomeHalted:
		return "halted"
	case OutcomeLockContention:
		return "lock_contention"
	case OutcomeFatalHalt:
		return "fatal_halt"
	case OutcomeEmergencyClosed:
		return "emergency_closed"
	default:
		return "unknown"
	}
}

// ExecutionResult is the return value of ExecuteAtomicEntry.
type ExecutionResult struct {
	Outcome    Outcome
	LongOrder  *common.SimulatedOrder
	ShortOrder *common.SimulatedOrder
	Metrics    HedgeTimingMetrics
}

// ExecutionEngine owns the collaborators the Atomic Execution Protocol
// needs: the external order-routing backend, the per-symbol hedge
// lock, and a logger.
type ExecutionEngine struct {
	backend      common.ExecutionBackend
	guard        *arbitrage.RaceGuard
	logger       *observability.Logger
	hedgeLog     *arbitrage.HedgeLogger
	pollDeadline time.Duration
	pollInterval time.Duration
}

// NewExecutionEngine wires an ExecutionEngine. pollDeadline/pollInterval
// correspond to the tight deadline and poll cadence of the hedge-fill
// wait step.
func NewExecutionEngine(backend common.ExecutionBackend, guard *arbitrage.RaceGuard, logger *observability.Logger, pollDeadline, pollInterval time.Duration) *ExecutionEngine {
	return &ExecutionEngine{
		backend:      backend,
		guard:        guard,
		logger:       logger,
		hedgeLog:     arbitrage.NewHedgeLogger(logger),
		pollDeadline: pollDeadline,
		pollInterval: pollInterval,
	}
}

// ExecuteAtomicEntry runs the six-step protocol against a chosen
// opportunity: halt check, hedge lock acquisition, paired submission,
// deadline-bound polling, hedge recovery on asymmetric
// fill, and metric finalization.
func (e *ExecutionEngine) ExecuteAtomicEntry(ctx context.Context, opp arbitrage.ArbitrageOpportunity, quantity decimal.Decimal) (*ExecutionResult, error) {
	// Step 1: halt check.
	if arbitrage.IsTradingHalted() {
		return &ExecutionResult{Outcome: OutcomeHalted}, fmt.Errorf("trading halted: %s", arbitrage.HaltReason())
	}

	// Step 2: acquire hedge lock.
	token, err := e.guard.TryAcquireHedgeLock(opp.Symbol)
	if err != nil {
		return &ExecutionResult{Outcome: OutcomeLockContention}, err
	}
	defer token.Release()

	// Step 3: submit both legs.
	longOrder := &common.SimulatedOrder{
		ID: uuid.New().String(), Venue: opp.LongExchange, Symbol: opp.Symbol,
		Side: common.OrderSideBuy, Type: common.OrderTypeLimit, Quantity: quantity, Price: opp.LongPrice,
	}
	shortOrder := &common.SimulatedOrder{
		ID: uuid.New().String(), Venue: opp.ShortExchange, Symbol: opp.Symbol,
		Side: common.OrderSideSell, Type: common.OrderTypeLimit, Quantity: quantity, Price: opp.ShortPrice,
	}

	var metrics HedgeTimingMetrics

	placedLong, err := e.backend.PlaceOrder(ctx, longOrder)
	metrics.SubmittedLongAt = time.Now()
	if err != nil {
		e.logger.Error(ctx, "long leg submission failed", err, map[string]interface{}{"symbol": opp.Symbol, "venue": opp.LongExchange})
		return &ExecutionResult{Outcome: OutcomeNoFill, Metrics: metrics}, fmt.Errorf("submit long leg: %w", err)
	}

	placedShort, err := e.backend.PlaceOrder(ctx, shortOrder)
	metrics.SubmittedShortAt = time.Now()
	if err != nil {
		e.logger.Error(ctx, "short leg submission failed", err, map[string]interface{}{"symbol": opp.Symbol, "venue": opp.ShortExchange})
		if _, cancelErr := e.backend.CancelOrder(ctx, opp.LongExchange, placedLong.ID); cancelErr != nil {
			e.logger.Warn(ctx, "failed to unwind long leg after short submission failure", map[string]interface{}{"symbol": opp.Symbol, "error": cancelErr.Error()})
		}
		return &ExecutionResult{Outcome: OutcomeNoFill, LongOrder: placedLong, Metrics: metrics}, fmt.Errorf("submit short leg: %w", err)
	}

	// Step 4: poll both legs with a tight deadline.
	deadline := time.Now().Add(e.pollDeadline)
	for time.Now().Before(deadline) {
		longStatus, _ := e.backend.GetOrderStatus(ctx, opp.LongExchange, placedLong.ID)
		shortStatus, _ := e.backend.GetOrderStatus(ctx, opp.ShortExchange, placedShort.ID)

		longFilled := longStatus != nil && longStatus.Status == common.OrderStatusFilled
		shortFilled := shortStatus != nil && shortStatus.Status == common.OrderStatusFilled

		if longFilled && shortFilled {
			e.logger.Info(ctx, "paired entry filled symmetrically", map[string]interface{}{"symbol": opp.Symbol})
			return &ExecutionResult{Outcome: OutcomeBothFilled, LongOrder: longStatus, ShortOrder: shortStatus, Metrics: metrics}, nil
		}
		if longFilled != shortFilled {
			metrics.FillDetectedAt = time.Now()
			if longFilled {
				return e.hedgeRecovery(ctx, opp, metrics, longStatus, opp.ShortExchange, placedShort.ID, common.OrderSideSell)
			}
			return e.hedgeRecovery(ctx, opp, metrics, shortStatus, opp.LongExchange, placedLong.ID, common.OrderSideBuy)
		}

		time.Sleep(e.pollInterval)
	}

	// Neither leg filled within the deadline: cancel both, no-fill outcome.
	if _, err := e.backend.CancelOrder(ctx, opp.LongExchange, placedLong.ID); err != nil {
		e.logger.Warn(ctx, "cancel of unfilled long leg failed", map[string]interface{}{"symbol": opp.Symbol, "error": err.Error()})
	}
	if _, err := e.backend.CancelOrder(ctx, opp.ShortExchange, placedShort.ID); err != nil {
		e.logger.Warn(ctx, "cancel of unfilled short leg failed", map[string]interface{}{"symbol": opp.Symbol, "error": err.Error()})
	}
	return &ExecutionResult{Outcome: OutcomeNoFill, Metrics: metrics}, nil
}

// hedgeRecovery handles an asymmetric fill: the filled leg stands, the
// other leg is cancelled; a Cancelled result hedges the filled
// position with a market order, an AlreadyFilled result means both
// legs actually filled (a race the poll loop missed), and a Failed
// result escalates to an emergency close and, on further failure, a
// trading halt.
func (e *ExecutionEngine) hedgeRecovery(
	ctx context.Context,
	opp arbitrage.ArbitrageOpportunity,
	metrics HedgeTimingMetrics,
	filledLeg *common.SimulatedOrder,
	otherVenue, otherOrderID string,
	otherSideToHedge common.OrderSide,
) (*ExecutionResult, error) {
	e.hedgeLog.LogRaceDetected(ctx, opp.Symbol, filledLeg.Venue, otherVenue)

	metrics.CancelInitiatedAt = time.Now()
	result, err := e.backend.CancelOrder(ctx, otherVenue, otherOrderID)
	metrics.CancelCompletedAt = time.Now()
	if err != nil {
		result = common.CancelResultFailed
	}

	switch result {
	case common.CancelResultCancelled:
		metrics.MarketOrderInitiatedAt = time.Now()
		hedgeOrder := &common.SimulatedOrder{
			ID: uuid.New().String(), Venue: otherVenue, Symbol: opp.Symbol,
			Side: otherSideToHedge, Type: common.OrderTypeMarket, Quantity: filledLeg.Quantity,
		}
		placed, err := e.backend.PlaceOrder(ctx, hedgeOrder)
		metrics.MarketOrderAcceptedAt = time.Now()
		if err != nil {
			return e.escalateToHalt(ctx, opp, metrics, filledLeg, fmt.Errorf("hedge market order failed: %w", err))
		}
		metrics.MarketOrderFilledAt = time.Now()
		e.hedgeLog.LogHedgePlaced(ctx, opp.Symbol, otherVenue, placed.ID, metrics.MarketOrderFilledAt.Sub(metrics.FillDetectedAt).Microseconds())
		return &ExecutionResult{Outcome: OutcomeHedgeRecovered, LongOrder: filledLeg, ShortOrder: placed, Metrics: metrics}, nil

	case common.CancelResultAlreadyFilled:
		e.logger.Info(ctx, "race: other leg filled before cancel landed, both legs filled", map[string]interface{}{"symbol": opp.Symbol})
		return &ExecutionResult{Outcome: OutcomeBothFilled, Metrics: metrics}, nil

	default: // CancelResultFailed
		return e.escalateToHalt(ctx, opp, metrics, filledLeg, fmt.Errorf("cancel of other leg failed for %s", opp.Symbol))
	}
}

// escalateToHalt attempts an emergency close of the filled leg — a
// market order on its own venue in the opposite direction, flattening
// the position — and if that also fails, halts trading process-wide
// and surfaces a fatal outcome.
func (e *ExecutionEngine) escalateToHalt(ctx context.Context, opp arbitrage.ArbitrageOpportunity, metrics HedgeTimingMetrics, filledLeg *common.SimulatedOrder, cause error) (*ExecutionResult, error) {
	e.logger.Error(ctx, "partial-fill hazard, attempting emergency close", cause, map[string]interface{}{"symbol": opp.Symbol})

	closeSide := common.OrderSideSell
	if filledLeg.Side == common.OrderSideSell {
		closeSide = common.OrderSideBuy
	}
	emergencyOrder := &common.SimulatedOrder{
		ID: uuid.New().String(), Venue: filledLeg.Venue, Symbol: opp.Symbol,
		Side: closeSide, Type: common.OrderTypeMarket, Quantity: filledLeg.Quantity,
	}

	if _, err := e.backend.PlaceOrder(ctx, emergencyOrder); err != nil {
		reason := fmt.Sprintf("emergency close failed for %s: %v (cause: %v)", opp.Symbol, err, cause)
		arbitrage.HaltTrading(reason)
		e.hedgeLog.LogHalt(ctx, opp.Symbol, reason)
		return &ExecutionResult{Outcome: OutcomeFatalHalt, Metrics: metrics}, fmt.Errorf("%s: %w", reason, err)
	}

	// The position is flat again, but only because the original hedge
	// attempt failed; OutcomeEmergencyClosed keeps that distinct from
	// OutcomeHedgeRecovered's paired-position outcome, and the causing
	// error is still surfaced since the caller needs to know recovery
	// took the degraded path.
	return &ExecutionResult{Outcome: OutcomeEmergencyClosed, LongOrder: filledLeg, Metrics: metrics}, cause
}
