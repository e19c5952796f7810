package trading

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-agentic-browser/arbitrage-core/internal/arbitrage"
	"github.com/ai-agentic-browser/arbitrage-core/internal/config"
	"github.com/ai-agentic-browser/arbitrage-core/internal/exchanges/common"
	"github.com/ai-agentic-browser/arbitrage-core/pkg/observability"
)

func testOpportunity() arbitrage.ArbitrageOpportunity {
	return arbitrage.ArbitrageOpportunity{
		Symbol:        "BTCUSDT",
		LongExchange:  "bybit",
		ShortExchange: "binance",
		LongPrice:     decimal.NewFromInt(100),
		ShortPrice:    decimal.NewFromInt(101),
	}
}

func newTestEngine(backend common.ExecutionBackend) *ExecutionEngine {
	logger := observability.NewLogger(config.ObservabilityConfig{LogLevel: "error", LogFormat: "json", ServiceName: "test"})
	guard := arbitrage.NewRaceGuard()
	return NewExecutionEngine(backend, guard, logger, 200*time.Millisecond, 5*time.Millisecond)
}

func TestExecuteAtomicEntry_BothLegsFill(t *testing.T) {
	arbitrage.ResumeTrading()
	defer arbitrage.ResumeTrading()

	backend := common.NewSimulatedBackend(true) // autofill
	engine := newTestEngine(backend)

	result, err := engine.ExecuteAtomicEntry(context.Background(), testOpportunity(), decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeBothFilled, result.Outcome)
	assert.NotNil(t, result.LongOrder)
	assert.NotNil(t, result.ShortOrder)
}

func TestExecuteAtomicEntry_HaltedTradingShortCircuits(t *testing.T) {
	arbitrage.ResumeTrading()
	defer arbitrage.ResumeTrading()
	arbitrage.HaltTrading("test halt")

	backend := common.NewSimulatedBackend(true)
	engine := newTestEngine(backend)

	result, err := engine.ExecuteAtomicEntry(context.Background(), testOpportunity(), decimal.NewFromFloat(0.1))
	require.Error(t, err)
	assert.Equal(t, OutcomeHalted, result.Outcome)
}

func TestExecuteAtomicEntry_LockContentionWhenHedgeHeld(t *testing.T) {
	arbitrage.ResumeTrading()
	defer arbitrage.ResumeTrading()

	backend := common.NewSimulatedBackend(true)
	guard := arbitrage.NewRaceGuard()
	logger := observability.NewLogger(config.ObservabilityConfig{LogLevel: "error", LogFormat: "json", ServiceName: "test"})
	engine := NewExecutionEngine(backend, guard, logger, 200*time.Millisecond, 5*time.Millisecond)

	token, err := guard.TryAcquireHedgeLock("BTCUSDT")
	require.NoError(t, err)
	defer token.Release()

	result, err := engine.ExecuteAtomicEntry(context.Background(), testOpportunity(), decimal.NewFromFloat(0.1))
	require.Error(t, err)
	assert.Equal(t, OutcomeLockContention, result.Outcome)
}

func TestExecuteAtomicEntry_NoFillWithinDeadlineCancelsBoth(t *testing.T) {
	arbitrage.ResumeTrading()
	defer arbitrage.ResumeTrading()

	backend := common.NewSimulatedBackend(false) // orders stay NEW, never fill
	engine := newTestEngine(backend)

	result, err := engine.ExecuteAtomicEntry(context.Background(), testOpportunity(), decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoFill, result.Outcome)
}

// delayedFillBackend fills only the long leg, simulating an
// asymmetric partial fill that must trigger hedge recovery.
type delayedFillBackend struct {
	*common.SimulatedBackend
	fillOnlyVenue string
}

func newDelayedFillBackend(fillOnlyVenue string) *delayedFillBackend {
	return &delayedFillBackend{SimulatedBackend: common.NewSimulatedBackend(false), fillOnlyVenue: fillOnlyVenue}
}

func (b *delayedFillBackend) PlaceOrder(ctx context.Context, order *common.SimulatedOrder) (*common.SimulatedOrder, error) {
	placed, err := b.SimulatedBackend.PlaceOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	if order.Venue == b.fillOnlyVenue {
		b.MarkFilled(placed.ID, placed.Price)
		placed.Status = common.OrderStatusFilled
	}
	return placed, nil
}

func TestExecuteAtomicEntry_AsymmetricFillTriggersHedgeRecovery(t *testing.T) {
	arbitrage.ResumeTrading()
	defer arbitrage.ResumeTrading()

	backend := newDelayedFillBackend("bybit") // only the long leg fills
	engine := newTestEngine(backend)

	result, err := engine.ExecuteAtomicEntry(context.Background(), testOpportunity(), decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeHedgeRecovered, result.Outcome)
	assert.NotNil(t, result.LongOrder)
	assert.NotNil(t, result.ShortOrder)
	assert.Equal(t, common.OrderTypeMarket, result.ShortOrder.Type, "hedge recovery leg must be a market order")
}

// failingCancelBackend always fails to cancel, forcing the emergency-close path.
type failingCancelBackend struct {
	*common.SimulatedBackend
	fillOnlyVenue   string
	failCloseOrders bool
}

func (b *failingCancelBackend) PlaceOrder(ctx context.Context, order *common.SimulatedOrder) (*common.SimulatedOrder, error) {
	if b.failCloseOrders && order.Type == common.OrderTypeMarket {
		return nil, assertionError("simulated emergency close failure")
	}
	placed, err := b.SimulatedBackend.PlaceOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	if order.Venue == b.fillOnlyVenue {
		b.MarkFilled(placed.ID, placed.Price)
		placed.Status = common.OrderStatusFilled
	}
	return placed, nil
}

func (b *failingCancelBackend) CancelOrder(ctx context.Context, venue, orderID string) (common.CancelResult, error) {
	return common.CancelResultFailed, assertionError("simulated cancel failure")
}

type assertionError string

func (e assertionError) Error() string { return string(e) }

func TestExecuteAtomicEntry_EmergencyCloseFailureHaltsTrading(t *testing.T) {
	arbitrage.ResumeTrading()
	defer arbitrage.ResumeTrading()

	backend := &failingCancelBackend{
		SimulatedBackend: common.NewSimulatedBackend(false),
		fillOnlyVenue:    "bybit",
		failCloseOrders:  true,
	}
	engine := newTestEngine(backend)

	result, err := engine.ExecuteAtomicEntry(context.Background(), testOpportunity(), decimal.NewFromFloat(0.1))
	require.Error(t, err)
	assert.Equal(t, OutcomeFatalHalt, result.Outcome)
	assert.True(t, arbitrage.IsTradingHalted(), "a failed emergency close must halt trading process-wide")
}

func TestExecuteAtomicEntry_EmergencyCloseSucceedsRecoversWithoutHalt(t *testing.T) {
	arbitrage.ResumeTrading()
	defer arbitrage.ResumeTrading()

	backend := &failingCancelBackend{
		SimulatedBackend: common.NewSimulatedBackend(false),
		fillOnlyVenue:    "bybit",
		failCloseOrders:  false, // cancel still fails, but emergency close (a PlaceOrder) succeeds
	}
	engine := newTestEngine(backend)

	result, err := engine.ExecuteAtomicEntry(context.Background(), testOpportunity(), decimal.NewFromFloat(0.1))
	require.Error(t, err, "the original cause of the escalation is still surfaced")
	assert.Equal(t, OutcomeEmergencyClosed, result.Outcome, "a successful emergency close is a degraded recovery, distinct from a clean hedge")
	assert.False(t, arbitrage.IsTradingHalted())
}
