package common

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedBackend_AutoFillPlacesFilledOrder(t *testing.T) {
	b := NewSimulatedBackend(true)
	order := &SimulatedOrder{ID: "1", Venue: "bybit", Symbol: "BTCUSDT", Side: OrderSideBuy, Type: OrderTypeLimit, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)}

	placed, err := b.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, placed.Status)
	assert.True(t, placed.FilledQuantity.Equal(decimal.NewFromInt(1)))
}

func TestSimulatedBackend_NoAutoFillStaysNew(t *testing.T) {
	b := NewSimulatedBackend(false)
	order := &SimulatedOrder{ID: "2", Venue: "bybit", Symbol: "BTCUSDT", Quantity: decimal.NewFromInt(1)}

	placed, err := b.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusNew, placed.Status)
}

func TestSimulatedBackend_CancelAlreadyFilledReportsAlreadyFilled(t *testing.T) {
	b := NewSimulatedBackend(true)
	order := &SimulatedOrder{ID: "3", Venue: "bybit", Symbol: "BTCUSDT", Quantity: decimal.NewFromInt(1)}
	_, err := b.PlaceOrder(context.Background(), order)
	require.NoError(t, err)

	result, err := b.CancelOrder(context.Background(), "bybit", "3")
	require.NoError(t, err)
	assert.Equal(t, CancelResultAlreadyFilled, result)
}

func TestSimulatedBackend_CancelUnfilledSucceeds(t *testing.T) {
	b := NewSimulatedBackend(false)
	order := &SimulatedOrder{ID: "4", Venue: "bybit", Symbol: "BTCUSDT", Quantity: decimal.NewFromInt(1)}
	_, err := b.PlaceOrder(context.Background(), order)
	require.NoError(t, err)

	result, err := b.CancelOrder(context.Background(), "bybit", "4")
	require.NoError(t, err)
	assert.Equal(t, CancelResultCancelled, result)
}

func TestSimulatedBackend_CancelUnknownOrderFails(t *testing.T) {
	b := NewSimulatedBackend(true)
	_, err := b.CancelOrder(context.Background(), "bybit", "does-not-exist")
	assert.Error(t, err)
}

func TestSimulatedBackend_SeededBidAndDepth(t *testing.T) {
	b := NewSimulatedBackend(true)
	b.SetBestBid("bybit", "BTCUSDT", decimal.NewFromInt(100))
	b.SetDepth("bybit", "BTCUSDT", 500000)

	bid, err := b.GetBestBid(context.Background(), "bybit", "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, bid.Equal(decimal.NewFromInt(100)))

	depth, err := b.GetOrderBookDepth(context.Background(), "bybit", "BTCUSDT", 10)
	require.NoError(t, err)
	assert.Equal(t, 500000.0, depth)
}

func TestSingleExchangeBackend_RedirectsToPrimary(t *testing.T) {
	inner := NewSimulatedBackend(true)
	single := NewSingleExchangeBackend(inner, "bybit")

	order := &SimulatedOrder{ID: "5", Venue: "binance", Symbol: "BTCUSDT", Quantity: decimal.NewFromInt(1)}
	placed, err := single.PlaceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "bybit", placed.Venue, "SingleExchangeBackend must redirect every order to the primary exchange")

	inner.SetDepth("bybit", "BTCUSDT", 123)
	depth, err := single.GetOrderBookDepth(context.Background(), "okx", "BTCUSDT", 10)
	require.NoError(t, err)
	assert.Equal(t, 123.0, depth, "depth lookups must also be redirected to the primary exchange regardless of requested venue")
}
