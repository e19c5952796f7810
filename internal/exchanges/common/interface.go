// Package common defines the external contract the core consumes to
// reach concrete venues: a normalized execution backend abstracting
// away per-exchange REST/WebSocket clients, credential handling, and
// wire formats.
package common

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionBackend is the abstract capability set the Atomic Execution
// Protocol and Detector consume. All operations are fallible with
// structured errors; none of them are implemented here — concrete
// venue routing lives outside the core.
type ExecutionBackend interface {
	PlaceOrder(ctx context.Context, order *SimulatedOrder) (*SimulatedOrder, error)
	CancelOrder(ctx context.Context, venue, orderID string) (CancelResult, error)
	GetOrderStatus(ctx context.Context, venue, orderID string) (*SimulatedOrder, error)
	GetBestBid(ctx context.Context, venue, symbol string) (decimal.Decimal, error)
	GetOrderBookDepth(ctx context.Context, venue, symbol string, levels int) (float64, error)
	SyncServerTime(ctx context.Context) (time.Time, error)

	// GetLatencyStats exposes the backend's own instrumentation for
	// the Detector's exchange_latency_ok hard constraint.
	GetLatencyStats(venue string) *LatencyStats
}

// SimulatedOrder is the normalized order shape crossing the backend
// boundary.
type SimulatedOrder struct {
	ID             string          `json:"id"`
	Venue          string          `json:"venue"`
	Symbol         string          `json:"symbol"`
	Side           OrderSide       `json:"side"`
	Type           OrderType       `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price,omitempty"`
	Status         OrderStatus     `json:"status"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	AvgFillPrice   decimal.Decimal `json:"avg_fill_price"`
	TimestampMs    int64           `json:"timestamp_ms"`
}

// CancelResult is the outcome of a CancelOrder call, mirroring the
// three-way branch the Atomic Execution Protocol's Hedge Recovery step
// dispatches on.
type CancelResult int

const (
	CancelResultCancelled CancelResult = iota
	CancelResultAlreadyFilled
	CancelResultFailed
)

func (r CancelResult) String() string {
	switch r {
	case CancelResultCancelled:
		return "cancelled"
	case CancelResultAlreadyFilled:
		return "already_filled"
	case CancelResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PriceLevel is one (price, quantity) rung of an order book.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// LatencyStats mirrors the percentile snapshot shape the Latency
// Tracker produces, as seen by a backend's own instrumentation of its
// venue round-trips.
type LatencyStats struct {
	AvgLatencyMicros int64     `json:"avg_latency_micros"`
	MinLatencyMicros int64     `json:"min_latency_micros"`
	MaxLatencyMicros int64     `json:"max_latency_micros"`
	P50LatencyMicros int64     `json:"p50_latency_micros"`
	P95LatencyMicros int64     `json:"p95_latency_micros"`
	P99LatencyMicros int64     `json:"p99_latency_micros"`
	SampleCount      int64     `json:"sample_count"`
	LastUpdated      time.Time `json:"last_updated"`
}

// OrderSide represents order side.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents order type; the core only ever submits Limit
// (paired entry legs) or Market (hedge recovery leg).
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderStatus represents order status.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)
