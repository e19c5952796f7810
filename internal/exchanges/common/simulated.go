package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SimulatedBackend is an in-memory ExecutionBackend: orders fill
// immediately at their submitted price, used by the demo runner and
// by tests that exercise the Atomic Execution Protocol without a real
// venue connection.
type SimulatedBackend struct {
	mu       sync.Mutex
	orders   map[string]*SimulatedOrder
	depth    map[string]float64
	bids     map[string]decimal.Decimal
	latency  map[string]*LatencyStats
	autoFill bool
}

// NewSimulatedBackend returns a backend whose PlaceOrder calls fill
// immediately when autoFill is true, or stay `NEW` otherwise (useful
// for tests that drive fills manually via MarkFilled).
func NewSimulatedBackend(autoFill bool) *SimulatedBackend {
	return &SimulatedBackend{
		orders:   make(map[string]*SimulatedOrder),
		depth:    make(map[string]float64),
		bids:     make(map[string]decimal.Decimal),
		latency:  make(map[string]*LatencyStats),
		autoFill: autoFill,
	}
}

// PlaceOrder records the order and, if autoFill is set, fills it
// instantly at its submitted price.
func (b *SimulatedBackend) PlaceOrder(ctx context.Context, order *SimulatedOrder) (*SimulatedOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	placed := *order
	placed.Status = OrderStatusNew
	placed.TimestampMs = time.Now().UnixMilli()
	if b.autoFill {
		placed.Status = OrderStatusFilled
		placed.FilledQuantity = placed.Quantity
		placed.AvgFillPrice = placed.Price
	}
	b.orders[placed.ID] = &placed

	out := placed
	return &out, nil
}

// MarkFilled forces a previously-placed order into the Filled state,
// for tests that drive the poll loop through an asymmetric fill.
func (b *SimulatedBackend) MarkFilled(orderID string, fillPrice decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.orders[orderID]; ok {
		o.Status = OrderStatusFilled
		o.FilledQuantity = o.Quantity
		o.AvgFillPrice = fillPrice
	}
}

// CancelOrder cancels an order, or reports AlreadyFilled if it beat
// the cancel.
func (b *SimulatedBackend) CancelOrder(ctx context.Context, venue, orderID string) (CancelResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return CancelResultFailed, fmt.Errorf("unknown order %s", orderID)
	}
	if o.Status == OrderStatusFilled {
		return CancelResultAlreadyFilled, nil
	}
	o.Status = OrderStatusCanceled
	return CancelResultCancelled, nil
}

// GetOrderStatus returns the current known state of an order.
func (b *SimulatedBackend) GetOrderStatus(ctx context.Context, venue, orderID string) (*SimulatedOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("unknown order %s", orderID)
	}
	out := *o
	return &out, nil
}

// SetBestBid seeds GetBestBid's response for a (venue, symbol) pair.
func (b *SimulatedBackend) SetBestBid(venue, symbol string, bid decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids[venue+":"+symbol] = bid
}

// GetBestBid returns the seeded best bid, or zero if never set.
func (b *SimulatedBackend) GetBestBid(ctx context.Context, venue, symbol string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids[venue+":"+symbol], nil
}

// SetDepth seeds GetOrderBookDepth's response for a (venue, symbol) pair.
func (b *SimulatedBackend) SetDepth(venue, symbol string, depthUSD float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth[venue+":"+symbol] = depthUSD
}

// GetOrderBookDepth returns the seeded depth, or zero if never set.
func (b *SimulatedBackend) GetOrderBookDepth(ctx context.Context, venue, symbol string, levels int) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth[venue+":"+symbol], nil
}

// SyncServerTime returns the local clock; there is no remote server to sync with.
func (b *SimulatedBackend) SyncServerTime(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}

// GetLatencyStats returns nil; the simulated backend has no network
// round-trips to measure.
func (b *SimulatedBackend) GetLatencyStats(venue string) *LatencyStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latency[venue]
}

// SingleExchangeBackend wraps another ExecutionBackend and redirects
// every order submitted for any venue to a single primary exchange
// (testnet/demo single-exchange mode).
type SingleExchangeBackend struct {
	inner           ExecutionBackend
	primaryExchange string
}

// NewSingleExchangeBackend returns a decorator over inner that
// redirects all venue-addressed calls to primaryExchange.
// primaryExchange must be non-empty; validated at configuration time,
// not here.
func NewSingleExchangeBackend(inner ExecutionBackend, primaryExchange string) *SingleExchangeBackend {
	return &SingleExchangeBackend{inner: inner, primaryExchange: primaryExchange}
}

func (s *SingleExchangeBackend) PlaceOrder(ctx context.Context, order *SimulatedOrder) (*SimulatedOrder, error) {
	redirected := *order
	redirected.Venue = s.primaryExchange
	return s.inner.PlaceOrder(ctx, &redirected)
}

func (s *SingleExchangeBackend) CancelOrder(ctx context.Context, venue, orderID string) (CancelResult, error) {
	return s.inner.CancelOrder(ctx, s.primaryExchange, orderID)
}

func (s *SingleExchangeBackend) GetOrderStatus(ctx context.Context, venue, orderID string) (*SimulatedOrder, error) {
	return s.inner.GetOrderStatus(ctx, s.primaryExchange, orderID)
}

func (s *SingleExchangeBackend) GetBestBid(ctx context.Context, venue, symbol string) (decimal.Decimal, error) {
	return s.inner.GetBestBid(ctx, s.primaryExchange, symbol)
}

func (s *SingleExchangeBackend) GetOrderBookDepth(ctx context.Context, venue, symbol string, levels int) (float64, error) {
	return s.inner.GetOrderBookDepth(ctx, s.primaryExchange, symbol, levels)
}

func (s *SingleExchangeBackend) SyncServerTime(ctx context.Context) (time.Time, error) {
	return s.inner.SyncServerTime(ctx)
}

func (s *SingleExchangeBackend) GetLatencyStats(venue string) *LatencyStats {
	return s.inner.GetLatencyStats(s.primaryExchange)
}
