package arbitrage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingOrder is the only state from which a transition is possible.
// Fill and Cancel take PendingOrder by value and return a terminal
// type, modeling a consuming transition: Go has no linear/affine
// types, so the discipline is enforced by convention (the caller's
// PendingOrder value should be treated as moved-from after calling
// Fill or Cancel) rather than by the compiler.
type PendingOrder struct {
	ID       uint64
	SymbolID uint32
	Price    decimal.Decimal
	Size     decimal.Decimal
}

// FilledOrder is a terminal state exposing only FillPrice/FillTime.
// No method returns to Pending or to Cancelled.
type FilledOrder struct {
	ID        uint64
	SymbolID  uint32
	Price     decimal.Decimal
	Size      decimal.Decimal
	FillPrice decimal.Decimal
	FillTime  time.Time
}

// CancelledOrder is a terminal state exposing only Reason.
type CancelledOrder struct {
	ID       uint64
	SymbolID uint32
	Price    decimal.Decimal
	Size     decimal.Decimal
	Reason   string
}

// Fill transitions a Pending order to Filled. Only callable on
// PendingOrder; FilledOrder and CancelledOrder expose no such method,
// making a double-fill or fill-after-cancel a compile error rather
// than a runtime check.
func (o PendingOrder) Fill(price decimal.Decimal, at time.Time) FilledOrder {
	return FilledOrder{
		ID:        o.ID,
		SymbolID:  o.SymbolID,
		Price:     o.Price,
		Size:      o.Size,
		FillPrice: price,
		FillTime:  at,
	}
}

// Cancel transitions a Pending order to Cancelled.
func (o PendingOrder) Cancel(reason string) CancelledOrder {
	return CancelledOrder{
		ID:       o.ID,
		SymbolID: o.SymbolID,
		Price:    o.Price,
		Size:     o.Size,
		Reason:   reason,
	}
}
