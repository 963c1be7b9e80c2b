// Package book implements the per-symbol limit order book: FIFO price
// levels, red-black trees per side and an id index for O(1) cancellation.
package book

import (
	"time"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// Order is a resting or in-flight order owned by one matching engine.
// The queue linkage fields are managed by the Level it rests on.
type Order struct {
	ID        string
	Symbol    string
	Side      order.Side
	Type      order.Type
	Price     decimal.Decimal // zero for market orders
	Quantity  decimal.Decimal // original quantity, immutable after accept
	Remaining decimal.Decimal
	SeqID     uint64
	Timestamp time.Time
	Status    order.Status

	next *Order
	prev *Order
	lvl  *Level
}

// Filled returns the cumulated executed quantity.
func (o *Order) Filled() decimal.Decimal {
	return o.Quantity.Sub(o.Remaining)
}

// Resting reports whether the order currently sits on a price level.
func (o *Order) Resting() bool {
	return o.lvl != nil
}

// Next 只读遍历辅助。
func (o *Order) Next() *Order {
	return o.next
}
