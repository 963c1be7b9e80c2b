// Package market carries the outbound market-data model: executed trades,
// depth and BBO updates, and the subscriber fan-out that feeds them to
// streaming clients.
package market

import (
	"time"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// Trade is one execution between a resting maker and an incoming taker.
// Trades are immutable once created.
type Trade struct {
	TradeID       string
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	AggressorSide order.Side
	MakerOrderID  string
	TakerOrderID  string
	Timestamp     time.Time
	SeqID         uint64
}
