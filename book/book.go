package book

import (
	"fmt"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// PriceKey converts a validated price to its pip tree key.
func PriceKey(p decimal.Decimal) int64 {
	return p.Shift(order.PriceScale).IntPart()
}

// LevelView is one aggregated price level in a depth snapshot.
type LevelView struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// BBO 某一时刻的最优买卖档。HasBid/HasAsk 为 false 时对应字段无意义。
type BBO struct {
	BestBid    decimal.Decimal
	BestBidQty decimal.Decimal
	BestAsk    decimal.Decimal
	BestAskQty decimal.Decimal
	HasBid     bool
	HasAsk     bool
}

// Equal reports whether two BBO tuples are identical.
func (b BBO) Equal(o BBO) bool {
	if b.HasBid != o.HasBid || b.HasAsk != o.HasAsk {
		return false
	}
	if b.HasBid && (!b.BestBid.Equal(o.BestBid) || !b.BestBidQty.Equal(o.BestBidQty)) {
		return false
	}
	if b.HasAsk && (!b.BestAsk.Equal(o.BestAsk) || !b.BestAskQty.Equal(o.BestAskQty)) {
		return false
	}
	return true
}

// Book holds both sides of one symbol plus the id index for cancellation.
// It is not safe for concurrent use; the owning engine serializes access.
type Book struct {
	Symbol string

	bids *Tree
	asks *Tree

	idIndex map[string]*Order
}

func New(symbol string) *Book {
	return &Book{
		Symbol:  symbol,
		bids:    NewTree(),
		asks:    NewTree(),
		idIndex: make(map[string]*Order),
	}
}

func (b *Book) sideTree(s order.Side) *Tree {
	if s == order.SideBuy {
		return b.bids
	}
	return b.asks
}

// AddResting places a limit remainder on its side and indexes it.
func (b *Book) AddResting(o *Order) {
	lvl := b.sideTree(o.Side).GetOrCreate(PriceKey(o.Price), o.Price)
	lvl.Enqueue(o)
	b.idIndex[o.ID] = o
}

// Lookup returns the resting order with the given id.
func (b *Book) Lookup(id string) (*Order, bool) {
	o, ok := b.idIndex[id]
	return o, ok
}

// Cancel unlinks a resting order and marks it cancelled.
func (b *Book) Cancel(id string) (*Order, bool) {
	o, ok := b.idIndex[id]
	if !ok {
		return nil, false
	}
	b.remove(o)
	o.Status = order.StatusCancelled
	return o, true
}

// UnlinkFilled removes a fully executed maker from the book.
// The caller has already set the order's status.
func (b *Book) UnlinkFilled(o *Order) {
	b.remove(o)
}

func (b *Book) remove(o *Order) {
	lvl := o.lvl
	lvl.Unlink(o)
	if lvl.Empty() {
		b.sideTree(o.Side).Delete(lvl.Key)
	}
	delete(b.idIndex, o.ID)
}

// BestLevel returns the top level of the given side, nil when empty.
func (b *Book) BestLevel(s order.Side) *Level {
	if s == order.SideBuy {
		return b.bids.Max()
	}
	return b.asks.Min()
}

// RestingCount returns the number of indexed resting orders.
func (b *Book) RestingCount() int {
	return len(b.idIndex)
}

// BBO recomputes the best bid/offer from the top of each side.
func (b *Book) BBO() BBO {
	var out BBO
	if lvl := b.bids.Max(); lvl != nil {
		out.HasBid = true
		out.BestBid = lvl.Price
		out.BestBidQty = lvl.TotalQty
	}
	if lvl := b.asks.Min(); lvl != nil {
		out.HasAsk = true
		out.BestAsk = lvl.Price
		out.BestAskQty = lvl.TotalQty
	}
	return out
}

// Snapshot aggregates the top depth levels of each side.
// Bids come back in descending price order, asks ascending.
func (b *Book) Snapshot(depth int) (bids, asks []LevelView) {
	bids = make([]LevelView, 0, depth)
	b.bids.WalkDesc(func(lvl *Level) bool {
		bids = append(bids, LevelView{Price: lvl.Price, Qty: lvl.TotalQty})
		return len(bids) < depth
	})
	asks = make([]LevelView, 0, depth)
	b.asks.WalkAsc(func(lvl *Level) bool {
		asks = append(asks, LevelView{Price: lvl.Price, Qty: lvl.TotalQty})
		return len(asks) < depth
	})
	return bids, asks
}

// AvailableWithin reports whether the opposite side holds at least need
// quantity at prices satisfying the taker's limit. Strictly read-only;
// this is the FOK feasibility scan.
func (b *Book) AvailableWithin(taker order.Side, limit decimal.Decimal, market bool, need decimal.Decimal) bool {
	limitKey := PriceKey(limit)
	avail := decimal.Zero
	enough := false
	scan := func(lvl *Level) bool {
		if !market {
			if taker == order.SideBuy && lvl.Key > limitKey {
				return false
			}
			if taker == order.SideSell && lvl.Key < limitKey {
				return false
			}
		}
		avail = avail.Add(lvl.TotalQty)
		if avail.GreaterThanOrEqual(need) {
			enough = true
			return false
		}
		return true
	}
	if taker == order.SideBuy {
		b.asks.WalkAsc(scan)
	} else {
		b.bids.WalkDesc(scan)
	}
	return enough
}

// Crossed reports the pathological best_bid >= best_ask state.
func (b *Book) Crossed() bool {
	bid := b.bids.Max()
	ask := b.asks.Min()
	return bid != nil && ask != nil && bid.Key >= ask.Key
}

// CheckInvariants does a full-book consistency scan: level aggregates,
// id index coverage and the no-crossed-book rule. A non-nil error means
// the symbol must be quarantined.
func (b *Book) CheckInvariants() error {
	if b.Crossed() {
		return fmt.Errorf("book %s crossed at rest", b.Symbol)
	}
	seen := 0
	var walkErr error
	check := func(lvl *Level) bool {
		sum := decimal.Zero
		count := 0
		for o := lvl.Head(); o != nil; o = o.Next() {
			idx, ok := b.idIndex[o.ID]
			if !ok || idx != o {
				walkErr = fmt.Errorf("order %s on level %s missing from id index", o.ID, lvl.Price)
				return false
			}
			if o.lvl != lvl {
				walkErr = fmt.Errorf("order %s level backref mismatch at %s", o.ID, lvl.Price)
				return false
			}
			sum = sum.Add(o.Remaining)
			count++
			seen++
		}
		if count == 0 {
			walkErr = fmt.Errorf("empty level %s left in tree", lvl.Price)
			return false
		}
		if !sum.Equal(lvl.TotalQty) {
			walkErr = fmt.Errorf("level %s aggregate %s != sum %s", lvl.Price, lvl.TotalQty, sum)
			return false
		}
		if count != lvl.OrderCount {
			walkErr = fmt.Errorf("level %s order count %d != %d", lvl.Price, lvl.OrderCount, count)
			return false
		}
		return true
	}
	b.bids.WalkDesc(check)
	if walkErr != nil {
		return walkErr
	}
	b.asks.WalkAsc(check)
	if walkErr != nil {
		return walkErr
	}
	if seen != len(b.idIndex) {
		return fmt.Errorf("id index size %d != resting orders %d", len(b.idIndex), seen)
	}
	return nil
}
