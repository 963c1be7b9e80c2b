package book

import (
	"testing"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func resting(id string, side order.Side, price, qty string, seq uint64) *Order {
	return &Order{
		ID:        id,
		Symbol:    "BTC-USDT",
		Side:      side,
		Type:      order.TypeLimit,
		Price:     dec(price),
		Quantity:  dec(qty),
		Remaining: dec(qty),
		SeqID:     seq,
		Status:    order.StatusOpen,
	}
}

func TestLevelFIFOAndUnlink(t *testing.T) {
	lvl := &Level{Price: dec("100"), Key: PriceKey(dec("100"))}
	a := resting("a", order.SideBuy, "100", "1", 1)
	b := resting("b", order.SideBuy, "100", "2", 2)
	c := resting("c", order.SideBuy, "100", "3", 3)
	lvl.Enqueue(a)
	lvl.Enqueue(b)
	lvl.Enqueue(c)
	if !lvl.TotalQty.Equal(dec("6")) || lvl.OrderCount != 3 {
		t.Fatalf("aggregate %s count %d", lvl.TotalQty, lvl.OrderCount)
	}
	// 从中间摘除
	lvl.Unlink(b)
	if lvl.Head() != a || a.Next() != c || c.Next() != nil {
		t.Fatal("queue linkage broken after middle unlink")
	}
	if !lvl.TotalQty.Equal(dec("4")) {
		t.Fatalf("aggregate %s", lvl.TotalQty)
	}
	lvl.Unlink(a)
	lvl.Unlink(c)
	if !lvl.Empty() || !lvl.TotalQty.IsZero() {
		t.Fatal("level should be empty")
	}
}

func TestBookAddCancelAndBBO(t *testing.T) {
	b := New("BTC-USDT")
	b.AddResting(resting("b1", order.SideBuy, "100", "1.0", 1))
	b.AddResting(resting("b2", order.SideBuy, "99", "2.0", 2))
	b.AddResting(resting("a1", order.SideSell, "101", "0.5", 3))

	bbo := b.BBO()
	if !bbo.HasBid || !bbo.HasAsk {
		t.Fatal("expected both sides")
	}
	if !bbo.BestBid.Equal(dec("100")) || !bbo.BestAsk.Equal(dec("101")) {
		t.Fatalf("bbo %s/%s", bbo.BestBid, bbo.BestAsk)
	}
	if !bbo.BestBidQty.Equal(dec("1.0")) || !bbo.BestAskQty.Equal(dec("0.5")) {
		t.Fatalf("bbo qty %s/%s", bbo.BestBidQty, bbo.BestAskQty)
	}

	o, ok := b.Cancel("b1")
	if !ok || o.Status != order.StatusCancelled {
		t.Fatalf("cancel failed: %v %v", ok, o)
	}
	if _, ok := b.Cancel("b1"); ok {
		t.Fatal("double cancel should miss")
	}
	if _, ok := b.Cancel("nope"); ok {
		t.Fatal("unknown id should miss")
	}
	bbo = b.BBO()
	if !bbo.BestBid.Equal(dec("99")) {
		t.Fatalf("best bid after cancel %s", bbo.BestBid)
	}
	if err := b.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestBookSnapshotDepthAndOrdering(t *testing.T) {
	b := New("BTC-USDT")
	for i, p := range []string{"100", "99", "98", "97"} {
		b.AddResting(resting("b"+p, order.SideBuy, p, "1", uint64(i+1)))
	}
	for i, p := range []string{"101", "102", "103"} {
		b.AddResting(resting("a"+p, order.SideSell, p, "2", uint64(i+10)))
	}
	bids, asks := b.Snapshot(2)
	if len(bids) != 2 || len(asks) != 2 {
		t.Fatalf("depth %d/%d", len(bids), len(asks))
	}
	if !bids[0].Price.Equal(dec("100")) || !bids[1].Price.Equal(dec("99")) {
		t.Fatalf("bids not descending: %v", bids)
	}
	if !asks[0].Price.Equal(dec("101")) || !asks[1].Price.Equal(dec("102")) {
		t.Fatalf("asks not ascending: %v", asks)
	}
}

func TestBookSamePriceAggregates(t *testing.T) {
	b := New("BTC-USDT")
	b.AddResting(resting("x", order.SideSell, "101", "1", 1))
	b.AddResting(resting("y", order.SideSell, "101", "2.5", 2))
	_, asks := b.Snapshot(5)
	if len(asks) != 1 || !asks[0].Qty.Equal(dec("3.5")) {
		t.Fatalf("aggregate snapshot wrong: %v", asks)
	}
}

func TestAvailableWithin(t *testing.T) {
	b := New("BTC-USDT")
	b.AddResting(resting("b1", order.SideBuy, "101", "0.5", 1))
	b.AddResting(resting("b2", order.SideBuy, "100", "0.6", 2))

	// sell limit 100: both levels satisfy
	if !b.AvailableWithin(order.SideSell, dec("100"), false, dec("1.0")) {
		t.Fatal("expected 1.1 available at >=100")
	}
	// sell limit 100.5: only the 101 level qualifies
	if b.AvailableWithin(order.SideSell, dec("100.5"), false, dec("1.0")) {
		t.Fatal("only 0.5 available at >=100.5")
	}
	// market sees everything
	if !b.AvailableWithin(order.SideSell, decimal.Zero, true, dec("1.1")) {
		t.Fatal("market scan should reach full depth")
	}
	if b.AvailableWithin(order.SideSell, decimal.Zero, true, dec("1.2")) {
		t.Fatal("book only holds 1.1")
	}
}

func TestCheckInvariantsDetectsAggregateDrift(t *testing.T) {
	b := New("BTC-USDT")
	o := resting("b1", order.SideBuy, "100", "1", 1)
	b.AddResting(o)
	o.lvl.TotalQty = dec("2") // 人为制造不一致
	if err := b.CheckInvariants(); err == nil {
		t.Fatal("expected aggregate mismatch")
	}
}

func TestCrossed(t *testing.T) {
	b := New("BTC-USDT")
	b.AddResting(resting("b1", order.SideBuy, "101", "1", 1))
	if b.Crossed() {
		t.Fatal("one-sided book cannot be crossed")
	}
	b.AddResting(resting("a1", order.SideSell, "100", "1", 2))
	if !b.Crossed() {
		t.Fatal("expected crossed detection")
	}
}
