package engine

import (
	"fmt"
	"testing"

	"matching-engine-go/market"
)

func TestTradeRingWrapAround(t *testing.T) {
	r := newTradeRing(3)
	for i := 1; i <= 5; i++ {
		r.push(market.Trade{TradeID: fmt.Sprintf("t%d", i), SeqID: uint64(i)})
	}
	got := r.recent(10)
	if len(got) != 3 {
		t.Fatalf("len %d", len(got))
	}
	// 最新在前，最旧两条已被覆盖
	for i, want := range []uint64{5, 4, 3} {
		if got[i].SeqID != want {
			t.Fatalf("got[%d].SeqID = %d want %d", i, got[i].SeqID, want)
		}
	}
}

func TestTradeRingLimit(t *testing.T) {
	r := newTradeRing(10)
	for i := 1; i <= 4; i++ {
		r.push(market.Trade{SeqID: uint64(i)})
	}
	got := r.recent(2)
	if len(got) != 2 || got[0].SeqID != 4 || got[1].SeqID != 3 {
		t.Fatalf("unexpected window: %+v", got)
	}
	if len(r.recent(0)) != 4 {
		t.Fatal("limit<=0 returns everything")
	}
}

func TestTradeRingEmpty(t *testing.T) {
	r := newTradeRing(4)
	if got := r.recent(5); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
}
