package market

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPublisherFanOut(t *testing.T) {
	p := NewPublisher(4, nil)
	a := p.Subscribe(TopicTrades)
	b := p.Subscribe(TopicTrades)
	other := p.Subscribe(TopicBBO)

	tr := &Trade{TradeID: "t1", Symbol: "BTC-USDT", Price: decimal.New(100, 0)}
	p.Publish(Event{Topic: TopicTrades, Symbol: "BTC-USDT", Trade: tr})

	for _, s := range []*Subscription{a, b} {
		select {
		case ev := <-s.Events():
			if ev.Trade == nil || ev.Trade.TradeID != "t1" {
				t.Fatalf("wrong event: %+v", ev)
			}
		default:
			t.Fatal("subscriber missed trade")
		}
	}
	select {
	case <-other.Events():
		t.Fatal("bbo subscriber received trade topic event")
	default:
	}
}

func TestPublisherDropNewestOnBookOverflow(t *testing.T) {
	p := NewPublisher(2, nil)
	s := p.Subscribe(TopicOrderbook)
	for i := 0; i < 5; i++ {
		p.Publish(Event{Topic: TopicOrderbook, Symbol: "BTC-USDT", SeqID: uint64(i)})
	}
	// 队列容量 2，其余被丢弃；订阅者不会被断开
	if got := p.Dropped(); got != 3 {
		t.Fatalf("dropped %d want 3", got)
	}
	if p.SubscriberCount(TopicOrderbook) != 1 {
		t.Fatal("book subscriber must survive overflow")
	}
	ev := <-s.Events()
	if ev.SeqID != 0 {
		t.Fatalf("drop-newest must keep oldest, got seq %d", ev.SeqID)
	}
}

func TestPublisherDisconnectsSlowTradeConsumer(t *testing.T) {
	p := NewPublisher(1, nil)
	s := p.Subscribe(TopicTrades)
	p.Publish(Event{Topic: TopicTrades, Symbol: "BTC-USDT", SeqID: 1})
	p.Publish(Event{Topic: TopicTrades, Symbol: "BTC-USDT", SeqID: 2})

	if p.SubscriberCount(TopicTrades) != 0 {
		t.Fatal("slow trade subscriber must be disconnected")
	}
	if p.Disconnected() != 1 {
		t.Fatalf("disconnected %d want 1", p.Disconnected())
	}
	// 队列里已有的事件仍可读，随后通道关闭
	if ev := <-s.Events(); ev.SeqID != 1 {
		t.Fatalf("seq %d want 1", ev.SeqID)
	}
	if _, ok := <-s.Events(); ok {
		t.Fatal("channel should be closed after disconnect")
	}
}

func TestPublisherCloseUnblocksSubscribers(t *testing.T) {
	p := NewPublisher(2, nil)
	s := p.Subscribe(TopicBBO)
	p.Close()
	if _, ok := <-s.Events(); ok {
		t.Fatal("expected closed channel")
	}
	if sub := p.Subscribe(TopicBBO); sub != nil {
		t.Fatal("subscribe after close must return nil")
	}
	// Publish after close is a no-op, not a panic.
	p.Publish(Event{Topic: TopicBBO})
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	p := NewPublisher(2, nil)
	s := p.Subscribe(TopicOrderbook)
	s.Close()
	s.Close()
	if p.SubscriberCount(TopicOrderbook) != 0 {
		t.Fatal("subscription not removed")
	}
}
