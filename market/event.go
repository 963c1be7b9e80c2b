package market

import (
	"time"

	"matching-engine-go/book"
)

// Topic 订阅主题。
type Topic string

const (
	TopicOrderbook Topic = "orderbook"
	TopicTrades    Topic = "trades"
	TopicBBO       Topic = "bbo"
)

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	switch t {
	case TopicOrderbook, TopicTrades, TopicBBO:
		return true
	}
	return false
}

// BookUpdate is a top-N depth snapshot emitted after each mutation.
type BookUpdate struct {
	Symbol    string
	Bids      []book.LevelView
	Asks      []book.LevelView
	SeqID     uint64
	Timestamp time.Time
}

// BBOUpdate is emitted whenever the best bid/offer tuple changes.
type BBOUpdate struct {
	Symbol    string
	BBO       book.BBO
	SeqID     uint64
	Timestamp time.Time
}

// Event is the tagged envelope delivered to subscribers. Exactly one of
// Trade/Book/BBO is set for its topic; Halted marks the terminal event a
// quarantined symbol sends on every topic.
type Event struct {
	Topic  Topic
	Symbol string
	SeqID  uint64

	Trade  *Trade
	Book   *BookUpdate
	BBO    *BBOUpdate
	Halted bool
}
