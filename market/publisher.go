package market

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultQueueSize 每个订阅者的默认缓冲长度。
const DefaultQueueSize = 1024

// Subscription is one subscriber's bounded event queue on a single topic.
type Subscription struct {
	topic  Topic
	ch     chan Event
	pub    *Publisher
	closed bool
}

// Events returns the receive side of the queue. The channel is closed
// when the subscriber is disconnected for falling behind on trades, or
// when the subscription or publisher is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Close unsubscribes and releases the queue.
func (s *Subscription) Close() {
	s.pub.unsubscribe(s)
}

// Publisher fans events out to per-topic subscribers. Queues are bounded:
// orderbook and bbo events are coalescible snapshots, so overflow drops the
// new event; a trade queue overflow disconnects the subscriber instead,
// trades are never dropped silently.
type Publisher struct {
	mu        sync.Mutex
	queueSize int
	subs      map[Topic]map[*Subscription]struct{}
	closed    bool

	log *zap.Logger

	dropped      uint64
	disconnected uint64
}

// NewPublisher creates a fan-out with the given per-subscriber queue bound.
// queueSize <= 0 falls back to DefaultQueueSize.
func NewPublisher(queueSize int, log *zap.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		queueSize: queueSize,
		subs:      make(map[Topic]map[*Subscription]struct{}),
		log:       log,
	}
}

// Subscribe registers a new bounded queue on topic.
// Returns nil after the publisher is closed.
func (p *Publisher) Subscribe(topic Topic) *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	s := &Subscription{
		topic: topic,
		ch:    make(chan Event, p.queueSize),
		pub:   p,
	}
	set, ok := p.subs[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		p.subs[topic] = set
	}
	set[s] = struct{}{}
	return s
}

// Publish delivers ev to every subscriber of its topic without blocking
// the caller. Subscribers filter by symbol themselves.
func (p *Publisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for s := range p.subs[ev.Topic] {
		select {
		case s.ch <- ev:
		default:
			if ev.Topic == TopicTrades {
				p.disconnected++
				p.log.Warn("trade subscriber overflow, disconnecting",
					zap.String("symbol", ev.Symbol))
				p.removeLocked(s)
			} else {
				p.dropped++
			}
		}
	}
}

// Dropped returns how many coalescible events were discarded on overflow.
func (p *Publisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Disconnected returns how many trade subscribers were cut for overflow.
func (p *Publisher) Disconnected() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnected
}

// SubscriberCount returns the number of live subscriptions on topic.
func (p *Publisher) SubscriberCount(topic Topic) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs[topic])
}

// Close drops every subscriber and refuses further publishes.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, set := range p.subs {
		for s := range set {
			s.closed = true
			close(s.ch)
		}
	}
	p.subs = nil
}

func (p *Publisher) unsubscribe(s *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || s.closed {
		return
	}
	p.removeLocked(s)
}

func (p *Publisher) removeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	delete(p.subs[s.topic], s)
	close(s.ch)
}
