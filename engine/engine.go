// Package engine implements the per-symbol matching state machine and the
// registry that shards submissions across symbols.
package engine

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"matching-engine-go/book"
	"matching-engine-go/market"
	"matching-engine-go/metrics"
	"matching-engine-go/order"
)

// Result is the synchronous outcome of one submission.
type Result struct {
	OrderID           string
	Status            order.Status
	FilledQuantity    decimal.Decimal
	RemainingQuantity decimal.Decimal
	Trades            []market.Trade
	RejectReason      string
}

// Params 单符号引擎的运行参数。
type Params struct {
	SnapshotDepth int
	RecentTrades  int
}

// Engine owns one symbol's order book. All book mutations happen inside
// mu; publication happens after mu is released, serialized by pubMu so
// subscribers observe submissions in sequence order (hand-over-hand
// locking between the two).
type Engine struct {
	symbol string

	mu    sync.Mutex
	pubMu sync.Mutex

	bk       *book.Book
	seq      uint64
	tradeSeq uint64
	ring     *tradeRing
	lastBBO  book.BBO
	halted   bool

	clock       Clock
	ids         IDSource
	pub         *market.Publisher
	log         *zap.Logger
	depth       int
	constraints order.SymbolConstraints
}

// NewEngine builds an engine for one symbol. pub may be shared across
// engines; a nil log falls back to a no-op logger.
func NewEngine(symbol string, p Params, constraints order.SymbolConstraints,
	clock Clock, ids IDSource, pub *market.Publisher, log *zap.Logger) *Engine {
	if p.SnapshotDepth <= 0 {
		p.SnapshotDepth = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		symbol:      symbol,
		bk:          book.New(symbol),
		ring:        newTradeRing(p.RecentTrades),
		clock:       clock,
		ids:         ids,
		pub:         pub,
		log:         log,
		depth:       p.SnapshotDepth,
		constraints: constraints,
	}
}

// Submit runs the full accept → match → dispose → publish cycle for one
// order. Validation failures return an error and touch nothing.
func (e *Engine) Submit(req order.Request) (Result, error) {
	if err := req.Validate(); err != nil {
		metrics.OrdersRejected.WithLabelValues(e.symbol, "validation").Inc()
		return Result{}, err
	}
	price := req.Price
	if req.Type == order.TypeMarket {
		price = decimal.Zero
	}
	if err := e.constraints.Check(price, req.Quantity); err != nil {
		metrics.OrdersRejected.WithLabelValues(e.symbol, "constraints").Inc()
		return Result{}, err
	}

	timer := metrics.SubmitTimer(e.symbol)
	defer timer.ObserveDuration()

	e.mu.Lock()
	if e.halted {
		e.mu.Unlock()
		return Result{}, fmt.Errorf("%s: %w", e.symbol, ErrHalted)
	}

	e.seq++
	o := &book.Order{
		ID:        e.ids.NewID(),
		Symbol:    e.symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     price,
		Quantity:  req.Quantity,
		Remaining: req.Quantity,
		SeqID:     e.seq,
		Timestamp: e.clock.Now(),
		Status:    order.StatusNew,
	}

	// FOK 预检必须是只读的：流动性不足时整单拒绝，订单簿保持原样。
	if o.Type == order.TypeFOK {
		if !e.bk.AvailableWithin(o.Side, o.Price, false, o.Quantity) {
			e.mu.Unlock()
			metrics.OrdersRejected.WithLabelValues(e.symbol, RejectReasonFOK).Inc()
			e.log.Info("fok rejected",
				zap.String("symbol", e.symbol),
				zap.String("order_id", o.ID),
				zap.String("qty", o.Quantity.String()))
			return Result{
				OrderID:           o.ID,
				Status:            order.StatusRejected,
				FilledQuantity:    decimal.Zero,
				RemainingQuantity: o.Quantity,
				RejectReason:      RejectReasonFOK,
			}, nil
		}
	}

	trades := e.matchLoop(o)

	rested := false
	switch {
	case o.Remaining.IsZero():
		o.Status = order.StatusFilled
	case o.Type == order.TypeLimit:
		if len(trades) > 0 {
			o.Status = order.StatusPartial
		} else {
			o.Status = order.StatusOpen
		}
		e.bk.AddResting(o)
		rested = true
	default:
		// market / ioc remainder is cancelled, never rests
		o.Status = order.StatusCancelled
	}

	if e.bk.Crossed() {
		e.quarantineLocked("book crossed after match", o.SeqID)
		return Result{}, fmt.Errorf("%s: %w", e.symbol, ErrHalted)
	}

	for _, tr := range trades {
		e.ring.push(tr)
	}

	res := Result{
		OrderID:           o.ID,
		Status:            o.Status,
		FilledQuantity:    o.Filled(),
		RemainingQuantity: o.Remaining,
		Trades:            trades,
	}

	metrics.OrdersAccepted.WithLabelValues(e.symbol, string(o.Type), string(o.Status)).Inc()
	metrics.TradesExecuted.WithLabelValues(e.symbol).Add(float64(len(trades)))

	// 无成交且未进簿则没有任何账本变化，不需要广播。
	if len(trades) == 0 && !rested {
		e.mu.Unlock()
		return res, nil
	}

	e.publishAfter(o.SeqID, trades)
	return res, nil
}

// Cancel removes a resting order. Returns false when the id is unknown
// or no longer resting.
func (e *Engine) Cancel(orderID string) (bool, error) {
	e.mu.Lock()
	if e.halted {
		e.mu.Unlock()
		return false, fmt.Errorf("%s: %w", e.symbol, ErrHalted)
	}
	o, ok := e.bk.Cancel(orderID)
	if !ok {
		e.mu.Unlock()
		return false, nil
	}
	e.seq++
	seq := e.seq
	e.log.Info("order cancelled",
		zap.String("symbol", e.symbol),
		zap.String("order_id", o.ID),
		zap.String("remaining", o.Remaining.String()))
	metrics.OrdersCancelled.WithLabelValues(e.symbol).Inc()
	e.publishAfter(seq, nil)
	return true, nil
}

// matchLoop consumes the best matchable opposite levels, best price first
// and FIFO within a level. Every fill executes at the maker's resting
// price.
func (e *Engine) matchLoop(taker *book.Order) []market.Trade {
	var trades []market.Trade
	opp := taker.Side.Opposite()
	isMarket := taker.Type == order.TypeMarket
	var limitKey int64
	if !isMarket {
		limitKey = book.PriceKey(taker.Price)
	}

	for taker.Remaining.IsPositive() {
		lvl := e.bk.BestLevel(opp)
		if lvl == nil {
			break
		}
		if !isMarket {
			if taker.Side == order.SideBuy && lvl.Key > limitKey {
				break
			}
			if taker.Side == order.SideSell && lvl.Key < limitKey {
				break
			}
		}

		maker := lvl.Head()
		q := decimal.Min(taker.Remaining, maker.Remaining)

		e.tradeSeq++
		tr := market.Trade{
			TradeID:       e.ids.NewID(),
			Symbol:        e.symbol,
			Price:         lvl.Price,
			Quantity:      q,
			AggressorSide: taker.Side,
			MakerOrderID:  maker.ID,
			TakerOrderID:  taker.ID,
			Timestamp:     e.clock.Now(),
			SeqID:         e.tradeSeq,
		}
		trades = append(trades, tr)

		taker.Remaining = taker.Remaining.Sub(q)
		lvl.Reduce(maker, q)
		if maker.Remaining.IsZero() {
			maker.Status = order.StatusFilled
			e.bk.UnlinkFilled(maker)
		} else {
			maker.Status = order.StatusPartial
		}
	}
	return trades
}

// publishAfter hands the finished batch to the multiplexer. Called with
// mu held; acquires pubMu before releasing mu so concurrent submissions
// publish in sequence order without holding the book lock during sends.
func (e *Engine) publishAfter(seq uint64, trades []market.Trade) {
	bids, asks := e.bk.Snapshot(e.depth)
	bbo := e.bk.BBO()
	bboChanged := !bbo.Equal(e.lastBBO)
	if bboChanged {
		e.lastBBO = bbo
	}
	now := e.clock.Now()

	e.pubMu.Lock()
	e.mu.Unlock()
	defer e.pubMu.Unlock()

	for i := range trades {
		e.pub.Publish(market.Event{
			Topic:  market.TopicTrades,
			Symbol: e.symbol,
			SeqID:  seq,
			Trade:  &trades[i],
		})
	}
	e.pub.Publish(market.Event{
		Topic:  market.TopicOrderbook,
		Symbol: e.symbol,
		SeqID:  seq,
		Book: &market.BookUpdate{
			Symbol:    e.symbol,
			Bids:      bids,
			Asks:      asks,
			SeqID:     seq,
			Timestamp: now,
		},
	})
	if bboChanged {
		e.pub.Publish(market.Event{
			Topic:  market.TopicBBO,
			Symbol: e.symbol,
			SeqID:  seq,
			BBO: &market.BBOUpdate{
				Symbol:    e.symbol,
				BBO:       bbo,
				SeqID:     seq,
				Timestamp: now,
			},
		})
	}
}

// quarantineLocked halts the symbol after a detected invariant violation
// and emits the terminal event on every topic. mu is held on entry and
// released here.
func (e *Engine) quarantineLocked(reason string, seq uint64) {
	e.halted = true
	e.log.Error("invariant violation, symbol quarantined",
		zap.String("symbol", e.symbol),
		zap.String("reason", reason))
	metrics.SymbolsHalted.Inc()

	e.pubMu.Lock()
	e.mu.Unlock()
	defer e.pubMu.Unlock()
	for _, topic := range []market.Topic{market.TopicTrades, market.TopicOrderbook, market.TopicBBO} {
		e.pub.Publish(market.Event{Topic: topic, Symbol: e.symbol, SeqID: seq, Halted: true})
	}
}

// Snapshot returns the aggregated top depth levels and the last assigned
// sequence number.
func (e *Engine) Snapshot(depth int) (bids, asks []book.LevelView, seq uint64) {
	if depth <= 0 {
		depth = e.depth
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	bids, asks = e.bk.Snapshot(depth)
	return bids, asks, e.seq
}

// BBO returns the current best bid/offer tuple.
func (e *Engine) BBO() book.BBO {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bk.BBO()
}

// RecentTrades copies up to limit trades, newest first.
func (e *Engine) RecentTrades(limit int) []market.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ring.recent(limit)
}

// CheckInvariants runs the full-book consistency scan and quarantines
// the symbol on failure.
func (e *Engine) CheckInvariants() error {
	e.mu.Lock()
	err := e.bk.CheckInvariants()
	if err != nil {
		e.seq++
		e.quarantineLocked(err.Error(), e.seq)
		return err
	}
	e.mu.Unlock()
	return nil
}

// Halted reports whether the symbol has been quarantined.
func (e *Engine) Halted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}
