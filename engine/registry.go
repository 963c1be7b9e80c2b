package engine

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"matching-engine-go/book"
	"matching-engine-go/market"
	"matching-engine-go/order"
)

// RegistryConfig 注册表配置。Symbols 非空时只接受列出的交易对。
type RegistryConfig struct {
	Params  Params
	Symbols map[string]order.SymbolConstraints
}

// Registry maps symbol → engine and dispatches submissions to the owning
// instance. Engines for different symbols run in parallel and share
// nothing mutable; the map itself is read-mostly under an RWMutex.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	closed  bool

	cfg   RegistryConfig
	clock Clock
	ids   IDSource
	pub   *market.Publisher
	log   *zap.Logger
}

// NewRegistry wires the shared collaborators. clock and ids default to
// the system implementations when nil.
func NewRegistry(cfg RegistryConfig, clock Clock, ids IDSource, pub *market.Publisher, log *zap.Logger) *Registry {
	if clock == nil {
		clock = SystemClock{}
	}
	if ids == nil {
		ids = UUIDSource{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		engines: make(map[string]*Engine),
		cfg:     cfg,
		clock:   clock,
		ids:     ids,
		pub:     pub,
		log:     log,
	}
}

// Publisher exposes the shared multiplexer for stream subscribers.
func (r *Registry) Publisher() *market.Publisher {
	return r.pub
}

// engineFor returns the engine owning symbol, lazily creating it on
// first submission.
func (r *Registry) engineFor(symbol string, create bool) (*Engine, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrClosed
	}
	e, ok := r.engines[symbol]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	constraints, listed := r.cfg.Symbols[symbol]
	if len(r.cfg.Symbols) > 0 && !listed {
		return nil, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	if !create {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if e, ok := r.engines[symbol]; ok {
		return e, nil
	}
	e = NewEngine(symbol, r.cfg.Params, constraints, r.clock, r.ids, r.pub, r.log)
	r.engines[symbol] = e
	r.log.Info("engine created", zap.String("symbol", symbol))
	return e, nil
}

// Submit dispatches to the symbol's engine, creating it if needed.
func (r *Registry) Submit(req order.Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	e, err := r.engineFor(req.Symbol, true)
	if err != nil {
		return Result{}, err
	}
	return e.Submit(req)
}

// Cancel removes a resting order on symbol. found=false when either the
// symbol has no engine yet or the id is not resting.
func (r *Registry) Cancel(symbol, orderID string) (bool, error) {
	e, err := r.engineFor(symbol, false)
	if err != nil || e == nil {
		return false, err
	}
	return e.Cancel(orderID)
}

// Snapshot returns the aggregated depth view for symbol. A symbol with
// no engine yet yields an empty book.
func (r *Registry) Snapshot(symbol string, depth int) (bids, asks []book.LevelView, seq uint64, err error) {
	e, err := r.engineFor(symbol, false)
	if err != nil {
		return nil, nil, 0, err
	}
	if e == nil {
		return []book.LevelView{}, []book.LevelView{}, 0, nil
	}
	bids, asks, seq = e.Snapshot(depth)
	return bids, asks, seq, nil
}

// BBO returns the best bid/offer for symbol.
func (r *Registry) BBO(symbol string) (book.BBO, error) {
	e, err := r.engineFor(symbol, false)
	if err != nil {
		return book.BBO{}, err
	}
	if e == nil {
		return book.BBO{}, nil
	}
	return e.BBO(), nil
}

// RecentTrades returns up to limit trades for symbol, newest first.
func (r *Registry) RecentTrades(symbol string, limit int) ([]market.Trade, error) {
	e, err := r.engineFor(symbol, false)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return []market.Trade{}, nil
	}
	return e.RecentTrades(limit), nil
}

// CancelAny tries the cancel against every live engine, for callers
// that know only the order id.
func (r *Registry) CancelAny(orderID string) (bool, error) {
	r.mu.RLock()
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return false, ErrClosed
	}
	for _, e := range engines {
		found, err := e.Cancel(orderID)
		if err != nil {
			continue // 被隔离的交易对跳过
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// Symbols lists the symbols with live engines.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.engines))
	for s := range r.engines {
		out = append(out, s)
	}
	return out
}

// Close refuses new submissions and drains all subscriber queues.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.pub.Close()
	r.log.Info("registry closed")
}
