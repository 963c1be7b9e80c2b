// Package server is the HTTP surface over the matching core: order
// submission, snapshots and the three streaming topics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"matching-engine-go/engine"
	"matching-engine-go/infrastructure/logger"
	"matching-engine-go/order"
)

const (
	defaultDepth       = 20
	defaultTradesLimit = 50
	maxDepth           = 500
)

// Server serves the REST and WebSocket API for one registry.
type Server struct {
	registry *engine.Registry
	log      *logger.Logger
	mux      *http.ServeMux
	httpSrv  *http.Server
	ready    atomic.Bool
}

func New(addr string, reg *engine.Registry, log *logger.Logger) *Server {
	if log == nil {
		log, _ = logger.New(logger.Config{Level: "error", Format: "json"})
	}
	s := &Server{
		registry: reg,
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.routes()
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/orders", s.handleSubmit)
	s.mux.HandleFunc("GET /api/orderbook/{symbol}", s.handleOrderbook)
	s.mux.HandleFunc("GET /api/bbo/{symbol}", s.handleBBO)
	s.mux.HandleFunc("GET /api/trades/{symbol}", s.handleTrades)
	s.mux.HandleFunc("POST /api/cancel/{order_id}", s.handleCancel)
	s.mux.HandleFunc("GET /api/healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /ws/orderbook", s.handleStream("orderbook"))
	s.mux.HandleFunc("GET /ws/trades", s.handleStream("trades"))
	s.mux.HandleFunc("GET /ws/bbo", s.handleStream("bbo"))
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins listening in the background and flips readiness.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", zap.Error(err))
		}
	}()
	s.ready.Store(true)
	s.log.Info("api server listening", zap.String("addr", s.httpSrv.Addr))
	return nil
}

// Stop drains in-flight requests and marks the server unready.
func (s *Server) Stop() error {
	s.ready.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

// Health reports readiness.
func (s *Server) Health() error {
	if !s.ready.Load() {
		return errors.New("not ready")
	}
	return nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	sub := order.Request{
		Symbol:   req.Symbol,
		Side:     order.Side(req.Side),
		Type:     order.Type(req.OrderType),
		Quantity: req.Quantity,
	}
	if req.Price != nil {
		sub.Price = *req.Price
	}

	res, err := s.registry.Submit(sub)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrClosed), errors.Is(err, engine.ErrHalted):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		return
	}

	s.log.LogSubmission(req.Symbol, res.OrderID, string(res.Status), len(res.Trades))
	trades := make([]tradeJSON, 0, len(res.Trades))
	for _, t := range res.Trades {
		s.log.LogTrade(t.Symbol, t.TradeID, t.Price.String(), t.Quantity.String())
		trades = append(trades, toTradeJSON(t))
	}
	writeJSON(w, http.StatusOK, submissionResponse{
		OrderID:           res.OrderID,
		Status:            string(res.Status),
		FilledQuantity:    res.FilledQuantity,
		RemainingQuantity: res.RemainingQuantity,
		Trades:            trades,
		RejectReason:      res.RejectReason,
	})
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	depth := queryInt(r, "depth", defaultDepth)
	if depth <= 0 || depth > maxDepth {
		depth = defaultDepth
	}
	bids, asks, seq, err := s.registry.Snapshot(symbol, depth)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orderbookResponse{
		Symbol:         symbol,
		Bids:           toLevels(bids),
		Asks:           toLevels(asks),
		SequenceNumber: seq,
	})
}

func (s *Server) handleBBO(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	bbo, err := s.registry.BBO(symbol)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toBBOResponse(symbol, bbo))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	limit := queryInt(r, "limit", defaultTradesLimit)
	trades, err := s.registry.RecentTrades(symbol, limit)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	out := make([]tradeJSON, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeJSON(t))
	}
	writeJSON(w, http.StatusOK, tradesResponse{Symbol: symbol, Trades: out})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("order_id")
	symbol := r.URL.Query().Get("symbol")

	var (
		found bool
		err   error
	)
	if symbol != "" {
		found, err = s.registry.Cancel(symbol, orderID)
	} else {
		found, err = s.registry.CancelAny(orderID)
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: found})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.Health(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
