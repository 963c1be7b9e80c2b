package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-engine-go/engine"
	"matching-engine-go/market"
)

func newTestServer(t *testing.T) (*Server, *engine.Registry) {
	t.Helper()
	pub := market.NewPublisher(64, nil)
	reg := engine.NewRegistry(engine.RegistryConfig{
		Params: engine.Params{SnapshotDepth: 20, RecentTrades: 200},
	}, nil, nil, pub, nil)
	s := New(":0", reg, nil)
	s.ready.Store(true)
	return s, reg
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestSubmitAndSnapshotRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	var res submissionResponse
	rec := doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"buy","order_type":"limit","quantity":"1.0","price":"100"}`, &res)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "open", res.Status)
	assert.NotEmpty(t, res.OrderID)

	var ob orderbookResponse
	rec = doJSON(t, s.Handler(), "GET", "/api/orderbook/BTC-USDT?depth=5", "", &ob)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ob.Bids, 1)
	assert.Equal(t, "100", ob.Bids[0][0].String())
	assert.Empty(t, ob.Asks)

	var bbo bboResponse
	rec = doJSON(t, s.Handler(), "GET", "/api/bbo/BTC-USDT", "", &bbo)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, bbo.BestBid)
	assert.Equal(t, "100", bbo.BestBid.String())
	assert.Nil(t, bbo.BestAsk)
}

func TestSubmitValidationError(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"buy","order_type":"limit","quantity":"-1","price":"100"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), "POST", "/api/orders", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 非市价单缺价格
	rec = doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"buy","order_type":"limit","quantity":"1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFOKRejectionSurfacesInResponse(t *testing.T) {
	s, _ := newTestServer(t)
	doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"buy","order_type":"limit","quantity":"0.6","price":"100"}`, nil)

	var res submissionResponse
	rec := doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"sell","order_type":"fok","quantity":"1.0","price":"100"}`, &res)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", res.Status)
	assert.Equal(t, "fok_unfillable", res.RejectReason)
	assert.Empty(t, res.Trades)
}

func TestTradesAndCancelEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	var maker submissionResponse
	doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"buy","order_type":"limit","quantity":"2","price":"100"}`, &maker)
	doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"sell","order_type":"limit","quantity":"1","price":"100"}`, nil)

	var tr tradesResponse
	rec := doJSON(t, s.Handler(), "GET", "/api/trades/BTC-USDT?limit=10", "", &tr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tr.Trades, 1)
	assert.Equal(t, maker.OrderID, tr.Trades[0].MakerOrderID)

	var cr cancelResponse
	rec = doJSON(t, s.Handler(), "POST", "/api/cancel/"+maker.OrderID+"?symbol=BTC-USDT", "", &cr)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cr.Cancelled)

	// 已撤单再撤，found=false
	rec = doJSON(t, s.Handler(), "POST", "/api/cancel/"+maker.OrderID, "", &cr)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, cr.Cancelled)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), "GET", "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.ready.Store(false)
	rec = doJSON(t, s.Handler(), "GET", "/api/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTradeStreamDelivers(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/trades?symbol=BTC-USDT"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"buy","order_type":"limit","quantity":"1","price":"100"}`, nil)
	doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"sell","order_type":"limit","quantity":"1","price":"100"}`, nil)

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "trade", msg.Type)
	assert.Equal(t, "BTC-USDT", msg.Symbol)
	require.NotNil(t, msg.Trade)
	assert.Equal(t, "100", msg.Trade.Price.String())
}

func TestOrderbookStreamFiltersSymbol(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/orderbook?symbol=ETH-USDT"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"BTC-USDT","side":"buy","order_type":"limit","quantity":"1","price":"100"}`, nil)
	doJSON(t, s.Handler(), "POST", "/api/orders",
		`{"symbol":"ETH-USDT","side":"buy","order_type":"limit","quantity":"2","price":"50"}`, nil)

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "orderbook", msg.Type)
	assert.Equal(t, "ETH-USDT", msg.Symbol, "BTC event must be filtered out")
	require.Len(t, msg.Bids, 1)
	assert.Equal(t, "50", msg.Bids[0][0].String())
}
