package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"matching-engine-go/market"
	"matching-engine-go/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 订阅流对浏览器客户端开放，来源控制交给部署层。
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// handleStream upgrades the connection and pumps one topic's events into
// it. An optional ?symbol= query narrows the feed to one symbol.
func (s *Server) handleStream(topic market.Topic) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := s.registry.Publisher().Subscribe(topic)
		if sub == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "shutting down"})
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			sub.Close()
			return
		}
		symbol := r.URL.Query().Get("symbol")
		metrics.StreamClients.WithLabelValues(string(topic)).Inc()
		s.log.Info("stream client connected",
			zap.String("topic", string(topic)),
			zap.String("symbol", symbol))

		go s.readPump(conn, sub)
		go s.writePump(conn, sub, symbol, topic)
	}
}

// readPump discards inbound frames and tears the subscription down when
// the peer goes away.
func (s *Server) readPump(conn *websocket.Conn, sub *market.Subscription) {
	defer sub.Close()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the subscription queue into the socket. When the
// queue channel closes (client unsubscribed, engine shutdown, or a trade
// overflow disconnect) the socket is closed too.
func (s *Server) writePump(conn *websocket.Conn, sub *market.Subscription, symbol string, topic market.Topic) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		metrics.StreamClients.WithLabelValues(string(topic)).Dec()
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(writeWait))
				return
			}
			if symbol != "" && ev.Symbol != symbol {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toStreamMessage(ev)); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}
