package server

import (
	"github.com/shopspring/decimal"

	"matching-engine-go/book"
	"matching-engine-go/market"
)

// submissionRequest 下单请求体。
type submissionRequest struct {
	Symbol    string           `json:"symbol"`
	Side      string           `json:"side"`
	OrderType string           `json:"order_type"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

type submissionResponse struct {
	OrderID           string          `json:"order_id"`
	Status            string          `json:"status"`
	FilledQuantity    decimal.Decimal `json:"filled_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Trades            []tradeJSON     `json:"trades"`
	RejectReason      string          `json:"reject_reason,omitempty"`
}

type tradeJSON struct {
	TradeID        string          `json:"trade_id"`
	Symbol         string          `json:"symbol"`
	Price          decimal.Decimal `json:"price"`
	Quantity       decimal.Decimal `json:"quantity"`
	AggressorSide  string          `json:"aggressor_side"`
	MakerOrderID   string          `json:"maker_order_id"`
	TakerOrderID   string          `json:"taker_order_id"`
	Timestamp      string          `json:"timestamp"`
	SequenceNumber uint64          `json:"sequence_number"`
}

func toTradeJSON(t market.Trade) tradeJSON {
	return tradeJSON{
		TradeID:        t.TradeID,
		Symbol:         t.Symbol,
		Price:          t.Price,
		Quantity:       t.Quantity,
		AggressorSide:  string(t.AggressorSide),
		MakerOrderID:   t.MakerOrderID,
		TakerOrderID:   t.TakerOrderID,
		Timestamp:      t.Timestamp.UTC().Format(timeLayout),
		SequenceNumber: t.SeqID,
	}
}

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// orderbookResponse 档位快照，价格/数量成对出现。
type orderbookResponse struct {
	Symbol         string               `json:"symbol"`
	Bids           [][2]decimal.Decimal `json:"bids"`
	Asks           [][2]decimal.Decimal `json:"asks"`
	SequenceNumber uint64               `json:"sequence_number"`
}

func toLevels(views []book.LevelView) [][2]decimal.Decimal {
	out := make([][2]decimal.Decimal, 0, len(views))
	for _, v := range views {
		out = append(out, [2]decimal.Decimal{v.Price, v.Qty})
	}
	return out
}

type bboResponse struct {
	Symbol          string           `json:"symbol"`
	BestBid         *decimal.Decimal `json:"best_bid"`
	BestBidQuantity *decimal.Decimal `json:"best_bid_quantity"`
	BestAsk         *decimal.Decimal `json:"best_ask"`
	BestAskQuantity *decimal.Decimal `json:"best_ask_quantity"`
}

func toBBOResponse(symbol string, b book.BBO) bboResponse {
	out := bboResponse{Symbol: symbol}
	if b.HasBid {
		bid, qty := b.BestBid, b.BestBidQty
		out.BestBid, out.BestBidQuantity = &bid, &qty
	}
	if b.HasAsk {
		ask, qty := b.BestAsk, b.BestAskQty
		out.BestAsk, out.BestAskQuantity = &ask, &qty
	}
	return out
}

type tradesResponse struct {
	Symbol string      `json:"symbol"`
	Trades []tradeJSON `json:"trades"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// streamMessage 推送到 WebSocket 的统一消息格式。
type streamMessage struct {
	Type           string               `json:"type"`
	Symbol         string               `json:"symbol"`
	SequenceNumber uint64               `json:"sequence_number"`
	Trade          *tradeJSON           `json:"trade,omitempty"`
	Bids           [][2]decimal.Decimal `json:"bids,omitempty"`
	Asks           [][2]decimal.Decimal `json:"asks,omitempty"`
	BBO            *bboResponse         `json:"bbo,omitempty"`
}

func toStreamMessage(ev market.Event) streamMessage {
	msg := streamMessage{Symbol: ev.Symbol, SequenceNumber: ev.SeqID}
	switch {
	case ev.Halted:
		msg.Type = "halted"
	case ev.Trade != nil:
		msg.Type = "trade"
		tj := toTradeJSON(*ev.Trade)
		msg.Trade = &tj
	case ev.Book != nil:
		msg.Type = "orderbook"
		msg.Bids = toLevels(ev.Book.Bids)
		msg.Asks = toLevels(ev.Book.Asks)
	case ev.BBO != nil:
		msg.Type = "bbo"
		bj := toBBOResponse(ev.Symbol, ev.BBO.BBO)
		msg.BBO = &bj
	}
	return msg
}
