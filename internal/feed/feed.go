// Package feed decodes Binance stream frames and hands them to the
// strategy. Each handler takes the raw frame from a ws.Subscriber; frames
// that do not decode into the expected event are counted and dropped.
package feed

import (
	"context"
	"encoding/json"
	"strconv"

	"bn-ladder-bot/internal/metrics"
	"bn-ladder-bot/internal/state"
	"bn-ladder-bot/internal/strategy"

	"go.uber.org/zap"
)

// BestBidSink consumes decoded bookTicker best bids.
type BestBidSink interface {
	OnBestBid(ctx context.Context, bestBid float64)
}

// FillSink consumes decoded execution-report fills.
type FillSink interface {
	OnFill(ctx context.Context, fill strategy.Fill)
}

type bookTickerEvent struct {
	BestBid string `json:"b"`
}

// BookTickerHandler feeds each decoded best bid to the level evaluator.
type BookTickerHandler struct {
	sink    BestBidSink
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewBookTickerHandler(sink BestBidSink, m *metrics.Metrics, log *zap.Logger) *BookTickerHandler {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookTickerHandler{sink: sink, metrics: m, log: log}
}

func (h *BookTickerHandler) Handle(ctx context.Context, frame json.RawMessage) {
	var event bookTickerEvent
	if err := json.Unmarshal(frame, &event); err != nil {
		h.metrics.FramesDropped.Inc()
		return
	}
	bestBid, err := strconv.ParseFloat(event.BestBid, 64)
	if err != nil {
		h.metrics.FramesDropped.Inc()
		return
	}
	h.sink.OnBestBid(ctx, bestBid)
}

type aggTradeEvent struct {
	Price string `json:"p"`
	Qty   string `json:"q"`
}

// AggTradeHandler only observes the trade tape; nothing downstream acts on
// it yet, so the frames are logged at debug and otherwise discarded.
type AggTradeHandler struct {
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewAggTradeHandler(m *metrics.Metrics, log *zap.Logger) *AggTradeHandler {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AggTradeHandler{metrics: m, log: log}
}

func (h *AggTradeHandler) Handle(_ context.Context, frame json.RawMessage) {
	var event aggTradeEvent
	if err := json.Unmarshal(frame, &event); err != nil {
		h.metrics.FramesDropped.Inc()
		return
	}
	h.log.Debug("agg trade", zap.String("price", event.Price), zap.String("qty", event.Qty))
}

type executionReportEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Side      string `json:"S"`
	LastPrice string `json:"L"`
	LastQty   string `json:"l"`
	Status    string `json:"X"`
}

// UserStreamHandler filters execution reports down to fills on the managed
// symbol and routes them. Everything else on the user stream is ignored.
type UserStreamHandler struct {
	sink    FillSink
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewUserStreamHandler(sink FillSink, m *metrics.Metrics, log *zap.Logger) *UserStreamHandler {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UserStreamHandler{sink: sink, metrics: m, log: log}
}

func (h *UserStreamHandler) Handle(ctx context.Context, frame json.RawMessage) {
	var event executionReportEvent
	if err := json.Unmarshal(frame, &event); err != nil {
		h.metrics.FramesDropped.Inc()
		return
	}
	if event.EventType != "executionReport" {
		return
	}
	symbol := state.AssetSnapshot().Symbol
	if event.Symbol != symbol {
		h.log.Debug("execution report for foreign symbol", zap.String("symbol", event.Symbol))
		return
	}
	price, err := strconv.ParseFloat(event.LastPrice, 64)
	if err != nil {
		h.metrics.FramesDropped.Inc()
		return
	}
	qty, err := strconv.ParseFloat(event.LastQty, 64)
	if err != nil {
		h.metrics.FramesDropped.Inc()
		return
	}
	if qty <= 0 {
		// Order acks report a zero last quantity; nothing filled yet.
		return
	}

	h.log.Debug("execution report",
		zap.String("side", event.Side),
		zap.String("status", event.Status),
		zap.Float64("price", price),
		zap.Float64("qty", qty))
	h.sink.OnFill(ctx, strategy.Fill{
		Side:   event.Side,
		Price:  price,
		Qty:    qty,
		Status: event.Status,
	})
}
