package strategy

import (
	"context"
	"time"

	"bn-ladder-bot/internal/journal"
	"bn-ladder-bot/internal/metrics"
	"bn-ladder-bot/internal/state"
	"bn-ladder-bot/internal/timescale"

	"go.uber.org/zap"
)

// Fill is one gated execution report from the user-data stream.
type Fill struct {
	Side   string
	Price  float64
	Qty    float64
	Status string
}

// Router maps fills back to slots by price. A BUY fill grows the slot's
// filled quantity and places the paired SELL one tick above; a completed
// SELL cleans the slot and re-runs the reconciler.
type Router struct {
	spot       SpotExchange
	reconciler *Reconciler
	journal    *journal.Journal
	metrics    *metrics.Metrics
	recorder   *timescale.Writer
	log        *zap.Logger
}

func NewRouter(spot SpotExchange, reconciler *Reconciler, j *journal.Journal, m *metrics.Metrics, recorder *timescale.Writer, log *zap.Logger) *Router {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{spot: spot, reconciler: reconciler, journal: j, metrics: m, recorder: recorder, log: log}
}

func (ro *Router) OnFill(ctx context.Context, fill Fill) {
	switch fill.Side {
	case "BUY":
		ro.handleBuyFill(ctx, fill)
	case "SELL":
		ro.handleSellFill(ctx, fill)
	default:
		ro.log.Debug("unhandled fill side", zap.String("side", fill.Side))
	}
}

func (ro *Router) handleBuyFill(ctx context.Context, fill Fill) {
	orders := state.OrdersSnapshot()
	index := -1
	for i, order := range orders.Orders {
		if order.Spot.BidPrice != nil && samePrice(*order.Spot.BidPrice, fill.Price) {
			index = i
			break
		}
	}
	if index < 0 {
		ro.log.Warn("buy fill matched no slot", zap.Float64("price", fill.Price))
		return
	}

	orders.Orders[index].Spot.FilledBuy += fill.Qty
	state.SetOrders(orders)
	ro.metrics.BuyFills.Inc()
	ro.record(index, fill)
	_ = ro.journal.Append(ctx, journal.Event{Kind: journal.KindBuyFill, Slot: index, Price: fill.Price, Qty: fill.Qty})

	askPtr := orders.Orders[index].Spot.AskPrice
	if askPtr == nil {
		ro.log.Warn("buy fill on slot without ask price", zap.Int("slot", index))
		return
	}
	askPrice := *askPtr

	symbol := state.AssetSnapshot().Symbol
	orderID, err := ro.spot.PlaceSpotLimit(ctx, symbol, "SELL", fill.Qty, askPrice)
	if err != nil {
		ro.metrics.OrdersFailed.Inc()
		ro.log.Warn("paired sell placement failed",
			zap.Int("slot", index),
			zap.Float64("price", askPrice),
			zap.Error(err))
		return
	}

	latest := state.OrdersSnapshot()
	if index < len(latest.Orders) {
		latest.Orders[index].Spot.SellOrderIDs = append(latest.Orders[index].Spot.SellOrderIDs, orderID)
		state.SetOrders(latest)
	}
	ro.metrics.OrdersPlaced.Inc()
	_ = ro.journal.Append(ctx, journal.Event{
		Kind:    journal.KindSellPlaced,
		Slot:    index,
		Price:   askPrice,
		Qty:     fill.Qty,
		OrderID: orderID,
	})
	ro.log.Info("paired sell placed",
		zap.Int("slot", index),
		zap.Float64("price", askPrice),
		zap.Float64("qty", fill.Qty),
		zap.String("order_id", orderID))
}

func (ro *Router) handleSellFill(ctx context.Context, fill Fill) {
	switch fill.Status {
	case "PARTIALLY_FILLED", "FILLED":
	default:
		ro.log.Debug("unhandled sell status", zap.String("status", fill.Status))
		return
	}

	orders := state.OrdersSnapshot()
	index := -1
	for i, order := range orders.Orders {
		if order.Spot.AskPrice != nil && samePrice(*order.Spot.AskPrice, fill.Price) {
			index = i
			break
		}
	}
	if index < 0 {
		ro.log.Warn("sell fill matched no slot", zap.Float64("price", fill.Price))
		return
	}

	orders.Orders[index].Spot.FilledSell += fill.Qty
	state.SetOrders(orders)
	ro.metrics.SellFills.Inc()
	ro.record(index, fill)
	_ = ro.journal.Append(ctx, journal.Event{Kind: journal.KindSellFill, Slot: index, Price: fill.Price, Qty: fill.Qty})

	if fill.Status != "FILLED" {
		return
	}
	ro.log.Info("sell filled, recycling slot", zap.Int("slot", index))
	go ro.finishSlot(ctx, index)
}

// finishSlot runs detached: it cancels whatever the completed slot still
// has resting, resets it and re-runs the reconciler on a fresh book.
func (ro *Router) finishSlot(ctx context.Context, index int) {
	if err := ro.reconciler.CleanSlot(ctx, index); err != nil {
		ro.log.Warn("slot clean after sell fill failed", zap.Int("slot", index), zap.Error(err))
		return
	}
	ro.reconciler.RefreshAndRun(ctx)
}

func (ro *Router) record(index int, fill Fill) {
	ro.recorder.EnqueueFill(timescale.Fill{
		Time:   time.Now().UTC(),
		Symbol: state.AssetSnapshot().Symbol,
		Side:   fill.Side,
		Price:  fill.Price,
		Qty:    fill.Qty,
		Slot:   index,
	})
}
