package strategy

import (
	"context"
	"math"

	"bn-ladder-bot/internal/journal"
	"bn-ladder-bot/internal/metrics"
	"bn-ladder-bot/internal/state"

	"go.uber.org/zap"
)

const hedgeLeverage = 1

// Hedger neutralizes slot inventory on the futures market: a x1 MARKET
// short when the bid ticks below a managed BUY, a reduce-only MARKET buy
// when the bid comes back to it.
type Hedger struct {
	futures    FuturesExchange
	reconciler *Reconciler
	journal    *journal.Journal
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewHedger(futures FuturesExchange, reconciler *Reconciler, j *journal.Journal, m *metrics.Metrics, log *zap.Logger) *Hedger {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hedger{futures: futures, reconciler: reconciler, journal: j, metrics: m, log: log}
}

// OpenShort hedges the first slot whose BUY level sits above the new best
// bid and has no live short. Whether or not a candidate is found, the pass
// ends with an orderbook refresh and a reconciliation run.
func (h *Hedger) OpenShort(ctx context.Context, bestBid float64) {
	symbol := state.AssetSnapshot().Symbol
	orders := state.OrdersSnapshot()

	for index, order := range orders.Orders {
		if order.Spot.BidPrice == nil || order.HasOpenShort {
			continue
		}
		if bestBid >= *order.Spot.BidPrice {
			continue
		}
		size := order.AmountTarget - order.Spot.FilledSell
		if size <= 0 {
			continue
		}

		if err := h.futures.SetLeverage(ctx, symbol, hedgeLeverage); err != nil {
			h.metrics.OrdersFailed.Inc()
			h.log.Warn("set leverage failed", zap.Int("slot", index), zap.Error(err))
			continue
		}
		if _, err := h.futures.PlaceFuturesMarket(ctx, symbol, "SELL", size, false); err != nil {
			h.metrics.OrdersFailed.Inc()
			h.log.Warn("short open failed", zap.Int("slot", index), zap.Float64("size", size), zap.Error(err))
			continue
		}

		latest := state.OrdersSnapshot()
		if index < len(latest.Orders) {
			latest.Orders[index].HasOpenShort = true
			latest.Orders[index].SizePosition = size
			state.SetOrders(latest)
		}
		h.metrics.ShortsOpened.Inc()
		_ = h.journal.Append(ctx, journal.Event{
			Kind:  journal.KindShortOpen,
			Slot:  index,
			Price: *order.Spot.BidPrice,
			Qty:   size,
		})
		h.log.Info("short opened",
			zap.Int("slot", index),
			zap.Float64("best_bid", bestBid),
			zap.Float64("size", size))
		h.reconciler.Requeue(order.Spot.SellOrderIDs)
		h.reconciler.RefreshAndRun(ctx)
		return
	}

	h.reconciler.RefreshAndRun(ctx)
}

// CloseShort unwinds the first hedged slot whose BUY level the bid has
// returned to. Reduce-only keeps a duplicate close from flipping the
// position.
func (h *Hedger) CloseShort(ctx context.Context, bestBid float64) {
	symbol := state.AssetSnapshot().Symbol
	orders := state.OrdersSnapshot()

	for index, order := range orders.Orders {
		if order.Spot.BidPrice == nil || !order.HasOpenShort {
			continue
		}
		if math.Abs(bestBid-*order.Spot.BidPrice) >= floatEpsilon {
			continue
		}
		size := order.SizePosition
		if size <= 0 {
			continue
		}

		if err := h.futures.SetLeverage(ctx, symbol, hedgeLeverage); err != nil {
			h.metrics.OrdersFailed.Inc()
			h.log.Warn("set leverage failed", zap.Int("slot", index), zap.Error(err))
			continue
		}
		if _, err := h.futures.PlaceFuturesMarket(ctx, symbol, "BUY", size, true); err != nil {
			h.metrics.OrdersFailed.Inc()
			h.log.Warn("short close failed", zap.Int("slot", index), zap.Float64("size", size), zap.Error(err))
			continue
		}

		latest := state.OrdersSnapshot()
		if index < len(latest.Orders) {
			latest.Orders[index].HasOpenShort = false
			latest.Orders[index].SizePosition = 0
			state.SetOrders(latest)
		}
		h.metrics.ShortsClosed.Inc()
		_ = h.journal.Append(ctx, journal.Event{
			Kind:  journal.KindShortClose,
			Slot:  index,
			Price: *order.Spot.BidPrice,
			Qty:   size,
		})
		h.log.Info("short closed",
			zap.Int("slot", index),
			zap.Float64("best_bid", bestBid),
			zap.Float64("size", size))
		h.reconciler.RefreshAndRun(ctx)
		return
	}

	h.reconciler.RefreshAndRun(ctx)
}
