package strategy

import (
	"context"
	"testing"

	"bn-ladder-bot/internal/state"
)

// ladderBook is a book matching the standard four-slot ladder, so the
// reconcile pass after a hedge leaves the slots alone.
func ladderBook() state.OrderbookState {
	return state.OrderbookState{
		Bids: levels(1.0000, 0.9999, 0.9998, 0.9997),
		Asks: levels(1.0001, 1.0002, 1.0003, 1.0004),
	}
}

func newTestHedger(spot *fakeSpot, futures *fakeFutures) *Hedger {
	return NewHedger(futures, newTestReconciler(spot), nil, nil, nil)
}

func setLadderSlots(t *testing.T) {
	t.Helper()
	state.SetOrders(state.OrdersState{Orders: []state.ActiveOrder{
		slotWithBuy(500, 1.0000, "b0"),
		slotWithBuy(500, 0.9999, "b1"),
		slotWithBuy(500, 0.9998, "b2"),
		slotWithBuy(500, 0.9997, "b3"),
	}})
	state.SetOrderbook(ladderBook())
}

func TestOpenShortHedgesFirstSlotAboveBid(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)

	spot := &fakeSpot{depth: ladderBook()}
	futures := &fakeFutures{}
	newTestHedger(spot, futures).OpenShort(context.Background(), 0.9999)

	orders := futures.placedOrders()
	if len(orders) != 1 {
		t.Fatalf("placed %d futures orders, want 1", len(orders))
	}
	if orders[0].side != "SELL" || orders[0].qty != 500 || orders[0].reduceOnly {
		t.Fatalf("futures order = %+v, want plain SELL 500", orders[0])
	}
	if len(futures.leverages) != 1 || futures.leverages[0] != hedgeLeverage {
		t.Fatalf("leverage calls = %v, want [1]", futures.leverages)
	}

	slot := state.OrdersSnapshot().Orders[0]
	if !slot.HasOpenShort || slot.SizePosition != 500 {
		t.Fatalf("slot 0 = short=%v size=%v, want open short of 500", slot.HasOpenShort, slot.SizePosition)
	}
	if spot.depthCalls == 0 {
		t.Fatalf("expected an orderbook refresh after the hedge")
	}
}

func TestOpenShortSizesAgainstSoldQuantity(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)
	orders := state.OrdersSnapshot()
	orders.Orders[0].Spot.FilledBuy = 500
	orders.Orders[0].Spot.FilledSell = 120
	state.SetOrders(orders)

	spot := &fakeSpot{depth: ladderBook()}
	futures := &fakeFutures{}
	newTestHedger(spot, futures).OpenShort(context.Background(), 0.9999)

	placed := futures.placedOrders()
	if len(placed) != 1 || placed[0].qty != 380 {
		t.Fatalf("futures orders = %+v, want one SELL of 380", placed)
	}
}

func TestOpenShortSkipsFailedSlotAndKeepsScanning(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)

	spot := &fakeSpot{depth: ladderBook()}
	futures := &fakeFutures{failFirstPlace: true}
	newTestHedger(spot, futures).OpenShort(context.Background(), 0.9990)

	placed := futures.placedOrders()
	if len(placed) != 1 {
		t.Fatalf("futures orders = %+v, want one after the failed attempt", placed)
	}
	snap := state.OrdersSnapshot()
	if snap.Orders[0].HasOpenShort {
		t.Fatalf("failed slot must not be marked hedged")
	}
	if !snap.Orders[1].HasOpenShort || snap.Orders[1].SizePosition != 500 {
		t.Fatalf("slot 1 = %+v, want the hedge to land there", snap.Orders[1])
	}
}

func TestOpenShortWithoutCandidateStillRefreshes(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)

	spot := &fakeSpot{depth: ladderBook()}
	futures := &fakeFutures{}
	// Best bid at the top level: no slot sits above it.
	newTestHedger(spot, futures).OpenShort(context.Background(), 1.0000)

	if len(futures.placedOrders()) != 0 {
		t.Fatalf("no hedge expected")
	}
	if spot.depthCalls != 1 {
		t.Fatalf("depth calls = %d, want 1", spot.depthCalls)
	}
}

func TestCloseShortReducesOnlyAtTheHedgedLevel(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)
	orders := state.OrdersSnapshot()
	orders.Orders[1].HasOpenShort = true
	orders.Orders[1].SizePosition = 500
	state.SetOrders(orders)

	spot := &fakeSpot{depth: ladderBook()}
	futures := &fakeFutures{}
	newTestHedger(spot, futures).CloseShort(context.Background(), 0.9999)

	placed := futures.placedOrders()
	if len(placed) != 1 {
		t.Fatalf("futures orders = %+v, want one close", placed)
	}
	if placed[0].side != "BUY" || placed[0].qty != 500 || !placed[0].reduceOnly {
		t.Fatalf("close order = %+v, want reduce-only BUY 500", placed[0])
	}

	slot := state.OrdersSnapshot().Orders[1]
	if slot.HasOpenShort || slot.SizePosition != 0 {
		t.Fatalf("slot 1 still hedged after close: %+v", slot)
	}
}

func TestCloseShortIgnoresOtherLevels(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)
	orders := state.OrdersSnapshot()
	orders.Orders[1].HasOpenShort = true
	orders.Orders[1].SizePosition = 500
	state.SetOrders(orders)

	spot := &fakeSpot{depth: ladderBook()}
	futures := &fakeFutures{}
	// The bid returned to a different slot's level.
	newTestHedger(spot, futures).CloseShort(context.Background(), 0.9998)

	if len(futures.placedOrders()) != 0 {
		t.Fatalf("no close expected away from the hedged level")
	}
	if slot := state.OrdersSnapshot().Orders[1]; !slot.HasOpenShort {
		t.Fatalf("hedge state must survive")
	}
}
