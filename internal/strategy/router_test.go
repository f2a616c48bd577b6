package strategy

import (
	"context"
	"testing"
	"time"

	"bn-ladder-bot/internal/state"
)

func newTestRouter(spot *fakeSpot) *Router {
	return NewRouter(spot, newTestReconciler(spot), nil, nil, nil, nil)
}

func TestBuyFillPlacesPairedSell(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)

	spot := &fakeSpot{}
	newTestRouter(spot).OnFill(context.Background(), Fill{
		Side:   "BUY",
		Price:  0.9999,
		Qty:    120,
		Status: "PARTIALLY_FILLED",
	})

	slot := state.OrdersSnapshot().Orders[1]
	if slot.Spot.FilledBuy != 120 {
		t.Fatalf("filled buy = %v, want 120", slot.Spot.FilledBuy)
	}
	placed := spot.placedOrders()
	if len(placed) != 1 {
		t.Fatalf("placed %d orders, want the paired sell", len(placed))
	}
	if placed[0].side != "SELL" || placed[0].qty != 120 || !approxEq(placed[0].price, 1.0000) {
		t.Fatalf("paired sell = %+v, want SELL 120 @ 1.0000", placed[0])
	}
	if got := slot.Spot.SellOrderIDs; len(got) != 1 {
		t.Fatalf("sell order ids = %v, want one", got)
	}
}

func TestBuyFillWithoutMatchingSlotIsDropped(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)

	spot := &fakeSpot{}
	newTestRouter(spot).OnFill(context.Background(), Fill{
		Side:   "BUY",
		Price:  0.5,
		Qty:    120,
		Status: "PARTIALLY_FILLED",
	})

	if len(spot.placedOrders()) != 0 {
		t.Fatalf("no sell expected for an unmatched fill")
	}
	for i, slot := range state.OrdersSnapshot().Orders {
		if slot.Spot.FilledBuy != 0 {
			t.Fatalf("slot %d filled buy mutated: %v", i, slot.Spot.FilledBuy)
		}
	}
}

func TestSellPartialFillOnlyAccumulates(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)
	orders := state.OrdersSnapshot()
	orders.Orders[1].Spot.SellOrderIDs = []string{"s1"}
	state.SetOrders(orders)

	spot := &fakeSpot{}
	newTestRouter(spot).OnFill(context.Background(), Fill{
		Side:   "SELL",
		Price:  1.0000,
		Qty:    50,
		Status: "PARTIALLY_FILLED",
	})

	slot := state.OrdersSnapshot().Orders[1]
	if slot.Spot.FilledSell != 50 {
		t.Fatalf("filled sell = %v, want 50", slot.Spot.FilledSell)
	}
	if len(spot.cancelledIDs()) != 0 || len(slot.Spot.SellOrderIDs) != 1 {
		t.Fatalf("partial fill must leave the slot resting")
	}
}

func TestSellFillWithUnknownStatusIsIgnored(t *testing.T) {
	state.Reset()
	setupAsset()
	setLadderSlots(t)

	spot := &fakeSpot{}
	newTestRouter(spot).OnFill(context.Background(), Fill{
		Side:   "SELL",
		Price:  1.0000,
		Qty:    50,
		Status: "NEW",
	})

	if slot := state.OrdersSnapshot().Orders[1]; slot.Spot.FilledSell != 0 {
		t.Fatalf("filled sell mutated on NEW status: %v", slot.Spot.FilledSell)
	}
}

func TestSellFilledRecyclesSlotThroughFullRoundTrip(t *testing.T) {
	state.Reset()
	setupAsset()
	state.SetOrders(state.NewOrdersState(500))
	state.SetOrderbook(ladderBook())

	spot := &fakeSpot{depth: ladderBook()}
	router := newTestRouter(spot)

	// Cold start: four resting BUYs.
	router.reconciler.Run(context.Background())
	buyID := state.OrdersSnapshot().Orders[0].Spot.BuyOrderIDs[0]

	// The top BUY fills completely and its paired SELL goes out.
	router.OnFill(context.Background(), Fill{Side: "BUY", Price: 1.0000, Qty: 500, Status: "FILLED"})
	if got := state.OrdersSnapshot().Orders[0].Spot.SellOrderIDs; len(got) != 1 {
		t.Fatalf("sell order ids = %v, want one", got)
	}

	// The SELL completes; the slot recycles on a detached pass.
	router.OnFill(context.Background(), Fill{Side: "SELL", Price: 1.0001, Qty: 500, Status: "FILLED"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		slot := state.OrdersSnapshot().Orders[0]
		fresh := len(slot.Spot.BuyOrderIDs) == 1 &&
			slot.Spot.BuyOrderIDs[0] != buyID &&
			slot.Spot.FilledBuy == 0 &&
			slot.Spot.FilledSell == 0 &&
			len(slot.Spot.SellOrderIDs) == 0
		if fresh {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("slot 0 never recycled: %+v", slot.Spot)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The stale BUY and the filled-out SELL's sibling orders were cancelled.
	cancelled := spot.cancelledIDs()
	found := false
	for _, id := range cancelled {
		if id == buyID {
			found = true
		}
	}
	if !found {
		t.Fatalf("cancelled %v, want the original buy %s among them", cancelled, buyID)
	}
}
