package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"bn-ladder-bot/internal/state"
)

type placedOrder struct {
	symbol string
	side   string
	qty    float64
	price  float64
}

type fakeSpot struct {
	mu         sync.Mutex
	placed     []placedOrder
	cancelled  []string
	depth      state.OrderbookState
	depthCalls int
	depthErr   error
	placeErr   error
	cancelErr  error
	nextID     int
}

func (f *fakeSpot) PlaceSpotLimit(_ context.Context, symbol, side string, qty, price float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.nextID++
	f.placed = append(f.placed, placedOrder{symbol: symbol, side: side, qty: qty, price: price})
	return fmt.Sprintf("%d", f.nextID), nil
}

func (f *fakeSpot) CancelSpotOrder(_ context.Context, _, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeSpot) Depth(_ context.Context, _ string) (state.OrderbookState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depthCalls++
	if f.depthErr != nil {
		return state.OrderbookState{}, f.depthErr
	}
	return f.depth, nil
}

func (f *fakeSpot) placedOrders() []placedOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]placedOrder(nil), f.placed...)
}

func (f *fakeSpot) cancelledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

type futuresOrder struct {
	symbol     string
	side       string
	qty        float64
	reduceOnly bool
}

type fakeFutures struct {
	mu             sync.Mutex
	leverages      []int
	orders         []futuresOrder
	leverageErr    error
	placeErr       error
	failFirstPlace bool
}

func (f *fakeFutures) SetLeverage(_ context.Context, _ string, leverage int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.leverageErr != nil {
		return f.leverageErr
	}
	f.leverages = append(f.leverages, leverage)
	return nil
}

func (f *fakeFutures) PlaceFuturesMarket(_ context.Context, symbol, side string, qty float64, reduceOnly bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFirstPlace {
		f.failFirstPlace = false
		return "", errors.New("futures down")
	}
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.orders = append(f.orders, futuresOrder{symbol: symbol, side: side, qty: qty, reduceOnly: reduceOnly})
	return fmt.Sprintf("f%d", len(f.orders)), nil
}

func (f *fakeFutures) placedOrders() []futuresOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]futuresOrder(nil), f.orders...)
}

func approxEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// setupAsset installs the standard test pair.
func setupAsset() {
	state.SetAsset(state.AssetState{Symbol: "ACTUSDT", TickSize: 0.0001})
}

func levels(prices ...float64) []state.OrderbookLevel {
	out := make([]state.OrderbookLevel, len(prices))
	for i, p := range prices {
		out[i] = state.OrderbookLevel{Price: p, Qty: 10}
	}
	return out
}

// slotWithBuy returns a slot holding one resting BUY at price.
func slotWithBuy(amount, price float64, orderID string) state.ActiveOrder {
	bid := price
	ask := RoundToTick(price+0.0001, 0.0001)
	return state.ActiveOrder{
		AmountTarget: amount,
		Spot: state.SpotState{
			BidPrice:    &bid,
			AskPrice:    &ask,
			BuyOrderIDs: []string{orderID},
		},
	}
}
