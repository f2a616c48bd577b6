package state

import "sync"

// NumSlots is the fixed number of managed buy levels. Slots are identified
// by index and are never added or removed at runtime.
const NumSlots = 4

const defaultAmountTarget = 500.0

// SpotState tracks the resting spot orders owned by one slot.
type SpotState struct {
	BidPrice     *float64 `json:"bid_price"`
	AskPrice     *float64 `json:"ask_price"`
	BuyOrderIDs  []string `json:"buy_order_ids"`
	SellOrderIDs []string `json:"sell_order_ids"`
	FilledBuy    float64  `json:"filled_buy"`
	FilledSell   float64  `json:"filled_sell"`
}

// ActiveOrder is one slot: a spot buy level plus its futures hedge leg.
type ActiveOrder struct {
	AmountTarget float64   `json:"amount_target"`
	HasOpenShort bool      `json:"has_open_short"`
	SizePosition float64   `json:"size_position"`
	Spot         SpotState `json:"spot"`
}

type OrdersState struct {
	Orders []ActiveOrder `json:"orders"`
}

// NewOrdersState returns a fresh state of NumSlots empty slots, each aiming
// to buy amountTarget base units.
func NewOrdersState(amountTarget float64) OrdersState {
	if amountTarget <= 0 {
		amountTarget = defaultAmountTarget
	}
	orders := make([]ActiveOrder, NumSlots)
	for i := range orders {
		orders[i] = ActiveOrder{AmountTarget: amountTarget}
	}
	return OrdersState{Orders: orders}
}

func floatPtr(v float64) *float64 {
	return &v
}

func (s SpotState) clone() SpotState {
	copied := s
	if s.BidPrice != nil {
		copied.BidPrice = floatPtr(*s.BidPrice)
	}
	if s.AskPrice != nil {
		copied.AskPrice = floatPtr(*s.AskPrice)
	}
	copied.BuyOrderIDs = append([]string(nil), s.BuyOrderIDs...)
	copied.SellOrderIDs = append([]string(nil), s.SellOrderIDs...)
	return copied
}

func (s OrdersState) clone() OrdersState {
	orders := make([]ActiveOrder, len(s.Orders))
	for i, order := range s.Orders {
		orders[i] = order
		orders[i].Spot = order.Spot.clone()
	}
	return OrdersState{Orders: orders}
}

var (
	ordersMu sync.Mutex
	orders   *OrdersState
)

func OrdersSnapshot() OrdersState {
	ordersMu.Lock()
	defer ordersMu.Unlock()
	if orders == nil {
		initial := NewOrdersState(defaultAmountTarget)
		orders = &initial
	}
	return orders.clone()
}

func SetOrders(s OrdersState) {
	ordersMu.Lock()
	defer ordersMu.Unlock()
	copied := s.clone()
	orders = &copied
}
