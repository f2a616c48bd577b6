package state

import "sync"

type OrderbookLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// OrderbookState holds the latest depth snapshot. Bids are ordered
// descending by price, asks ascending, as delivered by the venue.
// The whole value is replaced on every refresh.
type OrderbookState struct {
	Bids []OrderbookLevel `json:"bids"`
	Asks []OrderbookLevel `json:"asks"`
}

func (s OrderbookState) clone() OrderbookState {
	return OrderbookState{
		Bids: append([]OrderbookLevel(nil), s.Bids...),
		Asks: append([]OrderbookLevel(nil), s.Asks...),
	}
}

var (
	orderbookMu sync.Mutex
	orderbook   *OrderbookState
)

func OrderbookSnapshot() OrderbookState {
	orderbookMu.Lock()
	defer orderbookMu.Unlock()
	if orderbook == nil {
		orderbook = &OrderbookState{}
	}
	return orderbook.clone()
}

func SetOrderbook(s OrderbookState) {
	orderbookMu.Lock()
	defer orderbookMu.Unlock()
	copied := s.clone()
	orderbook = &copied
}
