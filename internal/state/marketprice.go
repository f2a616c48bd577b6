package state

import "sync"

// MarketPriceState remembers the previous bookTicker best bid so the level
// evaluator can tell ticks up from ticks down.
type MarketPriceState struct {
	LastBestBid *float64 `json:"last_best_bid"`
}

func (s MarketPriceState) clone() MarketPriceState {
	copied := s
	if s.LastBestBid != nil {
		copied.LastBestBid = floatPtr(*s.LastBestBid)
	}
	return copied
}

var (
	marketPriceMu sync.Mutex
	marketPrice   *MarketPriceState
)

func MarketPriceSnapshot() MarketPriceState {
	marketPriceMu.Lock()
	defer marketPriceMu.Unlock()
	if marketPrice == nil {
		marketPrice = &MarketPriceState{}
	}
	return marketPrice.clone()
}

func SetMarketPrice(s MarketPriceState) {
	marketPriceMu.Lock()
	defer marketPriceMu.Unlock()
	copied := s.clone()
	marketPrice = &copied
}
