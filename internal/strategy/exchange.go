package strategy

import (
	"context"

	"bn-ladder-bot/internal/state"
)

// SpotExchange is the slice of the REST client the reconciler and router
// mutate the spot book through.
type SpotExchange interface {
	PlaceSpotLimit(ctx context.Context, symbol, side string, qty, price float64) (string, error)
	CancelSpotOrder(ctx context.Context, symbol, orderID string) error
	Depth(ctx context.Context, symbol string) (state.OrderbookState, error)
}

// FuturesExchange is the slice the hedger trades the perp leg through.
type FuturesExchange interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	PlaceFuturesMarket(ctx context.Context, symbol, side string, qty float64, reduceOnly bool) (string, error)
}
