package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	OrdersPlaced    Counter
	OrdersCancelled Counter
	OrdersFailed    Counter
	ShortsOpened    Counter
	ShortsClosed    Counter
	BuyFills        Counter
	SellFills       Counter
	FramesDropped   Counter
	ReconcileRuns   Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		OrdersPlaced:    n,
		OrdersCancelled: n,
		OrdersFailed:    n,
		ShortsOpened:    n,
		ShortsClosed:    n,
		BuyFills:        n,
		SellFills:       n,
		FramesDropped:   n,
		ReconcileRuns:   n,
	}
}
