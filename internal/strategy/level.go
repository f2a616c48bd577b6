package strategy

import (
	"context"
	"math"
	"time"

	"bn-ladder-bot/internal/state"
	"bn-ladder-bot/internal/timescale"

	"go.uber.org/zap"
)

// shortDispatcher is what the evaluator triggers; in production it is the
// Hedger, detached per decision.
type shortDispatcher interface {
	OpenShort(ctx context.Context, bestBid float64)
	CloseShort(ctx context.Context, bestBid float64)
}

// Evaluator turns each bookTicker best bid into a hedge decision by
// comparing it against the previous one.
type Evaluator struct {
	hedger   shortDispatcher
	recorder *timescale.Writer
	log      *zap.Logger
}

func NewEvaluator(hedger shortDispatcher, recorder *timescale.Writer, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{hedger: hedger, recorder: recorder, log: log}
}

// OnBestBid compares the new best bid with the stored one: a tick down
// opens a short, a tick up closes one, anything within machine epsilon is a
// no-op. Hedge actions run as detached tasks so the feed read loop never
// blocks on REST. The stored bid is updated after the decision.
func (e *Evaluator) OnBestBid(ctx context.Context, bestBid float64) {
	e.recorder.EnqueueTick(timescale.Tick{
		Time:    time.Now().UTC(),
		Symbol:  state.AssetSnapshot().Symbol,
		BestBid: bestBid,
	})

	snap := state.MarketPriceSnapshot()
	if snap.LastBestBid != nil {
		last := *snap.LastBestBid
		switch {
		case math.Abs(bestBid-last) < floatEpsilon:
			return
		case bestBid > last:
			e.log.Debug("bid ticked up", zap.Float64("from", last), zap.Float64("to", bestBid))
			go e.hedger.CloseShort(ctx, bestBid)
		default:
			e.log.Debug("bid ticked down", zap.Float64("from", last), zap.Float64("to", bestBid))
			go e.hedger.OpenShort(ctx, bestBid)
		}
	}

	bid := bestBid
	state.SetMarketPrice(state.MarketPriceState{LastBestBid: &bid})
}
