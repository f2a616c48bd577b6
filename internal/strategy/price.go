package strategy

import "math"

// priceEpsilon absorbs JSON re-parsing noise when comparing prices that all
// originate from the venue's own book or from RoundToTick.
const priceEpsilon = 1e-9

// floatEpsilon is the machine epsilon; the level evaluator treats best-bid
// moves smaller than this as no move at all.
var floatEpsilon = math.Nextafter(1, 2) - 1

// RoundToTick snaps a price to the nearest multiple of the tick size.
// Every price sent to the venue goes through this.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}

func samePrice(a, b float64) bool {
	return math.Abs(a-b) < priceEpsilon
}
