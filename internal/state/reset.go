package state

// Reset drops all four stores back to their lazy defaults. Test helper; the
// running bot never calls it.
func Reset() {
	assetMu.Lock()
	asset = nil
	assetMu.Unlock()

	orderbookMu.Lock()
	orderbook = nil
	orderbookMu.Unlock()

	ordersMu.Lock()
	orders = nil
	ordersMu.Unlock()

	marketPriceMu.Lock()
	marketPrice = nil
	marketPriceMu.Unlock()
}
