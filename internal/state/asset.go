package state

import "sync"

// AssetState describes the single spot pair the bot trades. It is built
// once at startup from configuration and never mutated afterwards.
type AssetState struct {
	Symbol   string  `json:"symbol"`
	TickSize float64 `json:"tick_size"`
}

const (
	defaultSymbol   = "ACTUSDT"
	defaultTickSize = 0.0001
)

var (
	assetMu sync.Mutex
	asset   *AssetState
)

func AssetSnapshot() AssetState {
	assetMu.Lock()
	defer assetMu.Unlock()
	if asset == nil {
		asset = &AssetState{Symbol: defaultSymbol, TickSize: defaultTickSize}
	}
	return *asset
}

func SetAsset(s AssetState) {
	assetMu.Lock()
	defer assetMu.Unlock()
	copied := s
	asset = &copied
}
