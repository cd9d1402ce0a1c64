package models

// Coin is a market catalog entry used for screening.
// MarketCap and TotalVolume are 0 when the catalog did not report them.
type Coin struct {
	Symbol         string  `json:"symbol"`
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	PriceChange24h float64 `json:"price_change_24h"`
	MarketCap      float64 `json:"market_cap"`
	TotalVolume    float64 `json:"total_volume"`
}

// ScreenedCoin is a catalog entry with its screening verdict.
type ScreenedCoin struct {
	Coin
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}
