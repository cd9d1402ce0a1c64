package screener

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"SigPull/internal/domain/models"
	domsvc "SigPull/internal/domain/service"
)

// Symbols never worth signalling on: pegged, wrapped or commodity-backed
// tokens whose price action is not their own.
var excludedSymbols = map[string]struct{}{
	// stablecoins
	"USDT": {}, "USDC": {}, "BUSD": {}, "DAI": {}, "TUSD": {}, "USDP": {},
	"FDUSD": {}, "FRAX": {}, "LUSD": {}, "USDD": {}, "GUSD": {}, "PYUSD": {},
	"USDE": {}, "USDS": {},
	// wrapped / liquid staked
	"WBTC": {}, "WETH": {}, "WBETH": {}, "STETH": {}, "WSTETH": {},
	"RETH": {}, "CBETH": {}, "WEETH": {},
	// commodity backed
	"PAXG": {}, "XAUT": {},
}

var excludedIDs = map[string]struct{}{
	"tether": {}, "usd-coin": {}, "binance-usd": {}, "dai": {}, "true-usd": {},
	"first-digital-usd": {}, "frax": {}, "usdd": {}, "paypal-usd": {},
	"ethena-usde": {},
	"wrapped-bitcoin": {}, "weth": {}, "wrapped-beacon-eth": {},
	"staked-ether": {}, "wrapped-steth": {}, "rocket-pool-eth": {},
	"coinbase-wrapped-staked-eth": {}, "wrapped-eeth": {},
	"pax-gold": {}, "tether-gold": {},
}

// Criteria are the numeric screening thresholds.
type Criteria struct {
	MinChangePercent float64 `json:"min_change_percent"`
	MinMarketCap     float64 `json:"min_market_cap"`
	MaxMarketCap     float64 `json:"max_market_cap"`
	MinVolume        float64 `json:"min_volume"`
}

// DefaultCriteria returns the standard screening thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinChangePercent: 0.5,
		MinMarketCap:     10_000_000,
		MaxMarketCap:     100_000_000_000,
		MinVolume:        1_000_000,
	}
}

// Filter screens catalog entries down to tradable candidates.
type Filter struct {
	criteria Criteria
}

var _ domsvc.CoinScreener = (*Filter)(nil)

func NewFilter(criteria Criteria) *Filter {
	return &Filter{criteria: criteria}
}

// Criteria returns the active thresholds.
func (f *Filter) Criteria() Criteria { return f.criteria }

// Filter returns the eligible coins sorted by absolute 24h change, most
// volatile first. Ordering among equal changes follows the input.
func (f *Filter) Filter(coins []models.Coin) []models.Coin {
	out := make([]models.Coin, 0, len(coins))
	for _, c := range coins {
		if f.Reason(c) == "" {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].PriceChange24h) > math.Abs(out[j].PriceChange24h)
	})
	return out
}

// Reason returns the first rejection reason for a coin, or "" when eligible.
func (f *Filter) Reason(c models.Coin) string {
	if _, bad := excludedSymbols[strings.ToUpper(c.Symbol)]; bad {
		return "excluded symbol"
	}
	if _, bad := excludedIDs[strings.ToLower(c.ID)]; bad {
		return "excluded id"
	}
	// a change of exactly the threshold still passes
	if math.Abs(c.PriceChange24h) < f.criteria.MinChangePercent {
		return fmt.Sprintf("24h change %.2f%% below %.2f%%", c.PriceChange24h, f.criteria.MinChangePercent)
	}
	if c.MarketCap > 0 {
		if c.MarketCap < f.criteria.MinMarketCap {
			return "market cap too small"
		}
		if c.MarketCap > f.criteria.MaxMarketCap {
			return "market cap too large"
		}
	}
	if c.TotalVolume > 0 && c.TotalVolume < f.criteria.MinVolume {
		return "volume too low"
	}
	return ""
}

// Screen annotates every coin with its verdict, for the filtered-coins API.
func (f *Filter) Screen(coins []models.Coin) []models.ScreenedCoin {
	out := make([]models.ScreenedCoin, 0, len(coins))
	for _, c := range coins {
		reason := f.Reason(c)
		out = append(out, models.ScreenedCoin{Coin: c, Eligible: reason == "", Reason: reason})
	}
	return out
}
