package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigPull/internal/domain/models"
)

func coin(symbol, id string, change, cap, volume float64) models.Coin {
	return models.Coin{
		Symbol:         symbol,
		ID:             id,
		CurrentPrice:   100,
		PriceChange24h: change,
		MarketCap:      cap,
		TotalVolume:    volume,
	}
}

func TestReasonExclusions(t *testing.T) {
	f := NewFilter(DefaultCriteria())

	assert.Equal(t, "excluded symbol", f.Reason(coin("USDT", "tether", 2, 1e11, 1e9)))
	assert.Equal(t, "excluded symbol", f.Reason(coin("usdt", "tether", 2, 1e11, 1e9)))
	assert.Equal(t, "excluded symbol", f.Reason(coin("WBTC", "wrapped-bitcoin", 4, 1e10, 1e8)))
	assert.Equal(t, "excluded id", f.Reason(coin("XYZ", "pax-gold", 4, 1e9, 1e8)))
}

func TestReasonThresholds(t *testing.T) {
	f := NewFilter(DefaultCriteria())

	// a move of exactly the minimum change is still eligible
	assert.Empty(t, f.Reason(coin("BTC", "bitcoin", 0.5, 1e10, 1e9)))
	assert.Empty(t, f.Reason(coin("BTC", "bitcoin", -0.5, 1e10, 1e9)))
	assert.Contains(t, f.Reason(coin("BTC", "bitcoin", 0.3, 1e10, 1e9)), "below")

	assert.Equal(t, "market cap too small", f.Reason(coin("ABC", "abc", 3, 5_000_000, 1e8)))
	assert.Equal(t, "market cap too large", f.Reason(coin("ABC", "abc", 3, 2e11, 1e8)))
	assert.Equal(t, "volume too low", f.Reason(coin("ABC", "abc", 3, 1e9, 500_000)))

	// unknown cap and volume pass the numeric gates
	assert.Empty(t, f.Reason(coin("NEW", "new-coin", 3, 0, 0)))
}

func TestFilterSortsByAbsoluteChange(t *testing.T) {
	f := NewFilter(DefaultCriteria())
	in := []models.Coin{
		coin("AAA", "aaa", 1.0, 1e9, 1e8),
		coin("BBB", "bbb", -8.0, 1e9, 1e8),
		coin("CCC", "ccc", 4.0, 1e9, 1e8),
		coin("USDT", "tether", 9.0, 1e11, 1e10),
	}

	out := f.Filter(in)
	require.Len(t, out, 3)
	assert.Equal(t, "BBB", out[0].Symbol)
	assert.Equal(t, "CCC", out[1].Symbol)
	assert.Equal(t, "AAA", out[2].Symbol)
}

func TestScreenAnnotates(t *testing.T) {
	f := NewFilter(DefaultCriteria())
	out := f.Screen([]models.Coin{
		coin("BTC", "bitcoin", 3, 1e10, 1e9),
		coin("DAI", "dai", 3, 1e9, 1e8),
	})

	require.Len(t, out, 2)
	assert.True(t, out[0].Eligible)
	assert.Empty(t, out[0].Reason)
	assert.False(t, out[1].Eligible)
	assert.Equal(t, "excluded symbol", out[1].Reason)
}
