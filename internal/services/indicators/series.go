package indicators

import (
	talib "github.com/markcheno/go-talib"

	"SigPull/internal/domain/models"
	domrepo "SigPull/internal/domain/repository"
)

// Indicator column names stored on a Series.
const (
	ColRSI        = "rsi"
	ColMACD       = "macd"
	ColMACDSignal = "macd_signal"
	ColMACDHist   = "macd_hist"
	ColBBUpper    = "bb_upper"
	ColBBMiddle   = "bb_middle"
	ColBBLower    = "bb_lower"
	ColSMA20      = "sma20"
	ColSMA50      = "sma50"
	ColEMA20      = "ema20"
	ColATR        = "atr"
	ColStochK     = "stoch_k"
	ColStochD     = "stoch_d"
	ColVolumeSMA  = "vol_sma20"
)

// MinCandles is the minimum history length for a meaningful analysis.
const MinCandles = 20

// BuildSeries computes indicator columns for a candle history. Columns are
// aligned with the candles; warm-up positions hold zeros (talib convention).
// Indicators whose period exceeds the history are left out of the map.
func BuildSeries(symbol string, tf domrepo.Timeframe, candles []models.Candle) *models.Series {
	s := &models.Series{
		Symbol:     symbol,
		Timeframe:  string(tf),
		Candles:    candles,
		Indicators: make(map[string][]float64),
	}
	if len(candles) == 0 {
		return s
	}

	closes := s.Closes()
	highs := s.Highs()
	lows := s.Lows()
	volumes := s.Volumes()
	n := len(closes)

	put := func(name string, col []float64) {
		if len(col) == n {
			s.Indicators[name] = col
		}
	}

	if n > 14 {
		put(ColRSI, talib.Rsi(closes, 14))
		put(ColATR, talib.Atr(highs, lows, closes, 14))
	}
	if n > 33 { // slow EMA 26 + signal EMA 9
		macd, signal, hist := talib.Macd(closes, 12, 26, 9)
		put(ColMACD, macd)
		put(ColMACDSignal, signal)
		put(ColMACDHist, hist)
	}
	if n >= 20 {
		upper, middle, lower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)
		put(ColBBUpper, upper)
		put(ColBBMiddle, middle)
		put(ColBBLower, lower)
		put(ColSMA20, talib.Sma(closes, 20))
		put(ColEMA20, talib.Ema(closes, 20))
		put(ColVolumeSMA, talib.Sma(volumes, 20))
	}
	if n >= 50 {
		put(ColSMA50, talib.Sma(closes, 50))
	}
	if n > 17 { // fastK 14 + slowK 3 + slowD 3
		k, d := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
		put(ColStochK, k)
		put(ColStochD, d)
	}

	return s
}
