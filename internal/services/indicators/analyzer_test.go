package indicators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigPull/internal/domain/models"
	xlogger "SigPull/pkg/logger"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return NewAnalyzer(DefaultConfig(), l)
}

// testSeries builds a series with n flat candles and the given indicator
// columns, enough for the rule methods that only look at column tails.
func testSeries(n int, lastClose float64, cols map[string][]float64) *models.Series {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{Open: lastClose, High: lastClose, Low: lastClose, Close: lastClose, Volume: 100}
	}
	return &models.Series{Symbol: "BTC", Timeframe: "1h", Candles: candles, Indicators: cols}
}

func TestAnalyzeInsufficientHistory(t *testing.T) {
	a := newTestAnalyzer(t)
	verdict, subs, err := a.Analyze(context.Background(), testSeries(MinCandles-1, 100, nil))
	require.NoError(t, err)
	assert.Equal(t, models.DirectionHold, verdict.Direction)
	assert.Zero(t, verdict.Confidence)
	assert.Empty(t, subs)
}

func TestRSIVote(t *testing.T) {
	a := newTestAnalyzer(t)

	tests := []struct {
		name string
		rsi  float64
		dir  models.Direction
		conf float64
	}{
		{"oversold", 20, models.DirectionLong, 70},
		{"overbought", 82, models.DirectionShort, 72},
		{"neutral", 50, models.DirectionHold, 50},
		{"deeply oversold capped", 0, models.DirectionLong, 90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testSeries(30, 100, map[string][]float64{ColRSI: {tc.rsi}})
			v, ok := a.rsiVote(s)
			require.True(t, ok)
			assert.Equal(t, tc.dir, v.Direction)
			assert.InDelta(t, tc.conf, v.Confidence, 1e-9)
		})
	}
}

func TestRSIDivergence(t *testing.T) {
	closes := make([]float64, 20)
	rsi := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i) // falling price
		rsi[i] = 30 + float64(i)     // rising momentum
	}
	assert.Equal(t, "bullish", rsiDivergence(closes, rsi))

	for i := range closes {
		closes[i] = 100 + float64(i)
		rsi[i] = 70 - float64(i)
	}
	assert.Equal(t, "bearish", rsiDivergence(closes, rsi))

	assert.Empty(t, rsiDivergence(closes[:5], rsi[:5]))
}

func TestMACDVote(t *testing.T) {
	a := newTestAnalyzer(t)

	// bullish crossover: line moves from below to above signal
	s := testSeries(30, 100, map[string][]float64{
		ColMACD:       {-1, 1},
		ColMACDSignal: {0, 0},
		ColMACDHist:   {-1, 1},
	})
	v, ok := a.macdVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 80, v.Confidence, 1e-9)
	assert.Equal(t, "bullish", v.Meta["crossover"])

	// sustained bullish alignment without a cross
	s = testSeries(30, 100, map[string][]float64{
		ColMACD:       {2, 2},
		ColMACDSignal: {1, 1},
		ColMACDHist:   {1, 1},
	})
	v, ok = a.macdVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 70, v.Confidence, 1e-9)

	// bearish crossover
	s = testSeries(30, 100, map[string][]float64{
		ColMACD:       {1, -1},
		ColMACDSignal: {0, 0},
		ColMACDHist:   {1, -1},
	})
	v, ok = a.macdVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, v.Direction)
	assert.InDelta(t, 80, v.Confidence, 1e-9)
}

func TestBollingerVote(t *testing.T) {
	a := newTestAnalyzer(t)
	cols := func() map[string][]float64 {
		return map[string][]float64{
			ColBBUpper:  {110},
			ColBBMiddle: {100},
			ColBBLower:  {90},
		}
	}

	v, ok := a.bollingerVote(testSeries(30, 89, cols()))
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 75, v.Confidence, 1e-9)
	assert.InDelta(t, 0.2, v.Meta["width"].(float64), 1e-9)

	v, ok = a.bollingerVote(testSeries(30, 111, cols()))
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, v.Direction)

	v, ok = a.bollingerVote(testSeries(30, 105, cols()))
	require.True(t, ok)
	assert.Equal(t, models.DirectionHold, v.Direction)
	assert.InDelta(t, 55, v.Confidence, 1e-9)

	v, ok = a.bollingerVote(testSeries(30, 95, cols()))
	require.True(t, ok)
	assert.InDelta(t, 45, v.Confidence, 1e-9)
}

func TestBollingerSqueeze(t *testing.T) {
	a := newTestAnalyzer(t)
	s := testSeries(30, 100, map[string][]float64{
		ColBBUpper:  {104},
		ColBBMiddle: {100},
		ColBBLower:  {96},
	})
	v, ok := a.bollingerVote(s)
	require.True(t, ok)
	assert.Equal(t, true, v.Meta["squeeze"])
	assert.InDelta(t, 0.08, v.Meta["width"].(float64), 1e-9)
}

func TestMovingAverageVote(t *testing.T) {
	a := newTestAnalyzer(t)

	// price above SMA20 and SMA20 above SMA50: two bullish votes; the fresh
	// golden cross is annotated but casts no vote of its own
	s := testSeries(60, 110, map[string][]float64{
		ColSMA20: {99, 105},
		ColSMA50: {100, 100},
	})
	v, ok := a.movingAverageVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 80, v.Confidence, 1e-9)
	assert.Equal(t, "golden", v.Meta["cross"])

	// death cross mirror
	s = testSeries(60, 90, map[string][]float64{
		ColSMA20: {101, 95},
		ColSMA50: {100, 100},
	})
	v, ok = a.movingAverageVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, v.Direction)
	assert.InDelta(t, 80, v.Confidence, 1e-9)
	assert.Equal(t, "death", v.Meta["cross"])

	// only the price-vs-SMA20 vote when no SMA50 is available
	s = testSeries(60, 110, map[string][]float64{
		ColSMA20: {99, 105},
	})
	v, ok = a.movingAverageVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 70, v.Confidence, 1e-9)
}

func TestStochasticVote(t *testing.T) {
	a := newTestAnalyzer(t)

	// bullish K over D cross below the midline
	s := testSeries(30, 100, map[string][]float64{
		ColStochK: {10, 30},
		ColStochD: {20, 25},
	})
	v, ok := a.stochasticVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 75, v.Confidence, 1e-9)

	// both deep oversold without a cross
	s = testSeries(30, 100, map[string][]float64{
		ColStochK: {18, 15},
		ColStochD: {14, 12},
	})
	v, ok = a.stochasticVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 70, v.Confidence, 1e-9)

	// both overbought
	s = testSeries(30, 100, map[string][]float64{
		ColStochK: {82, 85},
		ColStochD: {83, 84},
	})
	v, ok = a.stochasticVote(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, v.Direction)
}

func TestVolumeRead(t *testing.T) {
	a := newTestAnalyzer(t)

	s := testSeries(30, 100, map[string][]float64{ColVolumeSMA: {50}})
	v, ok := a.volumeRead(s) // candle volume 100 vs mean 50
	require.True(t, ok)
	assert.Equal(t, models.DirectionHold, v.Direction)
	assert.Equal(t, "high", v.Meta["level"])
	assert.InDelta(t, 2.0, v.Meta["ratio"].(float64), 1e-9)

	s = testSeries(30, 100, map[string][]float64{ColVolumeSMA: {200}})
	v, _ = a.volumeRead(s)
	assert.Equal(t, "low", v.Meta["level"])
}

func TestVolatilityRead(t *testing.T) {
	a := newTestAnalyzer(t)

	s := testSeries(30, 100, map[string][]float64{ColATR: {3.5}})
	v, ok := a.volatilityRead(s)
	require.True(t, ok)
	assert.Equal(t, "high", v.Meta["level"])
	assert.InDelta(t, 3.5, v.Meta["atr_percent"].(float64), 1e-9)

	s = testSeries(30, 100, map[string][]float64{ColATR: {6}})
	v, _ = a.volatilityRead(s)
	assert.Equal(t, "very_high", v.Meta["level"])
}

func TestFuseVotesWeightsAndTies(t *testing.T) {
	long := func(src string, conf float64) models.SubSignal {
		return models.SubSignal{Source: src, Direction: models.DirectionLong, Confidence: conf}
	}
	short := func(src string, conf float64) models.SubSignal {
		return models.SubSignal{Source: src, Direction: models.DirectionShort, Confidence: conf}
	}

	// rsi outweighs stochastic at equal confidence
	v := fuseVotes([]models.SubSignal{long("rsi", 70), short("stochastic", 70)})
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.InDelta(t, 70*1.2, v.Confidence, 1e-9)

	// advisory sources never vote
	v = fuseVotes([]models.SubSignal{
		long("volume", 90),
		short("bollinger", 75),
	})
	assert.Equal(t, models.DirectionShort, v.Direction)

	// no votes at all is a hold
	v = fuseVotes(nil)
	assert.Equal(t, models.DirectionHold, v.Direction)
	assert.InDelta(t, 50, v.Confidence, 1e-9)
}

func TestBuildSeriesColumns(t *testing.T) {
	candles := make([]models.Candle, 60)
	price := 100.0
	for i := range candles {
		price += float64(i%5) - 2
		candles[i] = models.Candle{
			Open: price, High: price + 2, Low: price - 2, Close: price, Volume: 1000,
		}
	}
	s := BuildSeries("BTC", "1h", candles)

	for _, col := range []string{
		ColRSI, ColATR, ColMACD, ColMACDSignal, ColMACDHist,
		ColBBUpper, ColBBMiddle, ColBBLower,
		ColSMA20, ColSMA50, ColEMA20, ColVolumeSMA, ColStochK, ColStochD,
	} {
		assert.Len(t, s.Indicators[col], 60, "column %s", col)
	}
}

func TestBuildSeriesShortHistorySkipsLongColumns(t *testing.T) {
	candles := make([]models.Candle, 25)
	for i := range candles {
		candles[i] = models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 10}
	}
	s := BuildSeries("BTC", "1h", candles)

	assert.NotEmpty(t, s.Indicators[ColRSI])
	assert.NotEmpty(t, s.Indicators[ColSMA20])
	assert.Empty(t, s.Indicators[ColSMA50])
	assert.Empty(t, s.Indicators[ColMACD])
}
