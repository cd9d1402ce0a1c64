package patterns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigPull/internal/domain/models"
	"SigPull/internal/services/indicators"
	xlogger "SigPull/pkg/logger"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return NewAnalyzer(DefaultConfig(), l)
}

func seriesFromCloses(closes []float64, cols map[string][]float64) *models.Series {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	if cols == nil {
		cols = map[string][]float64{}
	}
	return &models.Series{Symbol: "BTC", Timeframe: "1h", Candles: candles, Indicators: cols}
}

func TestDoubleTop(t *testing.T) {
	a := newTestAnalyzer(t)
	highs := []float64{
		80, 84, 88, 92, 96, 100, 97, 94, 91, 90,
		91, 93, 95, 97, 99, 100, 97, 94, 91, 88,
		86, 84, 82, 80,
	}

	p, ok := a.doubleTop(highs, StdDev(highs))
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, p.Direction)
	// twin 100s with a 10% valley between them
	assert.InDelta(t, 70, p.Confidence, 1e-9)
	assert.InDelta(t, 90.0, p.Meta["neckline"].(float64), 1e-9)
}

func TestDoubleTopRejectsUnequalPeaks(t *testing.T) {
	a := newTestAnalyzer(t)
	highs := []float64{
		80, 84, 88, 92, 96, 100, 97, 94, 91, 90,
		91, 93, 95, 99, 103, 107, 103, 99, 95, 91,
		88, 86, 84, 82,
	}
	_, ok := a.doubleTop(highs, StdDev(highs))
	assert.False(t, ok)
}

func TestDoubleBottom(t *testing.T) {
	a := newTestAnalyzer(t)
	lows := []float64{
		120, 116, 112, 108, 104, 100, 103, 106, 109, 110,
		109, 107, 105, 103, 101, 100, 103, 106, 109, 112,
		114, 116, 118, 120,
	}

	p, ok := a.doubleBottom(lows, StdDev(lows))
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, p.Direction)
	assert.InDelta(t, 70, p.Confidence, 1e-9)
}

func TestHeadAndShoulders(t *testing.T) {
	a := newTestAnalyzer(t)
	highs := []float64{
		80, 85, 90, 95, 100, 95, 90, 88, 90, 95,
		100, 105, 110, 105, 100, 95, 90, 88, 90, 95,
		100, 95, 90, 85, 80, 78, 76, 74, 72, 70,
	}

	p, ok := a.headAndShoulders(highs, StdDev(highs))
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, p.Direction)
	assert.InDelta(t, 80, p.Confidence, 1e-9)
	// neckline is the average of the two valleys, target mirrors the head
	assert.InDelta(t, 88.0, p.Meta["neckline"].(float64), 1e-9)
	assert.InDelta(t, 66.0, p.Meta["target"].(float64), 1e-9)
}

func TestTriangles(t *testing.T) {
	a := newTestAnalyzer(t)

	build := func(high func(i int) float64, low func(i int) float64) *models.Series {
		candles := make([]models.Candle, 30)
		for i := range candles {
			h, l := high(i), low(i)
			candles[i] = models.Candle{Open: (h + l) / 2, High: h, Low: l, Close: (h + l) / 2, Volume: 100}
		}
		return &models.Series{Symbol: "BTC", Timeframe: "1h", Candles: candles, Indicators: map[string][]float64{}}
	}

	// flat top, rising lows
	p, ok := a.triangle(build(
		func(int) float64 { return 100 },
		func(i int) float64 { return 80 + 0.5*float64(i) },
	))
	require.True(t, ok)
	assert.Equal(t, "ascending", p.Meta["kind"])
	assert.Equal(t, models.DirectionLong, p.Direction)
	assert.InDelta(t, 75, p.Confidence, 1e-9)

	// falling highs, flat bottom
	p, ok = a.triangle(build(
		func(i int) float64 { return 100 - 0.5*float64(i) },
		func(int) float64 { return 70 },
	))
	require.True(t, ok)
	assert.Equal(t, "descending", p.Meta["kind"])
	assert.Equal(t, models.DirectionShort, p.Direction)

	// converging from both sides
	p, ok = a.triangle(build(
		func(i int) float64 { return 100 - 0.4*float64(i) },
		func(i int) float64 { return 80 + 0.4*float64(i) },
	))
	require.True(t, ok)
	assert.Equal(t, "symmetrical", p.Meta["kind"])
	assert.Equal(t, models.DirectionHold, p.Direction)
}

func TestTrendFromMovingAverages(t *testing.T) {
	a := newTestAnalyzer(t)

	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 110
	}
	s := seriesFromCloses(closes, map[string][]float64{
		indicators.ColSMA20: {105},
		indicators.ColSMA50: {100},
	})
	p, ok := a.trend(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, p.Direction)
	assert.Equal(t, "uptrend", p.Meta["phase"])
	assert.InDelta(t, 70, p.Confidence, 1e-9) // (110-100)/100*100 + 60

	s = seriesFromCloses(closes, map[string][]float64{
		indicators.ColSMA20: {115},
		indicators.ColSMA50: {120},
	})
	p, ok = a.trend(s)
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, p.Direction)
	assert.Equal(t, "downtrend", p.Meta["phase"])
}

func TestTrendFallback(t *testing.T) {
	a := newTestAnalyzer(t)

	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	p, ok := a.trend(seriesFromCloses(closes, nil))
	require.True(t, ok)
	assert.Equal(t, models.DirectionLong, p.Direction)
	assert.InDelta(t, 55, p.Confidence, 1e-9)
}

func TestClusterLevels(t *testing.T) {
	touches := []float64{100, 100.5, 100.2, 120, 140, 140.8}

	levels := clusterLevels(touches, 0.01, 2)
	require.Len(t, levels, 2)
	assert.InDelta(t, 100.23, levels[0], 0.01)
	assert.InDelta(t, 140.4, levels[1], 0.01)
}

func TestSupportResistanceFromHighsAndLows(t *testing.T) {
	a := newTestAnalyzer(t)
	candles := make([]models.Candle, 30)
	for i := range candles {
		c := models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100}
		switch i {
		case 5, 15, 25:
			c.High = 105
		case 10, 20:
			c.Low = 95
		}
		candles[i] = c
	}
	s := &models.Series{Symbol: "BTC", Timeframe: "1h", Candles: candles, Indicators: map[string][]float64{}}

	p, ok := a.supportResistance(s, StdDev(s.Highs()), StdDev(s.Lows()))
	require.True(t, ok)
	assert.Equal(t, models.DirectionHold, p.Direction)
	// resistance clusters from the high peaks, support from the low valleys
	assert.InDelta(t, 105.0, p.Meta["resistance"].(float64), 1e-9)
	assert.InDelta(t, 95.0, p.Meta["support"].(float64), 1e-9)
}

func TestAnalyzeShortHistoryHolds(t *testing.T) {
	a := newTestAnalyzer(t)
	verdict, subs, err := a.Analyze(context.Background(), seriesFromCloses([]float64{1, 2, 3}, nil))
	require.NoError(t, err)
	assert.Equal(t, models.DirectionHold, verdict.Direction)
	assert.Zero(t, verdict.Confidence)
	assert.Empty(t, subs)
}

func TestFusePatternsMajorityAndRSIBonus(t *testing.T) {
	a := newTestAnalyzer(t)
	oversold := seriesFromCloses(make([]float64, 25), map[string][]float64{indicators.ColRSI: {25}})

	fused := a.fusePatterns([]models.SubSignal{
		{Source: "double_bottom", Direction: models.DirectionLong, Confidence: 70},
	}, oversold)
	assert.Equal(t, models.DirectionLong, fused.Direction)
	// 60 + 10, extreme RSI adds 10, the matching lean another 5
	assert.InDelta(t, 85, fused.Confidence, 1e-9)

	// an extreme RSI leaning the other way still adds 10, never the extra 5
	fused = a.fusePatterns([]models.SubSignal{
		{Source: "double_top", Direction: models.DirectionShort, Confidence: 70},
		{Source: "head_and_shoulders", Direction: models.DirectionShort, Confidence: 80},
	}, oversold)
	assert.Equal(t, models.DirectionShort, fused.Direction)
	assert.InDelta(t, 90, fused.Confidence, 1e-9)

	// a tie stays flat
	fused = a.fusePatterns([]models.SubSignal{
		{Source: "double_top", Direction: models.DirectionShort, Confidence: 70},
		{Source: "double_bottom", Direction: models.DirectionLong, Confidence: 70},
	}, seriesFromCloses(make([]float64, 25), nil))
	assert.Equal(t, models.DirectionHold, fused.Direction)
	assert.InDelta(t, 50, fused.Confidence, 1e-9)
}

func TestFusePatternsOnlyDetectorsVote(t *testing.T) {
	a := newTestAnalyzer(t)
	s := seriesFromCloses(make([]float64, 25), nil)

	fused := a.fusePatterns([]models.SubSignal{
		{Source: "double_top", Direction: models.DirectionShort, Confidence: 80},
		{Source: "trend", Direction: models.DirectionLong, Confidence: 70},
	}, s)
	assert.Equal(t, models.DirectionShort, fused.Direction)
	assert.InDelta(t, 70, fused.Confidence, 1e-9)

	// support/resistance reads never tip the vote either
	fused = a.fusePatterns([]models.SubSignal{
		{Source: "double_bottom", Direction: models.DirectionLong, Confidence: 70},
		{Source: "support_resistance", Direction: models.DirectionHold, Confidence: 50},
	}, s)
	assert.Equal(t, models.DirectionLong, fused.Direction)
}

func TestFusePatternsHoldVotesBlockWeakMajority(t *testing.T) {
	a := newTestAnalyzer(t)
	s := seriesFromCloses(make([]float64, 25), nil)

	fused := a.fusePatterns([]models.SubSignal{
		{Source: "double_bottom", Direction: models.DirectionLong, Confidence: 70},
		{Source: "triangle", Direction: models.DirectionHold, Confidence: 60},
	}, s)
	assert.Equal(t, models.DirectionHold, fused.Direction)
	assert.InDelta(t, 50, fused.Confidence, 1e-9)
}
