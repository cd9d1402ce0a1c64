package patterns

import (
	"context"
	"math"
	"sort"

	"SigPull/internal/domain/models"
	domsvc "SigPull/internal/domain/service"
	"SigPull/internal/services/indicators"
	xlogger "SigPull/pkg/logger"
)

// Config holds the tunable pattern thresholds.
type Config struct {
	MinPeakDistance   int     // bars between extrema
	DoubleTolerance   float64 // max relative gap between twin peaks/valleys
	DoubleDrop        float64 // min relative depth of the middle valley/peak
	HeadProminence    float64 // min head rise above the shoulder line
	TriangleWindow    int     // trailing bars for trendline fitting
	TriangleFlatSlope float64 // |normalized slope| below this is flat
	LevelTolerance    float64 // relative width of a support/resistance cluster
	LevelMinTouches   int
}

// DefaultConfig returns the standard pattern thresholds.
func DefaultConfig() Config {
	return Config{
		MinPeakDistance:   5,
		DoubleTolerance:   0.02,
		DoubleDrop:        0.03,
		HeadProminence:    0.05,
		TriangleWindow:    30,
		TriangleFlatSlope: 0.001,
		LevelTolerance:    0.01,
		LevelMinTouches:   2,
	}
}

// Analyzer detects chart structure and turns it into directional votes.
type Analyzer struct {
	cfg Config
	log *xlogger.Logger
}

var _ domsvc.PatternAnalyzer = (*Analyzer)(nil)

func NewAnalyzer(cfg Config, log *xlogger.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, log: log}
}

// Analyze runs every pattern detector and fuses the findings into a single
// pattern verdict by majority vote.
func (a *Analyzer) Analyze(_ context.Context, s *models.Series) (models.SubSignal, []models.SubSignal, error) {
	if len(s.Candles) < indicators.MinCandles {
		return models.SubSignal{Source: "pattern", Direction: models.DirectionHold, Confidence: 0}, nil, nil
	}

	highs := s.Highs()
	lows := s.Lows()
	stdHigh := StdDev(highs)
	stdLow := StdDev(lows)

	var subs []models.SubSignal
	if p, ok := a.doubleTop(highs, stdHigh); ok {
		subs = append(subs, p)
	}
	if p, ok := a.doubleBottom(lows, stdLow); ok {
		subs = append(subs, p)
	}
	if p, ok := a.headAndShoulders(highs, stdHigh); ok {
		subs = append(subs, p)
	}
	if p, ok := a.triangle(s); ok {
		subs = append(subs, p)
	}
	if p, ok := a.trend(s); ok {
		subs = append(subs, p)
	}
	if p, ok := a.supportResistance(s, stdHigh, stdLow); ok {
		subs = append(subs, p)
	}

	fused := a.fusePatterns(subs, s)
	return fused, subs, nil
}

// votingPatterns marks the detectors whose findings count in the majority.
// Trend and support/resistance reads are context only and never vote.
var votingPatterns = map[string]bool{
	"double_top":         true,
	"double_bottom":      true,
	"head_and_shoulders": true,
	"triangle":           true,
}

// fusePatterns takes the majority among detector votes, counting LONG,
// SHORT, and HOLD separately; the winner must beat both other tallies.
// An extreme RSI adds 10, plus another 5 when its lean matches the winner.
func (a *Analyzer) fusePatterns(subs []models.SubSignal, s *models.Series) models.SubSignal {
	var long, short, hold int
	for _, p := range subs {
		if !votingPatterns[p.Source] {
			continue
		}
		switch p.Direction {
		case models.DirectionLong:
			long++
		case models.DirectionShort:
			short++
		default:
			hold++
		}
	}

	out := models.SubSignal{Source: "pattern", Direction: models.DirectionHold, Confidence: 50}
	var count int
	switch {
	case long > short && long > hold:
		out.Direction, count = models.DirectionLong, long
	case short > long && short > hold:
		out.Direction, count = models.DirectionShort, short
	default:
		return out
	}

	conf := 60 + 10*float64(count)
	if rsi, ok := s.LastIndicator(indicators.ColRSI); ok && (rsi < 30 || rsi > 70) {
		conf += 10
		if (out.Direction == models.DirectionLong && rsi < 30) ||
			(out.Direction == models.DirectionShort && rsi > 70) {
			conf += 5
		}
	}
	out.Confidence = math.Min(95, conf)
	return out
}

// doubleTop looks for two peaks of near-equal height in the highs with a
// valley dropping well below them. A completed double top is a reversal short.
func (a *Analyzer) doubleTop(highs []float64, std float64) (models.SubSignal, bool) {
	peaks := FindPeaks(highs, a.cfg.MinPeakDistance, 0.5*std)
	if len(peaks) < 2 {
		return models.SubSignal{}, false
	}
	p1, p2 := peaks[len(peaks)-2], peaks[len(peaks)-1]
	h1, h2 := highs[p1], highs[p2]
	if math.Abs(h1-h2)/math.Max(h1, h2) > a.cfg.DoubleTolerance {
		return models.SubSignal{}, false
	}

	valley := minBetween(highs, p1, p2)
	top := (h1 + h2) / 2
	drop := (top - valley) / top
	if drop < a.cfg.DoubleDrop {
		return models.SubSignal{}, false
	}

	return models.SubSignal{
		Source:     "double_top",
		Direction:  models.DirectionShort,
		Confidence: math.Min(90, 60+100*drop),
		Meta:       map[string]any{"neckline": valley},
	}, true
}

// doubleBottom is the bullish mirror of doubleTop, read off the lows.
func (a *Analyzer) doubleBottom(lows []float64, std float64) (models.SubSignal, bool) {
	valleys := FindValleys(lows, a.cfg.MinPeakDistance, 0.5*std)
	if len(valleys) < 2 {
		return models.SubSignal{}, false
	}
	v1, v2 := valleys[len(valleys)-2], valleys[len(valleys)-1]
	l1, l2 := lows[v1], lows[v2]
	if math.Abs(l1-l2)/math.Max(l1, l2) > a.cfg.DoubleTolerance {
		return models.SubSignal{}, false
	}

	peak := maxBetween(lows, v1, v2)
	bottom := (l1 + l2) / 2
	rise := (peak - bottom) / bottom
	if rise < a.cfg.DoubleDrop {
		return models.SubSignal{}, false
	}

	return models.SubSignal{
		Source:     "double_bottom",
		Direction:  models.DirectionLong,
		Confidence: math.Min(90, 60+100*rise),
		Meta:       map[string]any{"neckline": peak},
	}, true
}

// headAndShoulders looks for three peaks in the highs where the middle one
// dominates two near-equal shoulders. The neckline projects the downside
// target.
func (a *Analyzer) headAndShoulders(highs []float64, std float64) (models.SubSignal, bool) {
	peaks := FindPeaks(highs, a.cfg.MinPeakDistance, 0.3*std)
	if len(peaks) < 3 {
		return models.SubSignal{}, false
	}
	ls, head, rs := peaks[len(peaks)-3], peaks[len(peaks)-2], peaks[len(peaks)-1]
	lh, hh, rh := highs[ls], highs[head], highs[rs]

	if hh <= lh || hh <= rh {
		return models.SubSignal{}, false
	}
	if math.Abs(lh-rh)/math.Max(lh, rh) > 2*a.cfg.DoubleTolerance {
		return models.SubSignal{}, false
	}
	shoulderAvg := (lh + rh) / 2
	prom := (hh - shoulderAvg) / shoulderAvg
	if prom < a.cfg.HeadProminence {
		return models.SubSignal{}, false
	}

	neckline := (minBetween(highs, ls, head) + minBetween(highs, head, rs)) / 2
	target := neckline - (hh - neckline)

	return models.SubSignal{
		Source:     "head_and_shoulders",
		Direction:  models.DirectionShort,
		Confidence: math.Min(95, 70+100*prom),
		Meta:       map[string]any{"neckline": neckline, "target": target},
	}, true
}

// triangle fits trendlines through the trailing window of highs and lows.
// Slopes are normalized by price so thresholds are scale-free.
func (a *Analyzer) triangle(s *models.Series) (models.SubSignal, bool) {
	highs := s.Highs()
	lows := s.Lows()
	if len(highs) < a.cfg.TriangleWindow {
		return models.SubSignal{}, false
	}
	highs = highs[len(highs)-a.cfg.TriangleWindow:]
	lows = lows[len(lows)-a.cfg.TriangleWindow:]

	ref := Mean(highs)
	if ref == 0 {
		return models.SubSignal{}, false
	}
	highSlope := Slope(highs) / ref
	lowSlope := Slope(lows) / ref
	flat := a.cfg.TriangleFlatSlope

	var kind string
	var dir models.Direction
	var conf float64
	switch {
	case math.Abs(highSlope) < flat && lowSlope > flat:
		kind, dir, conf = "ascending", models.DirectionLong, 75
	case math.Abs(lowSlope) < flat && highSlope < -flat:
		kind, dir, conf = "descending", models.DirectionShort, 75
	case highSlope < -flat && lowSlope > flat:
		kind, dir, conf = "symmetrical", models.DirectionHold, 60
	default:
		return models.SubSignal{}, false
	}

	return models.SubSignal{
		Source:     "triangle",
		Direction:  dir,
		Confidence: conf,
		Meta:       map[string]any{"kind": kind},
	}, true
}

// trend classifies the market phase from price against the 20/50 moving
// averages, falling back to a short close-to-close read when SMA50 is absent.
func (a *Analyzer) trend(s *models.Series) (models.SubSignal, bool) {
	price := s.LastClose()
	sma20, ok20 := s.LastIndicator(indicators.ColSMA20)
	sma50, ok50 := s.LastIndicator(indicators.ColSMA50)

	if ok20 && ok50 && sma50 > 0 {
		switch {
		case price > sma20 && sma20 > sma50:
			strength := math.Min(95, (price-sma50)/sma50*100+60)
			return models.SubSignal{
				Source: "trend", Direction: models.DirectionLong, Confidence: strength,
				Meta: map[string]any{"phase": "uptrend"},
			}, true
		case price < sma20 && sma20 < sma50:
			strength := math.Min(95, (sma50-price)/sma50*100+60)
			return models.SubSignal{
				Source: "trend", Direction: models.DirectionShort, Confidence: strength,
				Meta: map[string]any{"phase": "downtrend"},
			}, true
		default:
			return models.SubSignal{
				Source: "trend", Direction: models.DirectionHold, Confidence: 50,
				Meta: map[string]any{"phase": "sideways"},
			}, true
		}
	}

	closes := s.Closes()
	if len(closes) < 10 {
		return models.SubSignal{}, false
	}
	tail := closes[len(closes)-10:]
	switch {
	case tail[len(tail)-1] > tail[0]:
		return models.SubSignal{Source: "trend", Direction: models.DirectionLong, Confidence: 55,
			Meta: map[string]any{"phase": "uptrend"}}, true
	case tail[len(tail)-1] < tail[0]:
		return models.SubSignal{Source: "trend", Direction: models.DirectionShort, Confidence: 55,
			Meta: map[string]any{"phase": "downtrend"}}, true
	default:
		return models.SubSignal{Source: "trend", Direction: models.DirectionHold, Confidence: 50,
			Meta: map[string]any{"phase": "sideways"}}, true
	}
}

// supportResistance clusters high peaks and low valleys into tested levels
// and reports the nearest level on each side of price. Advisory only.
func (a *Analyzer) supportResistance(s *models.Series, stdHigh, stdLow float64) (models.SubSignal, bool) {
	highs := s.Highs()
	lows := s.Lows()
	price := s.LastClose()
	if price <= 0 {
		return models.SubSignal{}, false
	}

	var touches []float64
	for _, i := range FindPeaks(highs, a.cfg.MinPeakDistance, 0.3*stdHigh) {
		touches = append(touches, highs[i])
	}
	for _, i := range FindValleys(lows, a.cfg.MinPeakDistance, 0.3*stdLow) {
		touches = append(touches, lows[i])
	}
	if len(touches) == 0 {
		return models.SubSignal{}, false
	}

	levels := clusterLevels(touches, a.cfg.LevelTolerance, a.cfg.LevelMinTouches)
	if len(levels) == 0 {
		return models.SubSignal{}, false
	}

	meta := map[string]any{"levels": levels}
	var support, resistance float64
	for _, lvl := range levels {
		if lvl < price && lvl > support {
			support = lvl
		}
		if lvl > price && (resistance == 0 || lvl < resistance) {
			resistance = lvl
		}
	}
	if support > 0 {
		meta["support"] = support
	}
	if resistance > 0 {
		meta["resistance"] = resistance
	}

	return models.SubSignal{
		Source:     "support_resistance",
		Direction:  models.DirectionHold,
		Confidence: 50,
		Meta:       meta,
	}, true
}

// clusterLevels merges touch prices lying within tolerance of each other
// and keeps clusters touched at least minTouches times.
func clusterLevels(touches []float64, tolerance float64, minTouches int) []float64 {
	prices := make([]float64, len(touches))
	copy(prices, touches)
	sort.Float64s(prices)

	var levels []float64
	i := 0
	for i < len(prices) {
		j := i + 1
		sum := prices[i]
		for j < len(prices) && (prices[j]-prices[i])/prices[i] <= tolerance {
			sum += prices[j]
			j++
		}
		if j-i >= minTouches {
			levels = append(levels, sum/float64(j-i))
		}
		i = j
	}
	return levels
}

func minBetween(values []float64, from, to int) float64 {
	min := values[from]
	for i := from + 1; i <= to && i < len(values); i++ {
		if values[i] < min {
			min = values[i]
		}
	}
	return min
}

func maxBetween(values []float64, from, to int) float64 {
	max := values[from]
	for i := from + 1; i <= to && i < len(values); i++ {
		if values[i] > max {
			max = values[i]
		}
	}
	return max
}
