package indicators

import (
	"context"
	"math"

	"SigPull/internal/domain/models"
	domsvc "SigPull/internal/domain/service"
	xlogger "SigPull/pkg/logger"
)

// Config holds the tunable rule thresholds.
type Config struct {
	RSIOversold     float64 // LONG below this
	RSIOverbought   float64 // SHORT above this
	SqueezeWidth    float64 // bollinger width/middle ratio flagged as squeeze
	StochOversold   float64
	StochOverbought float64
}

// DefaultConfig returns the standard rule thresholds.
func DefaultConfig() Config {
	return Config{
		RSIOversold:     30,
		RSIOverbought:   70,
		SqueezeWidth:    0.1,
		StochOversold:   20,
		StochOverbought: 80,
	}
}

// fusionWeights ranks indicator families when votes are combined.
var fusionWeights = map[string]float64{
	"rsi":             1.2,
	"macd":            1.1,
	"moving_averages": 1.1,
	"bollinger":       1.0,
	"stochastic":      0.9,
}

// Analyzer turns indicator series into directional votes.
type Analyzer struct {
	cfg Config
	log *xlogger.Logger
}

var _ domsvc.IndicatorAnalyzer = (*Analyzer)(nil)

func NewAnalyzer(cfg Config, log *xlogger.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, log: log}
}

// Analyze evaluates every indicator rule and fuses the directional votes
// into a single technical verdict. Advisory reads (volume, volatility) are
// returned alongside but carry no direction and do not vote.
func (a *Analyzer) Analyze(_ context.Context, s *models.Series) (models.SubSignal, []models.SubSignal, error) {
	if len(s.Candles) < MinCandles {
		return holdSignal("technical", 0), nil, nil
	}

	var subs []models.SubSignal
	if v, ok := a.rsiVote(s); ok {
		subs = append(subs, v)
	}
	if v, ok := a.macdVote(s); ok {
		subs = append(subs, v)
	}
	if v, ok := a.bollingerVote(s); ok {
		subs = append(subs, v)
	}
	if v, ok := a.movingAverageVote(s); ok {
		subs = append(subs, v)
	}
	if v, ok := a.stochasticVote(s); ok {
		subs = append(subs, v)
	}
	if v, ok := a.volumeRead(s); ok {
		subs = append(subs, v)
	}
	if v, ok := a.volatilityRead(s); ok {
		subs = append(subs, v)
	}

	fused := fuseVotes(subs)
	return fused, subs, nil
}

// fuseVotes combines directional votes using per-family weights. The winning
// side's confidence is its weighted sum divided by its vote count, capped at 95.
func fuseVotes(subs []models.SubSignal) models.SubSignal {
	var longSum, shortSum float64
	var longN, shortN int
	for _, v := range subs {
		w, voting := fusionWeights[v.Source]
		if !voting {
			continue
		}
		switch v.Direction {
		case models.DirectionLong:
			longSum += v.Confidence * w
			longN++
		case models.DirectionShort:
			shortSum += v.Confidence * w
			shortN++
		}
	}

	switch {
	case longSum > shortSum:
		return models.SubSignal{
			Source:     "technical",
			Direction:  models.DirectionLong,
			Confidence: math.Min(95, longSum/float64(longN)),
		}
	case shortSum > longSum:
		return models.SubSignal{
			Source:     "technical",
			Direction:  models.DirectionShort,
			Confidence: math.Min(95, shortSum/float64(shortN)),
		}
	default:
		return holdSignal("technical", 50)
	}
}

func (a *Analyzer) rsiVote(s *models.Series) (models.SubSignal, bool) {
	rsi := s.Indicator(ColRSI)
	if len(rsi) == 0 {
		return models.SubSignal{}, false
	}
	last := rsi[len(rsi)-1]

	v := models.SubSignal{Source: "rsi", Meta: map[string]any{"rsi": round2(last)}}
	switch {
	case last < a.cfg.RSIOversold:
		v.Direction = models.DirectionLong
		v.Confidence = math.Min(90, 60+(a.cfg.RSIOversold-last))
	case last > a.cfg.RSIOverbought:
		v.Direction = models.DirectionShort
		v.Confidence = math.Min(90, 60+(last-a.cfg.RSIOverbought))
	default:
		v.Direction = models.DirectionHold
		v.Confidence = 50
	}

	if div := rsiDivergence(s.Closes(), rsi); div != "" {
		v.Meta["divergence"] = div
	}
	return v, true
}

// rsiDivergence compares the price and RSI trends over the trailing 20 bars.
// Opposite slopes mark a divergence, an early reversal hint.
func rsiDivergence(closes, rsi []float64) string {
	const window = 20
	if len(closes) < window || len(rsi) < window {
		return ""
	}
	priceTrend := closes[len(closes)-1] - closes[len(closes)-window]
	rsiTrend := rsi[len(rsi)-1] - rsi[len(rsi)-window]
	switch {
	case priceTrend < 0 && rsiTrend > 0:
		return "bullish"
	case priceTrend > 0 && rsiTrend < 0:
		return "bearish"
	default:
		return ""
	}
}

func (a *Analyzer) macdVote(s *models.Series) (models.SubSignal, bool) {
	line := s.Indicator(ColMACD)
	signal := s.Indicator(ColMACDSignal)
	hist := s.Indicator(ColMACDHist)
	if len(line) < 2 || len(signal) < 2 || len(hist) < 1 {
		return models.SubSignal{}, false
	}
	l, prevL := line[len(line)-1], line[len(line)-2]
	sg, prevS := signal[len(signal)-1], signal[len(signal)-2]
	h := hist[len(hist)-1]

	crossedUp := prevL <= prevS && l > sg
	crossedDown := prevL >= prevS && l < sg

	v := models.SubSignal{Source: "macd", Meta: map[string]any{"histogram": round6(h)}}
	switch {
	case crossedUp:
		v.Direction, v.Confidence = models.DirectionLong, 80
		v.Meta["crossover"] = "bullish"
	case crossedDown:
		v.Direction, v.Confidence = models.DirectionShort, 80
		v.Meta["crossover"] = "bearish"
	case l > sg && h > 0:
		v.Direction, v.Confidence = models.DirectionLong, 70
	case l < sg && h < 0:
		v.Direction, v.Confidence = models.DirectionShort, 70
	default:
		v.Direction, v.Confidence = models.DirectionHold, 50
	}
	return v, true
}

func (a *Analyzer) bollingerVote(s *models.Series) (models.SubSignal, bool) {
	upper := s.Indicator(ColBBUpper)
	middle := s.Indicator(ColBBMiddle)
	lower := s.Indicator(ColBBLower)
	if len(upper) == 0 || len(middle) == 0 || len(lower) == 0 {
		return models.SubSignal{}, false
	}
	u := upper[len(upper)-1]
	m := middle[len(middle)-1]
	l := lower[len(lower)-1]
	price := s.LastClose()
	if m == 0 {
		return models.SubSignal{}, false
	}

	width := (u - l) / m
	v := models.SubSignal{Source: "bollinger", Meta: map[string]any{"width": round6(width)}}
	if width < a.cfg.SqueezeWidth {
		v.Meta["squeeze"] = true
	}

	switch {
	case price <= l:
		v.Direction, v.Confidence = models.DirectionLong, 75
	case price >= u:
		v.Direction, v.Confidence = models.DirectionShort, 75
	case price > m:
		v.Direction, v.Confidence = models.DirectionHold, 55
	default:
		v.Direction, v.Confidence = models.DirectionHold, 45
	}
	return v, true
}

func (a *Analyzer) movingAverageVote(s *models.Series) (models.SubSignal, bool) {
	sma20 := s.Indicator(ColSMA20)
	if len(sma20) < 2 {
		return models.SubSignal{}, false
	}
	price := s.LastClose()
	m20 := sma20[len(sma20)-1]

	var bull, bear int
	meta := map[string]any{}

	if price > m20 {
		bull++
	} else if price < m20 {
		bear++
	}

	sma50 := s.Indicator(ColSMA50)
	if len(sma50) >= 2 {
		m50 := sma50[len(sma50)-1]
		prev20 := sma20[len(sma20)-2]
		prev50 := sma50[len(sma50)-2]
		if m20 > m50 {
			bull++
		} else if m20 < m50 {
			bear++
		}
		if prev20 <= prev50 && m20 > m50 {
			meta["cross"] = "golden"
		} else if prev20 >= prev50 && m20 < m50 {
			meta["cross"] = "death"
		}
	}

	v := models.SubSignal{Source: "moving_averages", Meta: meta}
	switch {
	case bull > bear:
		v.Direction = models.DirectionLong
		v.Confidence = 60 + 10*float64(bull)
	case bear > bull:
		v.Direction = models.DirectionShort
		v.Confidence = 60 + 10*float64(bear)
	default:
		v.Direction, v.Confidence = models.DirectionHold, 50
	}
	return v, true
}

func (a *Analyzer) stochasticVote(s *models.Series) (models.SubSignal, bool) {
	ks := s.Indicator(ColStochK)
	ds := s.Indicator(ColStochD)
	if len(ks) < 2 || len(ds) < 2 {
		return models.SubSignal{}, false
	}
	k, prevK := ks[len(ks)-1], ks[len(ks)-2]
	d, prevD := ds[len(ds)-1], ds[len(ds)-2]

	crossedUp := prevK <= prevD && k > d
	crossedDown := prevK >= prevD && k < d

	v := models.SubSignal{Source: "stochastic", Meta: map[string]any{"k": round2(k), "d": round2(d)}}
	switch {
	case crossedUp && k < 50:
		v.Direction, v.Confidence = models.DirectionLong, 75
	case crossedDown && k > 50:
		v.Direction, v.Confidence = models.DirectionShort, 75
	case k < a.cfg.StochOversold && d < a.cfg.StochOversold:
		v.Direction, v.Confidence = models.DirectionLong, 70
	case k > a.cfg.StochOverbought && d > a.cfg.StochOverbought:
		v.Direction, v.Confidence = models.DirectionShort, 70
	default:
		v.Direction, v.Confidence = models.DirectionHold, 50
	}
	return v, true
}

// volumeRead classifies current volume against its 20-bar average.
// Advisory only: it never votes a direction.
func (a *Analyzer) volumeRead(s *models.Series) (models.SubSignal, bool) {
	avg := s.Indicator(ColVolumeSMA)
	if len(avg) == 0 || len(s.Candles) == 0 {
		return models.SubSignal{}, false
	}
	mean := avg[len(avg)-1]
	if mean <= 0 {
		return models.SubSignal{}, false
	}
	ratio := s.Candles[len(s.Candles)-1].Volume / mean

	level := "normal"
	switch {
	case ratio > 1.5:
		level = "high"
	case ratio > 1.2:
		level = "above_average"
	case ratio < 0.7:
		level = "low"
	}
	return models.SubSignal{
		Source:     "volume",
		Direction:  models.DirectionHold,
		Confidence: 50,
		Meta:       map[string]any{"ratio": round2(ratio), "level": level},
	}, true
}

// volatilityRead classifies ATR as a percentage of price. Advisory only.
func (a *Analyzer) volatilityRead(s *models.Series) (models.SubSignal, bool) {
	atr, ok := s.LastIndicator(ColATR)
	price := s.LastClose()
	if !ok || price <= 0 {
		return models.SubSignal{}, false
	}
	pct := atr / price * 100

	level := "very_low"
	switch {
	case pct > 5:
		level = "very_high"
	case pct > 3:
		level = "high"
	case pct > 2:
		level = "moderate"
	case pct > 1:
		level = "low"
	}
	return models.SubSignal{
		Source:     "volatility",
		Direction:  models.DirectionHold,
		Confidence: 50,
		Meta:       map[string]any{"atr_percent": round2(pct), "level": level},
	}, true
}

func holdSignal(source string, conf float64) models.SubSignal {
	return models.SubSignal{Source: source, Direction: models.DirectionHold, Confidence: conf}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
