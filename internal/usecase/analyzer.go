package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"SigPull/internal/domain/models"
	domrepo "SigPull/internal/domain/repository"
	domsvc "SigPull/internal/domain/service"
	"SigPull/internal/services/indicators"
	xlogger "SigPull/pkg/logger"
)

// confluenceMin is the number of agreeing raw sub-signals that earns the
// fused verdict a confidence bonus.
const confluenceMin = 3

// Analyzer runs both analyzers across every timeframe and fuses the votes
// into one verdict per symbol.
type Analyzer struct {
	market      domrepo.MarketData
	indicator   domsvc.IndicatorAnalyzer
	pattern     domsvc.PatternAnalyzer
	metrics     domrepo.Metrics
	log         *xlogger.Logger
	timeframes  []domrepo.Timeframe
	candleLimit int
}

func NewAnalyzer(
	market domrepo.MarketData,
	indicator domsvc.IndicatorAnalyzer,
	pattern domsvc.PatternAnalyzer,
	metrics domrepo.Metrics,
	log *xlogger.Logger,
	timeframes []domrepo.Timeframe,
	candleLimit int,
) *Analyzer {
	if len(timeframes) == 0 {
		timeframes = domrepo.DefaultTimeframes()
	}
	if candleLimit <= 0 {
		candleLimit = 100
	}
	return &Analyzer{
		market:      market,
		indicator:   indicator,
		pattern:     pattern,
		metrics:     metrics,
		log:         log,
		timeframes:  timeframes,
		candleLimit: candleLimit,
	}
}

// AnalyzeSymbol fetches candles for every configured timeframe, analyzes
// each independently, and fuses the votes. A timeframe that fails to fetch
// or analyze is skipped; the rest still fuse. Only a symbol with no usable
// timeframe at all returns an error.
func (a *Analyzer) AnalyzeSymbol(ctx context.Context, symbol string) (*models.FusedAnalysis, error) {
	perTF := make(map[string]models.TimeframeAnalysis, len(a.timeframes))
	var currentPrice float64

	for _, tf := range a.timeframes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candles, err := a.market.GetOHLCV(ctx, symbol, tf, a.candleLimit)
		if err != nil {
			a.metrics.RecordAnalysisError("fetch")
			a.log.Warn("candle fetch failed",
				xlogger.String("symbol", symbol),
				xlogger.String("tf", string(tf)),
				xlogger.Error(err))
			continue
		}

		series := indicators.BuildSeries(symbol, tf, candles)
		tfa, err := a.analyzeTimeframe(ctx, series)
		if err != nil {
			a.metrics.RecordAnalysisError("analyze")
			a.log.Warn("timeframe analysis failed",
				xlogger.String("symbol", symbol),
				xlogger.String("tf", string(tf)),
				xlogger.Error(err))
			continue
		}
		perTF[string(tf)] = tfa
		if p := series.LastClose(); p > 0 {
			currentPrice = p
		}
	}

	if len(perTF) == 0 {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrDataUnavailable, symbol)
	}

	if price, err := a.market.GetLatestPrice(ctx, symbol); err == nil && price > 0 {
		currentPrice = price
	}

	fused := FuseTimeframes(perTF)
	fused.Symbol = symbol
	fused.CurrentPrice = currentPrice
	fused.Summary = buildSummary(fused.Direction, perTF)
	return fused, nil
}

// analyzeTimeframe runs both analyzers on one series and combines their two
// votes into the timeframe's own verdict (the stronger vote wins a conflict).
func (a *Analyzer) analyzeTimeframe(ctx context.Context, series *models.Series) (models.TimeframeAnalysis, error) {
	pattern, patternSubs, err := a.pattern.Analyze(ctx, series)
	if err != nil {
		return models.TimeframeAnalysis{}, fmt.Errorf("pattern analysis: %w", err)
	}
	technical, technicalSubs, err := a.indicator.Analyze(ctx, series)
	if err != nil {
		return models.TimeframeAnalysis{}, fmt.Errorf("indicator analysis: %w", err)
	}

	tfa := models.TimeframeAnalysis{
		Timeframe:  series.Timeframe,
		Pattern:    pattern,
		Technical:  technical,
		SubSignals: append(patternSubs, technicalSubs...),
		DataPoints: len(series.Candles),
	}

	switch {
	case pattern.Direction == technical.Direction:
		tfa.Direction = pattern.Direction
		tfa.Confidence = (pattern.Confidence + technical.Confidence) / 2
	case pattern.Direction == models.DirectionHold:
		tfa.Direction = technical.Direction
		tfa.Confidence = technical.Confidence
	case technical.Direction == models.DirectionHold:
		tfa.Direction = pattern.Direction
		tfa.Confidence = pattern.Confidence
	case pattern.Confidence > technical.Confidence:
		tfa.Direction = pattern.Direction
		tfa.Confidence = pattern.Confidence
	case technical.Confidence > pattern.Confidence:
		tfa.Direction = technical.Direction
		tfa.Confidence = technical.Confidence
	default:
		tfa.Direction = models.DirectionHold
		tfa.Confidence = 50
	}
	return tfa, nil
}

// FuseTimeframes combines per-timeframe verdicts into one weighted vote.
// Every timeframe casts two votes (pattern and technical), each accumulating
// weight times confidence for its side. The winner's confidence is
// min(95, round(100 * score / total_weight)) where total_weight sums
// weight*2 per timeframe, with a bonus when at least three raw sub-signals
// agree with the outcome.
func FuseTimeframes(perTF map[string]models.TimeframeAnalysis) *models.FusedAnalysis {
	out := &models.FusedAnalysis{
		Timeframes: perTF,
		Direction:  models.DirectionHold,
		Confidence: 50,
	}
	if len(perTF) == 0 {
		return out
	}

	var longScore, shortScore, totalWeight float64
	for tf, tfa := range perTF {
		w := domrepo.Timeframe(tf).Weight()
		for _, vote := range []models.SubSignal{tfa.Pattern, tfa.Technical} {
			switch vote.Direction {
			case models.DirectionLong:
				longScore += w * vote.Confidence
			case models.DirectionShort:
				shortScore += w * vote.Confidence
			}
			out.SignalCount++
		}
		totalWeight += w * 2
	}

	var winner float64
	switch {
	case longScore > shortScore:
		out.Direction = models.DirectionLong
		winner = longScore
	case shortScore > longScore:
		out.Direction = models.DirectionShort
		winner = shortScore
	default:
		return out
	}

	if totalWeight == 0 {
		out.Confidence = 60
	} else {
		out.Confidence = math.Min(95, math.Round(100*winner/totalWeight))
	}

	if countAgreeing(perTF, out.Direction) >= confluenceMin {
		out.Confidence = math.Min(95, out.Confidence+10)
	}
	return out
}

// countAgreeing counts raw sub-signals voting the final direction across
// all timeframes.
func countAgreeing(perTF map[string]models.TimeframeAnalysis, dir models.Direction) int {
	var n int
	for _, tfa := range perTF {
		for _, sub := range tfa.SubSignals {
			if sub.Direction == dir {
				n++
			}
		}
	}
	return n
}

// buildSummary lists detected chart patterns and the strong indicator votes
// backing the verdict.
func buildSummary(dir models.Direction, perTF map[string]models.TimeframeAnalysis) string {
	seen := make(map[string]struct{})
	var parts []string
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		parts = append(parts, s)
	}

	for tf, tfa := range perTF {
		for _, sub := range tfa.SubSignals {
			if sub.Direction == models.DirectionHold || sub.Direction != dir {
				continue
			}
			if _, voting := map[string]bool{"rsi": true, "macd": true, "moving_averages": true,
				"bollinger": true, "stochastic": true}[sub.Source]; voting {
				if sub.Confidence >= 75 {
					add(fmt.Sprintf("%s %s on %s", sub.Source, strings.ToLower(string(sub.Direction)), tf))
				}
				continue
			}
			add(fmt.Sprintf("%s on %s", sub.Source, tf))
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%s consensus across %d timeframe(s)", dir, len(perTF))
	}
	return strings.Join(parts, "; ")
}
