package usecase

import (
	"fmt"
	"math"
	"time"

	"SigPull/internal/domain/models"
	xlogger "SigPull/pkg/logger"
)

// FactoryConfig tunes signal creation.
type FactoryConfig struct {
	MinConfidence float64 // verdicts below this never become signals
	ATRFloor      float64 // minimum ATR percent used for level sizing
	RiskFloor     float64 // minimum risk percent regardless of ATR
	ATRRiskScale  float64 // risk percent per ATR percent
	TP1Reward     float64 // reward multiple of risk for TP1
	TP2Reward     float64 // reward multiple of risk for TP2
}

// DefaultFactoryConfig returns the standard creation thresholds.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		MinConfidence: 60,
		ATRFloor:      1.0,
		RiskFloor:     1.5,
		ATRRiskScale:  0.8,
		TP1Reward:     1.5,
		TP2Reward:     3.0,
	}
}

// SignalFactory turns fused verdicts into tracked signals with target and
// stop levels.
type SignalFactory struct {
	cfg FactoryConfig
	log *xlogger.Logger
}

func NewSignalFactory(cfg FactoryConfig, log *xlogger.Logger) *SignalFactory {
	return &SignalFactory{cfg: cfg, log: log}
}

// Build creates an ACTIVE signal from a fused verdict. It returns false when
// the verdict is HOLD, below the confidence bar, or has no usable price.
func (f *SignalFactory) Build(a *models.FusedAnalysis, coinID string, now time.Time) (*models.Signal, bool) {
	if a == nil || a.Direction == models.DirectionHold {
		return nil, false
	}
	if a.Confidence < f.cfg.MinConfidence {
		return nil, false
	}
	if a.CurrentPrice <= 0 {
		f.log.Warn("no usable price for signal", xlogger.String("symbol", a.Symbol))
		return nil, false
	}

	tp1, tp2, sl := f.levels(a)

	s := &models.Signal{
		ID:             fmt.Sprintf("%s_%d", a.Symbol, now.Unix()),
		CoinSymbol:     a.Symbol,
		CoinID:         coinID,
		Direction:      a.Direction,
		EntryPrice:     a.CurrentPrice,
		CurrentPrice:   a.CurrentPrice,
		Confidence:     int(math.Round(a.Confidence)),
		TP1:            tp1,
		TP2:            tp2,
		SL:             sl,
		Status:         models.StatusActive,
		CreatedAt:      now.UTC(),
		TimeframeCount: len(a.Timeframes),
		SignalCount:    a.SignalCount,
		Summary:        a.Summary,
	}
	return s, true
}

// levels sizes targets and stop from volatility. Risk scales with ATR, with
// a floor so quiet markets still leave room; rewards are fixed multiples of
// risk. Without an ATR read the levels fall back to fixed percentages.
func (f *SignalFactory) levels(a *models.FusedAnalysis) (tp1, tp2, sl float64) {
	entry := a.CurrentPrice
	atrPct := atrPercentFrom(a)

	var riskPct, tp1Pct, tp2Pct float64
	if atrPct > 0 {
		if atrPct < f.cfg.ATRFloor {
			atrPct = f.cfg.ATRFloor
		}
		riskPct = math.Max(f.cfg.RiskFloor, atrPct*f.cfg.ATRRiskScale)
		tp1Pct = riskPct * f.cfg.TP1Reward
		tp2Pct = riskPct * f.cfg.TP2Reward
	} else {
		riskPct, tp1Pct, tp2Pct = 2.0, 3.0, 6.0
	}

	if a.Direction == models.DirectionLong {
		tp1 = entry * (1 + tp1Pct/100)
		tp2 = entry * (1 + tp2Pct/100)
		sl = entry * (1 - riskPct/100)
	} else {
		tp1 = entry * (1 - tp1Pct/100)
		tp2 = entry * (1 - tp2Pct/100)
		sl = entry * (1 + riskPct/100)
	}
	return tp1, tp2, sl
}

// atrPercentFrom pulls the first ATR reading found in the per-timeframe
// advisory sub-signals.
func atrPercentFrom(a *models.FusedAnalysis) float64 {
	for _, tfa := range a.Timeframes {
		for _, sub := range tfa.SubSignals {
			if sub.Source != "volatility" {
				continue
			}
			if v, ok := sub.Meta["atr_percent"].(float64); ok && v > 0 {
				return v
			}
		}
	}
	return 0
}
