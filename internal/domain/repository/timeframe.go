package repository

import "strings"

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// DefaultTimeframes is the set analyzed per symbol, shortest first.
func DefaultTimeframes() []Timeframe {
	return []Timeframe{TF15m, TF1h, TF4h, TF1d}
}

// Weight returns the fusion weight of a timeframe. Longer horizons count
// more; unknown timeframes fall back to 1.0.
func (tf Timeframe) Weight() float64 {
	switch tf {
	case TF15m:
		return 1.0
	case TF1h:
		return 1.2
	case TF4h:
		return 1.5
	case TF1d:
		return 2.0
	default:
		return 1.0
	}
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF15m, TF1h, TF4h, TF1d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1h }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(strings.ToLower(s))
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
