package models

import "time"

// Candle represents a single OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Series is a candle history for one symbol/timeframe together with the
// indicator columns computed from it. Every indicator slice is aligned with
// Candles (same length); warm-up positions hold NaN.
type Series struct {
	Symbol     string
	Timeframe  string
	Candles    []Candle
	Indicators map[string][]float64
}

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high column.
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low column.
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume column.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// LastClose returns the close of the most recent candle (0 if empty).
func (s *Series) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// Indicator returns the named indicator column (nil if absent).
func (s *Series) Indicator(name string) []float64 {
	if s.Indicators == nil {
		return nil
	}
	return s.Indicators[name]
}

// LastIndicator returns the latest value of the named indicator column.
// ok is false when the column is absent or empty.
func (s *Series) LastIndicator(name string) (float64, bool) {
	col := s.Indicator(name)
	if len(col) == 0 {
		return 0, false
	}
	return col[len(col)-1], true
}
