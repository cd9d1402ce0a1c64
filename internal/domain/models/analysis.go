package models

// Direction is a trade direction vote.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionHold  Direction = "HOLD"
)

// Opposite returns the mirrored direction; HOLD maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionHold
	}
}

// SubSignal is a single directional vote produced by one analyzer rule
// (an indicator or a chart pattern) on one timeframe.
type SubSignal struct {
	Source     string         `json:"source"`
	Direction  Direction      `json:"direction"`
	Confidence float64        `json:"confidence"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// TimeframeAnalysis holds both analyzer verdicts for one timeframe.
type TimeframeAnalysis struct {
	Timeframe  string      `json:"timeframe"`
	Pattern    SubSignal   `json:"pattern"`
	Technical  SubSignal   `json:"technical"`
	SubSignals []SubSignal `json:"sub_signals,omitempty"`
	Direction  Direction   `json:"direction"`
	Confidence float64     `json:"confidence"`
	DataPoints int         `json:"data_points"`
}

// FusedAnalysis is the multi-timeframe verdict for one symbol.
type FusedAnalysis struct {
	Symbol       string                       `json:"symbol"`
	Direction    Direction                    `json:"direction"`
	Confidence   float64                      `json:"confidence"`
	CurrentPrice float64                      `json:"current_price"`
	Timeframes   map[string]TimeframeAnalysis `json:"timeframes"`
	SignalCount  int                          `json:"signal_count"`
	Summary      string                       `json:"summary"`
}
