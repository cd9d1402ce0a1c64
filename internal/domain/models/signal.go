package models

import "time"

// SignalStatus is the lifecycle state of a trading signal.
type SignalStatus string

const (
	StatusActive    SignalStatus = "ACTIVE"
	StatusClosedTP1 SignalStatus = "CLOSED_TP1"
	StatusClosedTP2 SignalStatus = "CLOSED_TP2"
	StatusClosedTP3 SignalStatus = "CLOSED_TP3"
	StatusClosedSL  SignalStatus = "CLOSED_SL"
	StatusExpired   SignalStatus = "EXPIRED"
)

// Close reasons recorded in history entries.
const (
	CloseReasonTP1        = "TP1"
	CloseReasonTP2        = "TP2"
	CloseReasonTP3        = "TP3"
	CloseReasonSL         = "SL"
	CloseReasonExpired    = "EXPIRED"
	CloseReasonExtremePnL = "EXTREME_PNL"
)

// Signal is a tracked trading recommendation with target and stop levels.
// Entry fields are immutable after creation; only CurrentPrice, PnL and
// lifecycle fields change while the signal is active.
type Signal struct {
	ID             string       `json:"id"`
	CoinSymbol     string       `json:"coin_symbol"`
	CoinID         string       `json:"coin_id,omitempty"`
	Direction      Direction    `json:"direction"`
	EntryPrice     float64      `json:"entry_price"`
	CurrentPrice   float64      `json:"current_price"`
	Confidence     int          `json:"confidence"`
	TP1            float64      `json:"tp1"`
	TP2            float64      `json:"tp2"`
	TP3            float64      `json:"tp3,omitempty"` // 0 means unset
	SL             float64      `json:"sl"`
	Status         SignalStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty"`
	PnLPercent     float64      `json:"pnl_percentage"`
	PnLUSD         float64      `json:"pnl_usd"`
	TimeframeCount int          `json:"timeframe_count,omitempty"`
	SignalCount    int          `json:"signal_count,omitempty"`
	Summary        string       `json:"summary,omitempty"`
}

// HistoryEntry is the immutable record of a closed signal.
type HistoryEntry struct {
	ID              string    `json:"id"`
	CoinSymbol      string    `json:"coin_symbol"`
	Direction       Direction `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	ClosePrice      float64   `json:"close_price"`
	EntryTime       time.Time `json:"entry_time"`
	CloseTime       time.Time `json:"close_time"`
	PnLPercent      float64   `json:"pnl_percentage"`
	PnLUSD          float64   `json:"pnl_usd"`
	CloseReason     string    `json:"close_reason"`
	Confidence      int       `json:"confidence"`
	Summary         string    `json:"summary,omitempty"`
	DurationMinutes float64   `json:"duration_minutes"`
}

// PerformanceStats aggregates ledger performance over active and closed signals.
type PerformanceStats struct {
	ActiveCount     int     `json:"active_count"`
	ClosedCount     int     `json:"closed_count"`
	TotalCount      int     `json:"total_count"`
	TotalPnL        float64 `json:"total_pnl"`
	AveragePnL      float64 `json:"average_pnl"`
	SuccessRate     float64 `json:"success_rate"`
	ProfitableCount int     `json:"profitable_count"`
	BestPerformer   *Signal `json:"best_performer,omitempty"`
	WorstPerformer  *Signal `json:"worst_performer,omitempty"`
}
