package service

import (
	"context"

	"SigPull/internal/domain/models"
)

// IndicatorAnalyzer derives a directional vote from computed indicator series.
type IndicatorAnalyzer interface {
	Analyze(ctx context.Context, series *models.Series) (models.SubSignal, []models.SubSignal, error)
}

// PatternAnalyzer derives a directional vote from chart structure.
type PatternAnalyzer interface {
	Analyze(ctx context.Context, series *models.Series) (models.SubSignal, []models.SubSignal, error)
}

// CoinScreener filters catalog entries down to tradable candidates.
type CoinScreener interface {
	Filter(coins []models.Coin) []models.Coin
	Reason(coin models.Coin) string
}

// SignalPublisher emits lifecycle events for downstream consumers.
type SignalPublisher interface {
	SignalCreated(ctx context.Context, s *models.Signal) error
	SignalClosed(ctx context.Context, e *models.HistoryEntry) error
	Close() error
}

// HistoryArchiver mirrors closed signals into long-term analytical storage.
type HistoryArchiver interface {
	Archive(ctx context.Context, entries []*models.HistoryEntry) error
	Close() error
}
