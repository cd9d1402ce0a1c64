package repository

import (
	"context"

	"SigPull/internal/domain/models"
)

// MarketData provides candle history and spot prices for a symbol.
type MarketData interface {
	GetOHLCV(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
}

// CoinCatalog lists market entries ranked by capitalization and serves
// batched spot prices.
type CoinCatalog interface {
	GetTopCoins(ctx context.Context, limit int) ([]models.Coin, error)
	GetSimplePrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// SignalStore persists the signal ledger. Each call replaces the whole
// population atomically; a failed save leaves the previous snapshot intact.
type SignalStore interface {
	LoadActive(ctx context.Context) ([]*models.Signal, error)
	SaveActive(ctx context.Context, signals []*models.Signal) error
	LoadHistory(ctx context.Context) ([]*models.HistoryEntry, error)
	SaveHistory(ctx context.Context, entries []*models.HistoryEntry) error
}

// PriceStream delivers live price updates over a persistent connection.
type PriceStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational measurements from the scan pipeline.
type Metrics interface {
	RecordScan(seconds float64, generated int)
	RecordAnalysisError(stage string)
	RecordRefresh(updated, closed int)
	RecordLastPrice(symbol string, price float64)
	SetActiveSignals(n int)
}
