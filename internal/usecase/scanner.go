package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SigPull/internal/domain/models"
	domrepo "SigPull/internal/domain/repository"
	domsvc "SigPull/internal/domain/service"
	xlogger "SigPull/pkg/logger"
)

// ScannerConfig tunes the background loops.
type ScannerConfig struct {
	ScanInterval    time.Duration // signal generation cadence
	RefreshInterval time.Duration // price refresh cadence
	CatalogLimit    int           // coins pulled from the catalog per scan
	CoinsPerScan    int           // screened coins analyzed per scan
	MaxSignalAge    time.Duration // expiry for signals that never hit a level
}

// DefaultScannerConfig returns the standard cadence.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		ScanInterval:    15 * time.Minute,
		RefreshInterval: 30 * time.Second,
		CatalogLimit:    100,
		CoinsPerScan:    15,
		MaxSignalAge:    defaultMaxSignalAge,
	}
}

// Scanner owns the periodic generation and refresh loops. Each loop runs at
// most one pass at a time and stops promptly on cancellation.
type Scanner struct {
	cfg       ScannerConfig
	catalog   domrepo.CoinCatalog
	screener  domsvc.CoinScreener
	analyzer  *Analyzer
	factory   *SignalFactory
	ledger    *SignalLedger
	publisher domsvc.SignalPublisher
	archiver  domsvc.HistoryArchiver
	metrics   domrepo.Metrics
	log       *xlogger.Logger

	genMu     sync.Mutex // at most one generation pass in flight
	refreshMu sync.Mutex // at most one refresh pass in flight

	mu         sync.Mutex
	running    bool
	cancelScan context.CancelFunc
	scanCount  int
	lastScan   *time.Time
	lastFresh  *time.Time
	interval   time.Duration
}

func NewScanner(
	cfg ScannerConfig,
	catalog domrepo.CoinCatalog,
	scr domsvc.CoinScreener,
	analyzer *Analyzer,
	factory *SignalFactory,
	ledger *SignalLedger,
	publisher domsvc.SignalPublisher,
	archiver domsvc.HistoryArchiver,
	metrics domrepo.Metrics,
	log *xlogger.Logger,
) *Scanner {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 15 * time.Minute
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.CoinsPerScan <= 0 {
		cfg.CoinsPerScan = 15
	}
	if cfg.CatalogLimit <= 0 {
		cfg.CatalogLimit = 100
	}
	return &Scanner{
		cfg:       cfg,
		catalog:   catalog,
		screener:  scr,
		analyzer:  analyzer,
		factory:   factory,
		ledger:    ledger,
		publisher: publisher,
		archiver:  archiver,
		metrics:   metrics,
		log:       log,
		interval:  cfg.ScanInterval,
	}
}

// StartRefreshLoop launches the price refresh loop. It runs for the life of
// the application regardless of auto-scan state.
func (sc *Scanner) StartRefreshLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sc.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := sc.RunRefresh(ctx); err != nil {
					sc.log.Warn("price refresh failed", xlogger.Error(err))
				}
			}
		}
	}()
}

// StartAutoScan launches the periodic generation loop. Returns an error when
// already running.
func (sc *Scanner) StartAutoScan(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = sc.cfg.ScanInterval
	}

	sc.mu.Lock()
	if sc.running {
		sc.mu.Unlock()
		return fmt.Errorf("auto-scan already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	sc.running = true
	sc.cancelScan = cancel
	sc.interval = interval
	sc.mu.Unlock()

	sc.log.Info("auto-scan started", xlogger.Duration("interval", interval))
	go func() {
		// first pass immediately, then on the ticker
		if _, err := sc.RunGeneration(loopCtx, sc.cfg.CoinsPerScan); err != nil {
			sc.log.Warn("scan pass failed", xlogger.Error(err))
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := sc.RunGeneration(loopCtx, sc.cfg.CoinsPerScan); err != nil {
					sc.log.Warn("scan pass failed", xlogger.Error(err))
				}
			}
		}
	}()
	return nil
}

// StopAutoScan cancels the generation loop. A pass already in flight finishes
// its current symbol and then observes the cancelled context.
func (sc *Scanner) StopAutoScan() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.running {
		return
	}
	sc.running = false
	if sc.cancelScan != nil {
		sc.cancelScan()
		sc.cancelScan = nil
	}
	sc.log.Info("auto-scan stopped")
}

// Status reports the scanner state.
func (sc *Scanner) Status() models.ScanStatus {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	st := models.ScanStatus{
		Running:         sc.running,
		ScanInterval:    sc.interval.Seconds(),
		RefreshInterval: sc.cfg.RefreshInterval.Seconds(),
		ScanCount:       sc.scanCount,
		LastScanAt:      sc.lastScan,
		LastRefreshAt:   sc.lastFresh,
	}
	if sc.running && sc.lastScan != nil {
		next := sc.lastScan.Add(sc.interval)
		st.NextScanAt = &next
	}
	return st
}

// RunGeneration performs one screening and signal generation pass. A pass
// already in flight makes this call a no-op.
func (sc *Scanner) RunGeneration(ctx context.Context, coinCount int) (*models.ScanRunResult, error) {
	if !sc.genMu.TryLock() {
		return nil, fmt.Errorf("generation pass already in flight")
	}
	defer sc.genMu.Unlock()

	if coinCount <= 0 {
		coinCount = sc.cfg.CoinsPerScan
	}
	start := time.Now()
	result := &models.ScanRunResult{StartedAt: start.UTC()}

	coins, err := sc.catalog.GetTopCoins(ctx, sc.cfg.CatalogLimit)
	if err != nil {
		sc.metrics.RecordAnalysisError("catalog")
		return nil, fmt.Errorf("top coins: %w", err)
	}

	candidates := sc.screener.Filter(coins)
	if len(candidates) > coinCount {
		candidates = candidates[:coinCount]
	}

	for _, coin := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		if sc.ledger.HasActiveFor(coin.Symbol) {
			continue
		}

		analysis, err := sc.analyzer.AnalyzeSymbol(ctx, coin.Symbol)
		if err != nil {
			result.Failed++
			sc.log.Warn("symbol analysis failed",
				xlogger.String("symbol", coin.Symbol),
				xlogger.Error(err))
			continue
		}

		signal, ok := sc.factory.Build(analysis, coin.ID, time.Now())
		if !ok {
			continue
		}
		if err := sc.ledger.Add(ctx, signal); err != nil {
			result.Failed++
			sc.log.Error("signal persist failed",
				xlogger.String("id", signal.ID),
				xlogger.Error(err))
			continue
		}
		result.Generated++
		sc.log.Info("signal created",
			xlogger.String("id", signal.ID),
			xlogger.String("direction", string(signal.Direction)),
			xlogger.Int("confidence", signal.Confidence))

		if err := sc.publisher.SignalCreated(ctx, signal); err != nil {
			sc.log.Warn("signal event publish failed", xlogger.Error(err))
		}
	}

	result.Duration = time.Since(start).Seconds()
	sc.metrics.RecordScan(result.Duration, result.Generated)

	now := time.Now().UTC()
	sc.mu.Lock()
	sc.scanCount++
	sc.lastScan = &now
	sc.mu.Unlock()

	return result, nil
}

// RunRefresh performs one price refresh pass over the active signals.
// Prices are fetched before the ledger is touched so no lock is held during
// network I/O.
func (sc *Scanner) RunRefresh(ctx context.Context) (*models.ScanRunResult, error) {
	if !sc.refreshMu.TryLock() {
		return nil, fmt.Errorf("refresh pass already in flight")
	}
	defer sc.refreshMu.Unlock()

	start := time.Now()
	result := &models.ScanRunResult{StartedAt: start.UTC()}

	symbols := activeSymbols(sc.ledger.Active())
	if len(symbols) > 0 {
		prices, err := sc.catalog.GetSimplePrices(ctx, symbols)
		if err != nil {
			sc.metrics.RecordAnalysisError("prices")
			return nil, fmt.Errorf("fetch prices: %w", err)
		}

		closed, err := sc.ledger.ApplyPrices(ctx, prices, time.Now())
		if err != nil {
			sc.log.Error("ledger persist failed after refresh", xlogger.Error(err))
		}
		result.Updated = len(prices)
		result.Closed += len(closed)
		sc.finalizeClosed(ctx, closed)
	}

	expired, err := sc.ledger.ExpireStale(ctx, sc.cfg.MaxSignalAge, time.Now())
	if err != nil {
		sc.log.Error("ledger persist failed after expiry", xlogger.Error(err))
	}
	result.Closed += len(expired)
	sc.finalizeClosed(ctx, expired)

	result.Duration = time.Since(start).Seconds()
	now := time.Now().UTC()
	sc.mu.Lock()
	sc.lastFresh = &now
	sc.mu.Unlock()

	return result, nil
}

// finalizeClosed emits events and archives entries for freshly closed signals.
func (sc *Scanner) finalizeClosed(ctx context.Context, closed []*models.HistoryEntry) {
	if len(closed) == 0 {
		return
	}
	for _, e := range closed {
		if err := sc.publisher.SignalClosed(ctx, e); err != nil {
			sc.log.Warn("close event publish failed",
				xlogger.String("id", e.ID),
				xlogger.Error(err))
		}
	}
	if err := sc.archiver.Archive(ctx, closed); err != nil {
		sc.log.Warn("history archive failed", xlogger.Error(err))
	}
}

func activeSymbols(signals []*models.Signal) []string {
	seen := make(map[string]struct{}, len(signals))
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		if _, dup := seen[s.CoinSymbol]; dup {
			continue
		}
		seen[s.CoinSymbol] = struct{}{}
		out = append(out, s.CoinSymbol)
	}
	return out
}
