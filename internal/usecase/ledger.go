package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"SigPull/internal/domain/models"
	domrepo "SigPull/internal/domain/repository"
	xlogger "SigPull/pkg/logger"
)

const (
	// notionalUSD is the reference position size used for USD PnL.
	notionalUSD = 1000.0

	// pnlClampPercent bounds recorded PnL; beyond it the price feed is
	// considered broken and the signal is force-closed.
	pnlClampPercent = 500.0

	// defaultMaxSignalAge expires signals that never hit a level.
	defaultMaxSignalAge = 24 * time.Hour
)

// SignalLedger is the single owner of active signals and their history.
// All lifecycle transitions (price updates, closures, expiry) go through it.
type SignalLedger struct {
	mu      sync.RWMutex
	active  []*models.Signal
	history []*models.HistoryEntry

	store   domrepo.SignalStore
	metrics domrepo.Metrics
	log     *xlogger.Logger
}

func NewSignalLedger(store domrepo.SignalStore, metrics domrepo.Metrics, log *xlogger.Logger) *SignalLedger {
	return &SignalLedger{store: store, metrics: metrics, log: log}
}

// Load restores the ledger from the store. Called once at startup.
func (l *SignalLedger) Load(ctx context.Context) error {
	active, err := l.store.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("load active: %w", err)
	}
	history, err := l.store.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	l.mu.Lock()
	l.active = active
	l.history = history
	l.mu.Unlock()

	l.metrics.SetActiveSignals(len(active))
	l.log.Info("ledger loaded",
		xlogger.Int("active", len(active)),
		xlogger.Int("history", len(history)))
	return nil
}

// Add registers a new active signal and persists the ledger. A persistence
// failure is returned but the in-memory state keeps the signal.
func (l *SignalLedger) Add(ctx context.Context, s *models.Signal) error {
	l.mu.Lock()
	l.active = append(l.active, s)
	snapshot := copySignals(l.active)
	l.mu.Unlock()

	l.metrics.SetActiveSignals(len(snapshot))
	if err := l.store.SaveActive(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: %v", domrepo.ErrStoreFailure, err)
	}
	return nil
}

// HasActiveFor reports whether the symbol already has an active signal.
func (l *SignalLedger) HasActiveFor(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.active {
		if s.CoinSymbol == symbol {
			return true
		}
	}
	return false
}

// ApplyPrices updates every active signal whose symbol appears in prices,
// recomputes PnL and evaluates closure in one pass. It returns the entries
// closed by this update. Applying the same prices twice is a no-op for the
// second call: closed signals are already out of the active set.
func (l *SignalLedger) ApplyPrices(ctx context.Context, prices map[string]float64, now time.Time) ([]*models.HistoryEntry, error) {
	var closed []*models.HistoryEntry
	var updated int

	l.mu.Lock()
	remaining := l.active[:0]
	for _, s := range l.active {
		price, ok := prices[s.CoinSymbol]
		if !ok || price <= 0 {
			remaining = append(remaining, s)
			continue
		}
		updated++
		s.CurrentPrice = price
		s.PnLPercent = pnlPercent(s.Direction, s.EntryPrice, price)
		s.PnLUSD = s.PnLPercent / 100 * notionalUSD
		l.metrics.RecordLastPrice(s.CoinSymbol, price)

		status, reason := evaluateClose(s, price)
		if status == models.StatusActive {
			remaining = append(remaining, s)
			continue
		}
		closed = append(closed, l.closeLocked(s, status, reason, price, now))
	}
	l.active = remaining
	activeSnap := copySignals(l.active)
	historySnap := copyHistory(l.history)
	l.mu.Unlock()

	l.metrics.RecordRefresh(updated, len(closed))
	l.metrics.SetActiveSignals(len(activeSnap))

	if err := l.persist(ctx, activeSnap, historySnap); err != nil {
		return closed, err
	}
	return closed, nil
}

// ExpireStale force-closes signals older than maxAge at their current price.
func (l *SignalLedger) ExpireStale(ctx context.Context, maxAge time.Duration, now time.Time) ([]*models.HistoryEntry, error) {
	if maxAge <= 0 {
		maxAge = defaultMaxSignalAge
	}

	var closed []*models.HistoryEntry
	l.mu.Lock()
	remaining := l.active[:0]
	for _, s := range l.active {
		if now.Sub(s.CreatedAt) < maxAge {
			remaining = append(remaining, s)
			continue
		}
		closed = append(closed, l.closeLocked(s, models.StatusExpired, models.CloseReasonExpired, s.CurrentPrice, now))
	}
	l.active = remaining
	activeSnap := copySignals(l.active)
	historySnap := copyHistory(l.history)
	l.mu.Unlock()

	if len(closed) == 0 {
		return nil, nil
	}
	l.metrics.SetActiveSignals(len(activeSnap))
	if err := l.persist(ctx, activeSnap, historySnap); err != nil {
		return closed, err
	}
	return closed, nil
}

// closeLocked finalizes a signal and appends its history entry. Caller holds
// the write lock and has already removed the signal from the active slice.
func (l *SignalLedger) closeLocked(s *models.Signal, status models.SignalStatus, reason string, price float64, now time.Time) *models.HistoryEntry {
	pnl := clampPnL(pnlPercent(s.Direction, s.EntryPrice, price))
	closedAt := now.UTC()

	s.Status = status
	s.ClosedAt = &closedAt
	s.CurrentPrice = price
	s.PnLPercent = pnl
	s.PnLUSD = pnl / 100 * notionalUSD

	entry := &models.HistoryEntry{
		ID:              s.ID,
		CoinSymbol:      s.CoinSymbol,
		Direction:       s.Direction,
		EntryPrice:      s.EntryPrice,
		ClosePrice:      price,
		EntryTime:       s.CreatedAt,
		CloseTime:       closedAt,
		PnLPercent:      pnl,
		PnLUSD:          pnl / 100 * notionalUSD,
		CloseReason:     reason,
		Confidence:      s.Confidence,
		Summary:         s.Summary,
		DurationMinutes: closedAt.Sub(s.CreatedAt).Minutes(),
	}
	l.history = append(l.history, entry)
	l.log.Info("signal closed",
		xlogger.String("id", s.ID),
		xlogger.String("reason", reason),
		xlogger.Any("pnl_percentage", pnl))
	return entry
}

// Active returns a snapshot of active signals.
func (l *SignalLedger) Active() []*models.Signal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copySignals(l.active)
}

// History returns a snapshot of closed signal records.
func (l *SignalLedger) History() []*models.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyHistory(l.history)
}

// Stats aggregates performance over both populations.
func (l *SignalLedger) Stats() models.PerformanceStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := models.PerformanceStats{
		ActiveCount: len(l.active),
		ClosedCount: len(l.history),
		TotalCount:  len(l.active) + len(l.history),
	}

	for _, s := range l.active {
		stats.TotalPnL += s.PnLPercent
	}
	for _, e := range l.history {
		stats.TotalPnL += e.PnLPercent
		if e.PnLPercent > 0 {
			stats.ProfitableCount++
		}
	}
	if stats.TotalCount > 0 {
		stats.AveragePnL = stats.TotalPnL / float64(stats.TotalCount)
	}
	if stats.ClosedCount > 0 {
		stats.SuccessRate = float64(stats.ProfitableCount) / float64(stats.ClosedCount) * 100
	}

	if best := bestOf(l.active, true); best != nil {
		cp := *best
		stats.BestPerformer = &cp
	}
	if worst := bestOf(l.active, false); worst != nil {
		cp := *worst
		stats.WorstPerformer = &cp
	}
	return stats
}

// TopPerformers returns the n active signals with the highest PnL.
func (l *SignalLedger) TopPerformers(n int) []*models.Signal {
	return l.rankedActive(n, func(a, b *models.Signal) bool { return a.PnLPercent > b.PnLPercent })
}

// WorstPerformers returns the n active signals with the lowest PnL.
func (l *SignalLedger) WorstPerformers(n int) []*models.Signal {
	return l.rankedActive(n, func(a, b *models.Signal) bool { return a.PnLPercent < b.PnLPercent })
}

func (l *SignalLedger) rankedActive(n int, less func(a, b *models.Signal) bool) []*models.Signal {
	snapshot := l.Active()
	sort.SliceStable(snapshot, func(i, j int) bool { return less(snapshot[i], snapshot[j]) })
	if n > 0 && n < len(snapshot) {
		snapshot = snapshot[:n]
	}
	return snapshot
}

// Reset clears the ledger and persists the empty state.
func (l *SignalLedger) Reset(ctx context.Context) error {
	l.mu.Lock()
	l.active = nil
	l.history = nil
	l.mu.Unlock()

	l.metrics.SetActiveSignals(0)
	return l.persist(ctx, nil, nil)
}

func (l *SignalLedger) persist(ctx context.Context, active []*models.Signal, history []*models.HistoryEntry) error {
	if err := l.store.SaveActive(ctx, active); err != nil {
		return fmt.Errorf("%w: save active: %v", domrepo.ErrStoreFailure, err)
	}
	if err := l.store.SaveHistory(ctx, history); err != nil {
		return fmt.Errorf("%w: save history: %v", domrepo.ErrStoreFailure, err)
	}
	return nil
}

// pnlPercent is the unrealized return in percent for a position of the given
// direction.
func pnlPercent(dir models.Direction, entry, current float64) float64 {
	if entry == 0 {
		return 0
	}
	if dir == models.DirectionShort {
		return (entry - current) / entry * 100
	}
	return (current - entry) / entry * 100
}

func clampPnL(pnl float64) float64 {
	if pnl > pnlClampPercent {
		return pnlClampPercent
	}
	if pnl < -pnlClampPercent {
		return -pnlClampPercent
	}
	return pnl
}

// evaluateClose checks the price against the signal's levels. The furthest
// target wins when several are crossed at once: TP3 before TP2 before TP1
// before SL. A PnL beyond the clamp bound also closes the position.
func evaluateClose(s *models.Signal, price float64) (models.SignalStatus, string) {
	long := s.Direction == models.DirectionLong

	hitTP := func(level float64) bool {
		if level <= 0 {
			return false
		}
		if long {
			return price >= level
		}
		return price <= level
	}
	hitSL := func(level float64) bool {
		if level <= 0 {
			return false
		}
		if long {
			return price <= level
		}
		return price >= level
	}

	switch {
	case hitTP(s.TP3):
		return models.StatusClosedTP3, models.CloseReasonTP3
	case hitTP(s.TP2):
		return models.StatusClosedTP2, models.CloseReasonTP2
	case hitTP(s.TP1):
		return models.StatusClosedTP1, models.CloseReasonTP1
	case hitSL(s.SL):
		return models.StatusClosedSL, models.CloseReasonSL
	}

	if pnl := pnlPercent(s.Direction, s.EntryPrice, price); pnl > pnlClampPercent || pnl < -pnlClampPercent {
		return models.StatusClosedSL, models.CloseReasonExtremePnL
	}
	return models.StatusActive, ""
}

func bestOf(signals []*models.Signal, top bool) *models.Signal {
	var best *models.Signal
	for _, s := range signals {
		if best == nil || (top && s.PnLPercent > best.PnLPercent) || (!top && s.PnLPercent < best.PnLPercent) {
			best = s
		}
	}
	return best
}

func copySignals(in []*models.Signal) []*models.Signal {
	out := make([]*models.Signal, len(in))
	copy(out, in)
	return out
}

func copyHistory(in []*models.HistoryEntry) []*models.HistoryEntry {
	out := make([]*models.HistoryEntry, len(in))
	copy(out, in)
	return out
}
