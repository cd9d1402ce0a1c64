package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigPull/internal/domain/models"
)

type memStore struct {
	active  []*models.Signal
	history []*models.HistoryEntry
}

func (m *memStore) LoadActive(context.Context) ([]*models.Signal, error)        { return m.active, nil }
func (m *memStore) LoadHistory(context.Context) ([]*models.HistoryEntry, error) { return m.history, nil }
func (m *memStore) SaveActive(_ context.Context, s []*models.Signal) error {
	m.active = s
	return nil
}
func (m *memStore) SaveHistory(_ context.Context, h []*models.HistoryEntry) error {
	m.history = h
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordScan(float64, int)         {}
func (nopMetrics) RecordAnalysisError(string)      {}
func (nopMetrics) RecordRefresh(int, int)          {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) SetActiveSignals(int)            {}

func newTestLedger(t *testing.T) (*SignalLedger, *memStore) {
	t.Helper()
	store := &memStore{}
	return NewSignalLedger(store, nopMetrics{}, newTestLogger(t)), store
}

func longSignal(id, symbol string, entry, tp1, tp2, tp3, sl float64) *models.Signal {
	return &models.Signal{
		ID:           id,
		CoinSymbol:   symbol,
		Direction:    models.DirectionLong,
		EntryPrice:   entry,
		CurrentPrice: entry,
		Confidence:   80,
		TP1:          tp1,
		TP2:          tp2,
		TP3:          tp3,
		SL:           sl,
		Status:       models.StatusActive,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestAddAndHasActiveFor(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Add(ctx, longSignal("BTC_1", "BTC", 100, 103, 106, 0, 98)))
	assert.True(t, l.HasActiveFor("BTC"))
	assert.False(t, l.HasActiveFor("ETH"))
	assert.Len(t, store.active, 1)
}

func TestApplyPricesUpdatesPnL(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, longSignal("BTC_1", "BTC", 100, 110, 120, 0, 90)))

	closed, err := l.ApplyPrices(ctx, map[string]float64{"BTC": 102}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, closed)

	active := l.Active()
	require.Len(t, active, 1)
	assert.InDelta(t, 2.0, active[0].PnLPercent, 1e-9)
	assert.InDelta(t, 20.0, active[0].PnLUSD, 1e-9) // 2% of 1000 notional
}

func TestApplyPricesClosesTP1(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, longSignal("BTC_1", "BTC", 100, 103, 106, 0, 98)))

	closed, err := l.ApplyPrices(ctx, map[string]float64{"BTC": 104}, time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, models.CloseReasonTP1, closed[0].CloseReason)
	assert.InDelta(t, 4.0, closed[0].PnLPercent, 1e-9)

	assert.Empty(t, l.Active())
	assert.Len(t, store.history, 1)

	// reapplying the same prices is a no-op
	closed, err = l.ApplyPrices(ctx, map[string]float64{"BTC": 104}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestApplyPricesFurthestTargetWins(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, longSignal("BTC_1", "BTC", 100, 103, 106, 109, 98)))

	closed, err := l.ApplyPrices(ctx, map[string]float64{"BTC": 112}, time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, models.CloseReasonTP3, closed[0].CloseReason)
}

func TestApplyPricesStopLoss(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, longSignal("BTC_1", "BTC", 100, 103, 106, 0, 98)))

	closed, err := l.ApplyPrices(ctx, map[string]float64{"BTC": 97}, time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, models.CloseReasonSL, closed[0].CloseReason)
	assert.InDelta(t, -3.0, closed[0].PnLPercent, 1e-9)
}

func TestApplyPricesShortSide(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	s := longSignal("ETH_1", "ETH", 200, 0, 0, 0, 0)
	s.Direction = models.DirectionShort
	s.TP1, s.SL = 190, 210
	require.NoError(t, l.Add(ctx, s))

	closed, err := l.ApplyPrices(ctx, map[string]float64{"ETH": 188}, time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, models.CloseReasonTP1, closed[0].CloseReason)
	assert.InDelta(t, 6.0, closed[0].PnLPercent, 1e-9) // (200-188)/200
}

func TestApplyPricesExtremePnLForceCloses(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	// no targets set, so only the sanity clamp can close it
	require.NoError(t, l.Add(ctx, longSignal("DOGE_1", "DOGE", 100, 0, 0, 0, 0)))

	closed, err := l.ApplyPrices(ctx, map[string]float64{"DOGE": 700}, time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, models.CloseReasonExtremePnL, closed[0].CloseReason)
	assert.InDelta(t, 500.0, closed[0].PnLPercent, 1e-9)
}

func TestApplyPricesIgnoresUnknownAndZeroPrices(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, longSignal("BTC_1", "BTC", 100, 103, 106, 0, 98)))

	closed, err := l.ApplyPrices(ctx, map[string]float64{"ETH": 500, "BTC": 0}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, closed)
	assert.Len(t, l.Active(), 1)
}

func TestExpireStale(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	old := longSignal("BTC_1", "BTC", 100, 103, 106, 0, 98)
	old.CreatedAt = time.Now().Add(-25 * time.Hour).UTC()
	fresh := longSignal("ETH_1", "ETH", 200, 210, 220, 0, 190)
	require.NoError(t, l.Add(ctx, old))
	require.NoError(t, l.Add(ctx, fresh))

	closed, err := l.ExpireStale(ctx, 24*time.Hour, time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "BTC_1", closed[0].ID)
	assert.Equal(t, models.CloseReasonExpired, closed[0].CloseReason)

	active := l.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "ETH_1", active[0].ID)
}

func TestStats(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	winner := longSignal("A_1", "A", 100, 104, 108, 0, 95)
	loser := longSignal("B_1", "B", 100, 110, 120, 0, 98)
	open := longSignal("C_1", "C", 100, 150, 200, 0, 50)
	require.NoError(t, l.Add(ctx, winner))
	require.NoError(t, l.Add(ctx, loser))
	require.NoError(t, l.Add(ctx, open))

	_, err := l.ApplyPrices(ctx, map[string]float64{"A": 104, "B": 97, "C": 101}, time.Now())
	require.NoError(t, err)

	stats := l.Stats()
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 2, stats.ClosedCount)
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 1, stats.ProfitableCount)
	assert.InDelta(t, 50.0, stats.SuccessRate, 1e-9)
	assert.InDelta(t, (4.0-3.0+1.0)/3, stats.AveragePnL, 1e-9)
	require.NotNil(t, stats.BestPerformer)
	assert.Equal(t, "C_1", stats.BestPerformer.ID)
}

func TestTopAndWorstPerformers(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for _, s := range []*models.Signal{
		longSignal("A_1", "A", 100, 200, 300, 0, 10),
		longSignal("B_1", "B", 100, 200, 300, 0, 10),
		longSignal("C_1", "C", 100, 200, 300, 0, 10),
	} {
		require.NoError(t, l.Add(ctx, s))
	}
	_, err := l.ApplyPrices(ctx, map[string]float64{"A": 105, "B": 95, "C": 110}, time.Now())
	require.NoError(t, err)

	top := l.TopPerformers(2)
	require.Len(t, top, 2)
	assert.Equal(t, "C_1", top[0].ID)
	assert.Equal(t, "A_1", top[1].ID)

	worst := l.WorstPerformers(1)
	require.Len(t, worst, 1)
	assert.Equal(t, "B_1", worst[0].ID)
}

func TestResetClearsEverything(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Add(ctx, longSignal("BTC_1", "BTC", 100, 103, 106, 0, 98)))
	_, err := l.ApplyPrices(ctx, map[string]float64{"BTC": 104}, time.Now())
	require.NoError(t, err)

	require.NoError(t, l.Reset(ctx))
	assert.Empty(t, l.Active())
	assert.Empty(t, l.History())
	assert.Empty(t, store.active)
	assert.Empty(t, store.history)
}

func TestLoadRestoresState(t *testing.T) {
	store := &memStore{
		active:  []*models.Signal{longSignal("BTC_1", "BTC", 100, 103, 106, 0, 98)},
		history: []*models.HistoryEntry{{ID: "ETH_1", CoinSymbol: "ETH"}},
	}
	l := NewSignalLedger(store, nopMetrics{}, newTestLogger(t))
	require.NoError(t, l.Load(context.Background()))

	assert.True(t, l.HasActiveFor("BTC"))
	assert.Len(t, l.History(), 1)
}
