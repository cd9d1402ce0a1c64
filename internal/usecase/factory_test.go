package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigPull/internal/domain/models"
	xlogger "SigPull/pkg/logger"
)

func newTestLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return l
}

func fusedVerdict(dir models.Direction, conf, price float64) *models.FusedAnalysis {
	return &models.FusedAnalysis{
		Symbol:       "BTC",
		Direction:    dir,
		Confidence:   conf,
		CurrentPrice: price,
		Timeframes:   map[string]models.TimeframeAnalysis{"1h": {}},
		SignalCount:  2,
		Summary:      "test",
	}
}

func withATR(a *models.FusedAnalysis, atrPercent float64) *models.FusedAnalysis {
	a.Timeframes["1h"] = models.TimeframeAnalysis{
		SubSignals: []models.SubSignal{{
			Source:    "volatility",
			Direction: models.DirectionHold,
			Meta:      map[string]any{"atr_percent": atrPercent},
		}},
	}
	return a
}

func TestBuildRejections(t *testing.T) {
	f := NewSignalFactory(DefaultFactoryConfig(), newTestLogger(t))
	now := time.Now()

	_, ok := f.Build(nil, "", now)
	assert.False(t, ok)

	_, ok = f.Build(fusedVerdict(models.DirectionHold, 90, 100), "bitcoin", now)
	assert.False(t, ok)

	_, ok = f.Build(fusedVerdict(models.DirectionLong, 55, 100), "bitcoin", now)
	assert.False(t, ok)

	_, ok = f.Build(fusedVerdict(models.DirectionLong, 80, 0), "bitcoin", now)
	assert.False(t, ok)
}

func TestBuildLongWithATRLevels(t *testing.T) {
	f := NewSignalFactory(DefaultFactoryConfig(), newTestLogger(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := withATR(fusedVerdict(models.DirectionLong, 80, 100), 4.0)
	s, ok := f.Build(a, "bitcoin", now)
	require.True(t, ok)

	// risk = max(1.5, 4.0*0.8) = 3.2%
	assert.InDelta(t, 104.8, s.TP1, 1e-9)
	assert.InDelta(t, 109.6, s.TP2, 1e-9)
	assert.InDelta(t, 96.8, s.SL, 1e-9)
	assert.Zero(t, s.TP3)

	assert.Equal(t, "BTC_"+"1772366400", s.ID)
	assert.Equal(t, models.StatusActive, s.Status)
	assert.Equal(t, 80, s.Confidence)
	assert.Equal(t, "bitcoin", s.CoinID)
	assert.Equal(t, now.UTC(), s.CreatedAt)
}

func TestBuildShortMirrorsLevels(t *testing.T) {
	f := NewSignalFactory(DefaultFactoryConfig(), newTestLogger(t))

	a := withATR(fusedVerdict(models.DirectionShort, 75, 200), 4.0)
	s, ok := f.Build(a, "some-coin", time.Now())
	require.True(t, ok)

	assert.InDelta(t, 190.4, s.TP1, 1e-9) // -4.8%
	assert.InDelta(t, 180.8, s.TP2, 1e-9) // -9.6%
	assert.InDelta(t, 206.4, s.SL, 1e-9)  // +3.2%
}

func TestBuildQuietMarketUsesRiskFloor(t *testing.T) {
	f := NewSignalFactory(DefaultFactoryConfig(), newTestLogger(t))

	// ATR 0.4% is below the floor of 1.0, which is below the 1.5% risk floor
	a := withATR(fusedVerdict(models.DirectionLong, 80, 100), 0.4)
	s, ok := f.Build(a, "bitcoin", time.Now())
	require.True(t, ok)

	assert.InDelta(t, 102.25, s.TP1, 1e-9) // 1.5 * 1.5
	assert.InDelta(t, 104.5, s.TP2, 1e-9)  // 1.5 * 3
	assert.InDelta(t, 98.5, s.SL, 1e-9)
}

func TestBuildFallbackLevelsWithoutATR(t *testing.T) {
	f := NewSignalFactory(DefaultFactoryConfig(), newTestLogger(t))

	s, ok := f.Build(fusedVerdict(models.DirectionLong, 80, 100), "bitcoin", time.Now())
	require.True(t, ok)

	assert.InDelta(t, 103, s.TP1, 1e-9)
	assert.InDelta(t, 106, s.TP2, 1e-9)
	assert.InDelta(t, 98, s.SL, 1e-9)
}
