package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigPull/internal/domain/models"
)

func TestFileSignalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSignalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	signals := []*models.Signal{{
		ID:         "BTC_1700000000",
		CoinSymbol: "BTC",
		Direction:  models.DirectionLong,
		EntryPrice: 42000,
		TP1:        43260,
		SL:         41160,
		Status:     models.StatusActive,
		CreatedAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, store.SaveActive(ctx, signals))

	loaded, err := store.LoadActive(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, signals[0].ID, loaded[0].ID)
	assert.Equal(t, signals[0].EntryPrice, loaded[0].EntryPrice)
	assert.True(t, signals[0].CreatedAt.Equal(loaded[0].CreatedAt))

	history := []*models.HistoryEntry{{
		ID:          "ETH_1700000001",
		CoinSymbol:  "ETH",
		Direction:   models.DirectionShort,
		CloseReason: models.CloseReasonTP1,
		PnLPercent:  4.8,
	}}
	require.NoError(t, store.SaveHistory(ctx, history))

	entries, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.CloseReasonTP1, entries[0].CloseReason)
}

func TestFileSignalStoreMissingFiles(t *testing.T) {
	store, err := NewFileSignalStore(t.TempDir())
	require.NoError(t, err)

	active, err := store.LoadActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)

	history, err := store.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFileSignalStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSignalStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, activeFile), []byte("{not json"), 0o644))
	_, err = store.LoadActive(context.Background())
	assert.Error(t, err)
}

func TestFileSignalStoreNilSlicesBecomeEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSignalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveActive(ctx, nil))
	b, err := os.ReadFile(filepath.Join(dir, activeFile))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))
}
