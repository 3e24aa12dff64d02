package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/cs2_market_watch/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestSQLiteStore_Items(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	item := &domain.Item{ID: "1315938982167306240", Name: "Sticker | Crown (Foil)", Folder: "stickers", LastUpdated: day(0)}
	require.NoError(t, store.SaveItem(ctx, item))

	item.Name = "Sticker | Crown"
	item.LastUpdated = day(1)
	require.NoError(t, store.SaveItem(ctx, item))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sticker | Crown", got.Name)
	assert.Equal(t, "stickers", got.Folder)
	assert.True(t, got.LastUpdated.Equal(day(1)))

	all, err := store.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_KLines_DedupAndRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	klines := []domain.KLine{
		{Time: day(0), Open: 10, Close: 11, High: 12, Low: 9, Volume: 5},
		{Time: day(1), Open: 11, Close: 12, High: 13, Low: 10, Volume: 6},
		{Time: day(2), Open: 12, Close: 13, High: 14, Low: 11, Volume: 7},
	}
	n, err := store.SaveKLines(ctx, "item", klines)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.SaveKLines(ctx, "item", append(klines, domain.KLine{Time: day(3), Open: 13, Close: 14, High: 15, Low: 12}))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the new day is inserted")

	all, err := store.ListKLines(ctx, "item", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].Time.Equal(day(0)))
	assert.Equal(t, 14.0, all[3].Close)

	ranged, err := store.ListKLines(ctx, "item", day(1), day(2))
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	other, err := store.ListKLines(ctx, "other", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteStore_Signals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, typ := range []domain.SignalType{domain.SignalBuy, domain.SignalSell} {
		sig := &domain.Signal{
			ItemID:   "item",
			ItemName: "AK-47 | Redline",
			Strategy: "Bollinger_20_2",
			Type:     typ,
			Price:    float64(100 + i),
			Details:  map[string]float64{"upper_band": 120.5},
			Reason:   "Death Cross",
			Time:     day(i),
		}
		require.NoError(t, store.SaveSignal(ctx, sig))
		assert.NotZero(t, sig.ID)
	}

	latest, err := store.ListLatestSignals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, domain.SignalSell, latest[0].Type)
	assert.Equal(t, 120.5, latest[0].Details["upper_band"])
	assert.Equal(t, "Death Cross", latest[0].Reason)
}

func TestSQLiteStore_BacktestRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &domain.BacktestRun{
		ID:        "run-1",
		ItemID:    "item",
		Strategy:  "bollinger",
		Params:    `{"lookback_days":100}`,
		Stats:     domain.Statistics{TotalTrades: 2, WinRate: 50, MaxLoss: -20},
		Open:      true,
		CreatedAt: day(0),
	}
	require.NoError(t, store.SaveBacktestRun(ctx, run))

	runs, err := store.ListBacktestRuns(ctx, "item", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.Stats, runs[0].Stats)
	assert.True(t, runs[0].Open)
}
