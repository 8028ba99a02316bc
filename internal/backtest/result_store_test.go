package backtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surge/internal/engine"
)

func newTestResultStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := NewResultStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestResultStoreRunLifecycle(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	run := NewRun(testSymbolConfig("BTCUSDT"), "2024-01")
	require.NoError(t, store.InsertRun(ctx, run))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.True(t, got.CompletedAt.IsZero())
	assert.Equal(t, 1.5, got.Config.Risk.SLMult)

	stats := RunStats{Bars: 400, Trades: 2, Wins: 1, WinRate: 0.5, TotalR: 1.0, AvgR: 0.5, TSLExits: 1}
	require.NoError(t, store.UpdateRunSummary(ctx, run.ID, RunStatusDone, stats, ""))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, got.Status)
	assert.Equal(t, 400, got.Stats.Bars)
	assert.Equal(t, 1, got.Stats.TSLExits)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestResultStoreFailedRunKeepsMessage(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	run := NewRun(testSymbolConfig("ETHUSDT"), "2024-02")
	require.NoError(t, store.InsertRun(ctx, run))
	require.NoError(t, store.UpdateRunSummary(ctx, run.ID, RunStatusFailed, RunStats{}, "数据缺失"))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "数据缺失", got.Message)
}

func TestResultStoreTradesRoundTrip(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	run := NewRun(testSymbolConfig("BTCUSDT"), "2024-01")
	require.NoError(t, store.InsertRun(ctx, run))

	trades := []engine.TradeRecord{
		{Symbol: "BTCUSDT", Side: "LONG", EntryTS: 1_704_067_260, EntryPx: 100, ExitTS: 1_704_067_560, ExitPx: 103,
			ExitReason: engine.ExitReasonTP, RMultiple: 2, RValue: 1.5, Stop: 98.5, HoldBars: 5},
		{Symbol: "BTCUSDT", Side: "SHORT", EntryTS: 1_704_070_000, EntryPx: 104, ExitPx: 102,
			ExitReason: engine.ExitReasonTSL, RMultiple: 1.2, RValue: 1.5, Stop: 102, StepCount: 3, OvershootR: 0, HoldBars: 9},
	}
	require.NoError(t, store.InsertTrades(ctx, run.ID, trades))
	require.NoError(t, store.InsertTrades(ctx, run.ID, nil))

	got, err := store.ListTrades(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "LONG", got[0].Side)
	assert.Equal(t, 2.0, got[0].RMultiple)
	assert.Equal(t, 3, got[1].StepCount)
	assert.Equal(t, engine.ExitReasonTSL, got[1].ExitReason)
}

func TestResultStoreListRuns(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	for _, sym := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		require.NoError(t, store.InsertRun(ctx, NewRun(testSymbolConfig(sym), "2024-01")))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestResultStoreGetRunMissing(t *testing.T) {
	store := newTestResultStore(t)
	_, err := store.GetRun(context.Background(), "does-not-exist")
	assert.Error(t, err)
}
