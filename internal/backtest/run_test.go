package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"surge/internal/config"
	"surge/internal/engine"
)

func testSymbolConfig(symbol string) config.SymbolConfig {
	return config.SymbolConfig{
		Symbol:   symbol,
		TickSize: 0.1,
		Warmup:   240,
		Risk:     config.RiskConfig{ATR: config.ATRConfig{Window: 14, Method: "wilder"}, SLMult: 1.5},
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun(testSymbolConfig("BTCUSDT"), "2024-01,2024-02")
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "BTCUSDT", run.Symbol)
	assert.Equal(t, "2024-01,2024-02", run.Months)
	assert.Equal(t, RunStatusRunning, run.Status)

	other := NewRun(testSymbolConfig("ETHUSDT"), "2024-01")
	assert.NotEqual(t, run.ID, other.ID)
}

func TestStatsFromTrades(t *testing.T) {
	trades := []engine.TradeRecord{
		{RMultiple: 2, ExitReason: engine.ExitReasonTP},
		{RMultiple: -1, ExitReason: engine.ExitReasonSL},
		{RMultiple: 0.5, ExitReason: engine.ExitReasonTSL},
		{RMultiple: -1, ExitReason: engine.ExitReasonSL},
		{RMultiple: 1.5, ExitReason: engine.ExitReasonTSL},
	}
	st := StatsFromTrades(trades, 1000)

	assert.Equal(t, 1000, st.Bars)
	assert.Equal(t, 5, st.Trades)
	assert.Equal(t, 3, st.Wins)
	assert.InDelta(t, 0.6, st.WinRate, 1e-9)
	assert.InDelta(t, 2.0, st.TotalR, 1e-9)
	assert.InDelta(t, 0.4, st.AvgR, 1e-9)
	assert.InDelta(t, 0.5, st.MedianR, 1e-9)
	assert.Equal(t, 2, st.TSLExits)
}

func TestStatsFromTradesEmpty(t *testing.T) {
	st := StatsFromTrades(nil, 500)
	assert.Equal(t, 500, st.Bars)
	assert.Equal(t, 0, st.Trades)
	assert.Equal(t, 0.0, st.WinRate)
	assert.Equal(t, 0.0, st.MedianR)
}

func TestMedianOf(t *testing.T) {
	assert.Equal(t, 0.0, medianOf(nil))
	assert.Equal(t, 2.0, medianOf([]float64{3, 1, 2}))
	assert.Equal(t, 1.5, medianOf([]float64{2, 1}))
}
