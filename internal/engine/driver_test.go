package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surge/internal/config"
	"surge/internal/market"
)

func driverCfg() config.SymbolConfig {
	return config.SymbolConfig{
		Symbol:   "BTCUSDT",
		TickSize: 0.1,
		Warmup:   8,
		Regime: config.TSMomConfig{
			Timeframes:      []config.RegimeWindow{{LookbackCloses: 1}},
			RequireMajority: 1,
		},
		EventWave: config.EventWaveConfig{
			Squeeze: config.SqueezeConfig{ATRWindow: 2, PctOfMedian: 0.75, MedianWindow: 4},
			Release: config.ReleaseConfig{ZScoreWindow: 4, ZScoreThreshold: 1.5, GraceBars: 2},
		},
		Trigger: config.TriggerConfig{Mode: TriggerModeZScore, DonchianWindow: 4, ZScoreWindow: 4, ZScoreThreshold: 1.5},
		Entry:   config.EntryConfig{Direction: "both", CooldownBars: 2},
		Risk: config.RiskConfig{
			ATR:    config.ATRConfig{Window: 2, Method: "sma"},
			SLMult: 1.0,
			TPMult: 0,
			BE:     config.BEConfig{Enabled: false},
			TSL:    config.TSLConfig{Enabled: false},
		},
	}
}

// squeezeReleaseBars 构造一段先震荡、再收缩、然后放量向上突破的行情。
func squeezeReleaseBars() []market.Candle {
	var out []market.Candle
	add := func(minute int, o, h, l, c float64) {
		out = append(out, bar(minute, o, h, l, c))
	}
	// 常态震荡: 波幅 2.0
	for i := 0; i < 10; i++ {
		close := 100.2
		if i%2 == 1 {
			close = 99.8
		}
		add(i, 100, 101, 99, close)
	}
	// 收缩: 波幅 0.5
	add(10, 100, 100.25, 99.75, 100.05)
	add(11, 100, 100.25, 99.75, 99.95)
	add(12, 100, 100.25, 99.75, 100.05)
	add(13, 100, 100.25, 99.75, 99.95)
	// 释放: 大阳线突破
	add(14, 100, 105, 99.9, 105)
	// 突破后高位整理
	add(15, 105, 105.5, 104.5, 105.2)
	add(16, 105.2, 105.6, 104.6, 105.1)
	add(17, 105.1, 105.8, 104.8, 105.3)
	add(18, 105.3, 105.7, 104.7, 105.2)
	add(19, 105.2, 105.75, 104.75, 105.25)
	return out
}

func TestDriverSqueezeReleaseEntry(t *testing.T) {
	candles := squeezeReleaseBars()
	res, err := NewDriver(driverCfg()).Run(context.Background(), candles)
	require.NoError(t, err)

	assert.Equal(t, 20, res.Audit.BarsUsed)
	assert.Equal(t, 0, res.Audit.BarsSkipped)
	assert.Equal(t, 1, res.Audit.ReleasesFired)
	assert.Equal(t, 1, res.Audit.SignalsArmed)
	assert.Equal(t, 1, res.Audit.EntriesFilled)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, "long", tr.Side)
	// 信号出现在突破根，成交在下一根的开盘价
	assert.InDelta(t, 105.0, tr.EntryPx, 1e-9)
	assert.Equal(t, 15, tr.EntryBar)
	assert.Equal(t, 19, tr.ExitBar)
	assert.Equal(t, candles[15].EpochSecs(), tr.EntryTS)
	// 数据末尾按收盘价强制平仓
	assert.Equal(t, ExitReasonClose, tr.ExitReason)
	assert.InDelta(t, 105.25, tr.ExitPx, 1e-9)
	assert.Greater(t, tr.RMultiple, 0.0)
}

func TestDriverDropsSecondTriggerWhileHolding(t *testing.T) {
	// 突破后的整理让波幅重新收缩，第 20 根再次放量突破:
	// 第二次释放出现在持仓期间，信号必须被丢弃，只产生一笔成交
	candles := append(squeezeReleaseBars(), bar(20, 105.25, 110, 105.2, 110))
	res, err := NewDriver(driverCfg()).Run(context.Background(), candles)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Audit.ReleasesFired)
	assert.Equal(t, 1, res.Audit.SignalsArmed)
	assert.Equal(t, 1, res.Audit.SignalsDropped)
	assert.Equal(t, 1, res.Audit.EntriesFilled)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, 15, tr.EntryBar)
	assert.Equal(t, 20, tr.ExitBar)
	assert.Equal(t, ExitReasonClose, tr.ExitReason)
	assert.InDelta(t, 110.0, tr.ExitPx, 1e-9)
}

func TestDriverDeterministicReplay(t *testing.T) {
	candles := squeezeReleaseBars()
	d := NewDriver(driverCfg())

	first, err := d.Run(context.Background(), candles)
	require.NoError(t, err)
	second, err := NewDriver(driverCfg()).Run(context.Background(), candles)
	require.NoError(t, err)

	assert.Equal(t, first.Trades, second.Trades)
	assert.Equal(t, first.Audit, second.Audit)
}

func TestDriverSkipsMalformedBars(t *testing.T) {
	candles := squeezeReleaseBars()
	// 注入一根负价 K 线和一根重复时间戳 K 线
	broken := bar(7, 100, 101, 99, 100.2)
	broken.Low = -1
	dup := candles[5]
	candles = append(candles, broken, dup)

	res, err := NewDriver(driverCfg()).Run(context.Background(), candles)
	require.NoError(t, err)
	assert.Equal(t, 22, res.Audit.BarsTotal)
	assert.Equal(t, 2, res.Audit.BarsSkipped)
	assert.Equal(t, 20, res.Audit.BarsUsed)
	assert.Len(t, res.Audit.Warnings, 2)
	require.Len(t, res.Trades, 1)
}

func TestDriverFlatDataProducesNoTrades(t *testing.T) {
	var candles []market.Candle
	for i := 0; i < 60; i++ {
		candles = append(candles, bar(i, 100, 100, 100, 100))
	}
	res, err := NewDriver(driverCfg()).Run(context.Background(), candles)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 0, res.Audit.ReleasesFired)
}

func TestDriverEmptyInput(t *testing.T) {
	_, err := NewDriver(driverCfg()).Run(context.Background(), nil)
	require.Error(t, err)
	var dataErr *DataError
	assert.ErrorAs(t, err, &dataErr)
}

func TestDriverNaNBarSkipped(t *testing.T) {
	candles := squeezeReleaseBars()
	candles[3].Close = math.NaN()
	res, err := NewDriver(driverCfg()).Run(context.Background(), candles)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Audit.BarsSkipped)
	assert.Equal(t, 19, res.Audit.BarsUsed)
}
