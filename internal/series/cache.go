package series

import (
	"fmt"
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"

	"surge/internal/config"
	"surge/internal/market"
)

// Cache 持有一个 symbol-month 运行所需的全部滚动统计列。
// 构建一次后只读；各列与 Candles 等长，未就绪（暖机不足）的位置为 NaN。
// 所有累积严格按时间顺序进行，保证重放结果逐位一致。
type Cache struct {
	Candles []market.Candle

	// 风险侧 ATR（risk.atr 配置），用于 SL/TP/R 与 TSL 距离。
	ATR    []float64
	MedATR []float64

	// 波动事件侧 ATR（eventwave.squeeze 配置），用于压缩判定。
	WaveATR []float64
	WaveMed []float64

	// 收盘价 z-score：Release 判定窗口与 Trigger 窗口各一列。
	ReleaseZ []float64
	TriggerZ []float64

	// Donchian 通道（trigger.donchian_window 滚动极值）。
	DonchianHigh []float64
	DonchianLow  []float64
}

// Build 按配置一次性预计算全部指标列。
func Build(candles []market.Candle, cfg config.SymbolConfig) (*Cache, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("series: 无 K 线可计算")
	}
	highs := market.Highs(candles)
	lows := market.Lows(candles)
	closes := market.Closes(candles)

	c := &Cache{Candles: candles}

	switch cfg.Risk.ATR.Method {
	case "sma":
		c.ATR = smaRange(highs, lows, cfg.Risk.ATR.Window)
	default:
		c.ATR = wilderATR(highs, lows, closes, cfg.Risk.ATR.Window)
	}
	c.MedATR = RollingMedian(c.ATR, cfg.EventWave.Squeeze.MedianWindow)

	c.WaveATR = wilderATR(highs, lows, closes, cfg.EventWave.Squeeze.ATRWindow)
	c.WaveMed = RollingMedian(c.WaveATR, cfg.EventWave.Squeeze.MedianWindow)

	c.ReleaseZ = ZScore(closes, cfg.EventWave.Release.ZScoreWindow)
	c.TriggerZ = ZScore(closes, cfg.Trigger.ZScoreWindow)

	if len(candles) >= cfg.Trigger.DonchianWindow && cfg.Trigger.DonchianWindow > 0 {
		c.DonchianHigh = markWarmup(talib.Max(highs, cfg.Trigger.DonchianWindow), cfg.Trigger.DonchianWindow-1)
		c.DonchianLow = markWarmup(talib.Min(lows, cfg.Trigger.DonchianWindow), cfg.Trigger.DonchianWindow-1)
	} else {
		c.DonchianHigh = nanSeries(len(candles))
		c.DonchianLow = nanSeries(len(candles))
	}
	return c, nil
}

// Len 返回序列长度。
func (c *Cache) Len() int { return len(c.Candles) }

// Ready 判断索引 i 的值是否已过暖机（非 NaN）。
func Ready(series []float64, i int) bool {
	return i >= 0 && i < len(series) && !math.IsNaN(series[i])
}

// wilderATR 计算 Wilder 平滑的 ATR。前 window 根为 NaN。
func wilderATR(highs, lows, closes []float64, window int) []float64 {
	n := len(closes)
	if window <= 0 || n <= window {
		return nanSeries(n)
	}
	out := talib.Atr(highs, lows, closes, window)
	return markWarmup(out, window)
}

// smaRange 以 |high-low| 的简单均值近似 ATR（risk.atr.method=sma）。
func smaRange(highs, lows []float64, window int) []float64 {
	n := len(highs)
	if window <= 0 || n < window {
		return nanSeries(n)
	}
	rng := make([]float64, n)
	for i := range rng {
		rng[i] = math.Abs(highs[i] - lows[i])
	}
	return markWarmup(talib.Sma(rng, window), window-1)
}

// ZScore 计算滚动 z-score（总体标准差）。窗口未满或方差为零处为 NaN。
func ZScore(values []float64, window int) []float64 {
	n := len(values)
	if window <= 1 || n < window {
		return nanSeries(n)
	}
	mean := talib.Sma(values, window)
	sd := talib.StdDev(values, window, 1.0)
	out := nanSeries(n)
	for i := window - 1; i < n; i++ {
		if sd[i] <= 0 {
			continue
		}
		out[i] = (values[i] - mean[i]) / sd[i]
	}
	return out
}

// RollingMedian 计算滚动中位数。talib 不提供该原语，这里按窗口显式排序。
func RollingMedian(values []float64, window int) []float64 {
	n := len(values)
	out := nanSeries(n)
	if window <= 0 || n < window {
		return out
	}
	buf := make([]float64, 0, window)
	for i := window - 1; i < n; i++ {
		buf = buf[:0]
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			buf = append(buf, values[j])
		}
		if !valid {
			continue
		}
		sort.Float64s(buf)
		mid := window / 2
		if window%2 == 1 {
			out[i] = buf[mid]
		} else {
			out[i] = (buf[mid-1] + buf[mid]) / 2
		}
	}
	return out
}

// markWarmup 将前 count 个位置置为 NaN（talib 的暖机段输出 0，易被误用）。
func markWarmup(series []float64, count int) []float64 {
	for i := 0; i < count && i < len(series); i++ {
		series[i] = math.NaN()
	}
	return series
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
