package market

import (
	"math"
	"sort"
)

// Candle 是一根已收盘的 1 分钟 K 线。OpenTime 为 Unix 毫秒。
type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	Trades   int64   `json:"trades"`
}

// EpochSecs 返回开盘时间的 Unix 秒。
func (c Candle) EpochSecs() int64 {
	return c.OpenTime / 1000
}

// Valid 检查 OHLC 是否可用于模拟（无 NaN/Inf，价格为正，高低覆盖开收）。
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}
	if c.High < c.Low {
		return false
	}
	return true
}

// SortCandles 按开盘时间升序排序并去除重复时间戳（保留先出现者）。
func SortCandles(candles []Candle) []Candle {
	if len(candles) == 0 {
		return candles
	}
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
	out := candles[:0]
	var lastTS int64 = math.MinInt64
	for _, c := range candles {
		if c.OpenTime == lastTS {
			continue
		}
		out = append(out, c)
		lastTS = c.OpenTime
	}
	return out
}

// Closes 抽取收盘价列（按输入顺序）。
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs 抽取最高价列。
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows 抽取最低价列。
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}
