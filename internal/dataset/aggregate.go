package dataset

import (
	"sort"

	"surge/internal/market"
)

const minuteMillis = 60_000

// AggregateTicks 将逐笔成交聚合为 1 分钟 OHLCV。
// 分桶按开盘分钟对齐；桶内按输入顺序决定 open/close，输出按时间升序。
func AggregateTicks(ticks []Tick) []market.Candle {
	if len(ticks) == 0 {
		return nil
	}
	type bucket struct {
		candle market.Candle
		seen   bool
	}
	buckets := make(map[int64]*bucket)
	for _, t := range ticks {
		minute := t.TS - t.TS%minuteMillis
		b, ok := buckets[minute]
		if !ok {
			b = &bucket{}
			buckets[minute] = b
		}
		if !b.seen {
			b.candle = market.Candle{
				OpenTime: minute,
				Open:     t.Price,
				High:     t.Price,
				Low:      t.Price,
				Close:    t.Price,
			}
			b.seen = true
		}
		if t.Price > b.candle.High {
			b.candle.High = t.Price
		}
		if t.Price < b.candle.Low {
			b.candle.Low = t.Price
		}
		b.candle.Close = t.Price
		b.candle.Volume += t.Qty
		b.candle.Trades++
	}
	minutes := make([]int64, 0, len(buckets))
	for m := range buckets {
		minutes = append(minutes, m)
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i] < minutes[j] })
	out := make([]market.Candle, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, buckets[m].candle)
	}
	return out
}
