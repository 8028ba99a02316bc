package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandleValid(t *testing.T) {
	good := Candle{OpenTime: 1_700_000_000_000, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 3}
	assert.True(t, good.Valid())

	cases := map[string]Candle{
		"NaN close":      {Open: 100, High: 101, Low: 99, Close: math.NaN()},
		"Inf high":       {Open: 100, High: math.Inf(1), Low: 99, Close: 100},
		"zero open":      {Open: 0, High: 101, Low: 99, Close: 100},
		"negative low":   {Open: 100, High: 101, Low: -1, Close: 100},
		"high below low": {Open: 100, High: 98, Low: 99, Close: 100},
		"NaN volume":     {Open: 100, High: 101, Low: 99, Close: 100, Volume: math.NaN()},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Valid())
		})
	}
}

func TestEpochSecs(t *testing.T) {
	c := Candle{OpenTime: 1_700_000_000_500}
	assert.Equal(t, int64(1_700_000_000), c.EpochSecs())
}

func TestSortCandlesOrdersAndDedupes(t *testing.T) {
	in := []Candle{
		{OpenTime: 3000, Close: 3},
		{OpenTime: 1000, Close: 1},
		{OpenTime: 2000, Close: 2},
		{OpenTime: 2000, Close: 2.5}, // 重复时间戳，保留先出现者
	}
	out := SortCandles(in)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1000), out[0].OpenTime)
	assert.Equal(t, int64(2000), out[1].OpenTime)
	assert.Equal(t, 2.0, out[1].Close)
	assert.Equal(t, int64(3000), out[2].OpenTime)
}

func TestSortCandlesEmpty(t *testing.T) {
	assert.Empty(t, SortCandles(nil))
}

func TestColumnExtractors(t *testing.T) {
	candles := []Candle{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Open: 2, High: 3, Low: 1.5, Close: 2.5},
	}
	assert.Equal(t, []float64{1.5, 2.5}, Closes(candles))
	assert.Equal(t, []float64{2, 3}, Highs(candles))
	assert.Equal(t, []float64{0.5, 1.5}, Lows(candles))
}
