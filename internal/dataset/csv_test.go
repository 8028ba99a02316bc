package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseEpoch(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int64
	}{
		{"milliseconds", "1700000000000", 1_700_000_000_000},
		{"seconds", "1700000000", 1_700_000_000_000},
		{"fractional seconds", "1700000000.5", 1_700_000_000_500},
		{"rfc3339", "2023-11-14T22:13:20Z", 1_700_000_000_000},
		{"space separated", "2023-11-14 22:13:20", 1_700_000_000_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseEpoch(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := parseEpoch("not-a-time")
		assert.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := parseEpoch("  ")
		assert.Error(t, err)
	})
}

func TestReadTickFileAliasesAndSkips(t *testing.T) {
	csvData := "time,p,amount\n" +
		"1700000000000,100.5,2\n" +
		"1700000001000,100.6,1\n" +
		"bad-ts,100.7,1\n" +
		"1700000002000,-5,1\n" +
		"1700000003000,100.8,3\n"
	path := writeTempCSV(t, "BTCUSDT-ticks-2023-11.csv", csvData)

	ticks, skipped, err := readTickFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, ticks, 3)
	assert.Equal(t, int64(1_700_000_000_000), ticks[0].TS)
	assert.Equal(t, 100.5, ticks[0].Price)
	assert.Equal(t, 2.0, ticks[0].Qty)
}

func TestReadTickFileQtyDefaultsToOne(t *testing.T) {
	path := writeTempCSV(t, "t.csv", "ts,price\n1700000000,100.5\n")
	ticks, skipped, err := readTickFile(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, ticks, 1)
	assert.Equal(t, 1.0, ticks[0].Qty)
}

func TestReadTickFileSemicolonDelimiter(t *testing.T) {
	path := writeTempCSV(t, "t.csv", "timestamp;price;qty\n1700000000000;100.5;2\n")
	ticks, _, err := readTickFile(path)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, 100.5, ticks[0].Price)
}

func TestReadTickFileMissingColumns(t *testing.T) {
	path := writeTempCSV(t, "t.csv", "foo,bar\n1,2\n")
	_, _, err := readTickFile(path)
	assert.Error(t, err)
}

func TestReadOHLCVFile(t *testing.T) {
	csvData := "timestamp,open,high,low,close,volume,trades\n" +
		"1700000000000,100,101,99,100.5,12.5,42\n" +
		"1700000060000,100.5,102,100,101,8,17\n" +
		"1700000120000,abc,102,100,101,8,17\n"
	path := writeTempCSV(t, "BTCUSDT-2023-11.csv", csvData)

	candles, skipped, err := readOHLCVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1_700_000_000_000), candles[0].OpenTime)
	assert.Equal(t, 100.5, candles[0].Close)
	assert.Equal(t, 12.5, candles[0].Volume)
	assert.Equal(t, int64(42), candles[0].Trades)
}

func TestReadOHLCVFileShortAliases(t *testing.T) {
	path := writeTempCSV(t, "t.csv", "ts,o,h,l,c\n1700000000,100,101,99,100.5\n")
	candles, _, err := readOHLCVFile(path)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(1_700_000_000_000), candles[0].OpenTime)
	assert.Zero(t, candles[0].Volume)
}
