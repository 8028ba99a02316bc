package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.csv")
	require.NoError(t, WriteTradesCSV(path, sampleTrades()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "symbol", rows[0][0])
	assert.Equal(t, "hold_bars", rows[0][14])
	assert.Equal(t, "BTCUSDT", rows[1][0])
	assert.Equal(t, "LONG", rows[1][1])
	assert.Equal(t, "95", rows[1][7])
	assert.Equal(t, "SL", rows[1][8])
	assert.Equal(t, "-1.000000", rows[1][9])
	assert.Equal(t, "0.400000", rows[1][13])
	assert.Equal(t, "2", rows[3][12])
}

func TestWriteTradesCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesCSV(path, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
