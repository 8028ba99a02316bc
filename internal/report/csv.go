package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"surge/internal/engine"
)

// WriteTradesCSV 把成交明细落盘为 CSV，行序与回放顺序一致。
func WriteTradesCSV(path string, trades []engine.TradeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"symbol", "side", "entry_bar", "exit_bar", "entry_ts", "entry_px",
		"exit_ts", "exit_px", "exit_reason", "r_multiple", "r_value",
		"stop_at_exit", "tsl_steps", "overshoot_r", "hold_bars",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.Symbol,
			t.Side,
			strconv.Itoa(t.EntryBar),
			strconv.Itoa(t.ExitBar),
			strconv.FormatInt(t.EntryTS, 10),
			formatPx(t.EntryPx),
			strconv.FormatInt(t.ExitTS, 10),
			formatPx(t.ExitPx),
			t.ExitReason,
			formatR(t.RMultiple),
			formatPx(t.RValue),
			formatPx(t.Stop),
			strconv.Itoa(t.StepCount),
			formatR(t.OvershootR),
			strconv.Itoa(t.HoldBars),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatR(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
