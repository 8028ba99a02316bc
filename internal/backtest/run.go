package backtest

import (
	"sort"
	"time"

	"surge/internal/config"
	"surge/internal/engine"

	"github.com/google/uuid"
)

// Run 状态取值。
const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunStats 一次回放的汇总指标，与 stats_json 列同构。
type RunStats struct {
	Bars     int     `json:"bars"`
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	WinRate  float64 `json:"win_rate"`
	TotalR   float64 `json:"total_r"`
	AvgR     float64 `json:"avg_r"`
	MedianR  float64 `json:"median_r"`
	TSLExits int     `json:"tsl_exits"`
}

// Run 一次单 symbol 回放的元数据记录。
type Run struct {
	ID          string              `json:"id"`
	Symbol      string              `json:"symbol"`
	Months      string              `json:"months"`
	Status      string              `json:"status"`
	Config      config.SymbolConfig `json:"config"`
	Stats       RunStats            `json:"stats"`
	Message     string              `json:"message"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt time.Time           `json:"completed_at"`
}

// NewRun 生成一条 running 状态的新记录。
func NewRun(cfg config.SymbolConfig, months string) Run {
	return Run{
		ID:     uuid.NewString(),
		Symbol: cfg.Symbol,
		Months: months,
		Status: RunStatusRunning,
		Config: cfg,
	}
}

// StatsFromTrades 从成交列表与审计计数算出汇总指标。
func StatsFromTrades(trades []engine.TradeRecord, bars int) RunStats {
	st := RunStats{Bars: bars, Trades: len(trades)}
	rs := make([]float64, 0, len(trades))
	for _, t := range trades {
		st.TotalR += t.RMultiple
		rs = append(rs, t.RMultiple)
		if t.RMultiple > 0 {
			st.Wins++
		}
		if t.ExitReason == engine.ExitReasonTSL {
			st.TSLExits++
		}
	}
	if len(trades) > 0 {
		st.WinRate = float64(st.Wins) / float64(len(trades))
		st.AvgR = st.TotalR / float64(len(trades))
		st.MedianR = medianOf(rs)
	}
	return st
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
