package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"surge/internal/backtest"
	"surge/internal/config"
	"surge/internal/engine"
)

// OvershootStats 止损被跳空穿越的统计，全部以 R 计。
type OvershootStats struct {
	Count int     `json:"count"`
	MaxR  float64 `json:"max_r"`
	AvgR  float64 `json:"avg_r"`
}

// HistBucket R 分布直方图的一个桶。
type HistBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary 一次回放的完整汇总，落盘为 summary JSON。
// 字段顺序与取整固定，同一输入两次运行产出逐字节一致。
type Summary struct {
	RunID       string              `json:"run_id"`
	Symbol      string              `json:"symbol"`
	Months      string              `json:"months"`
	GeneratedAt string              `json:"generated_at"`
	Config      config.SymbolConfig `json:"config"`
	Stats       backtest.RunStats   `json:"stats"`
	ExitReasons map[string]int      `json:"exit_reasons"`
	RByReason   map[string]float64  `json:"r_by_reason"`
	Histogram   []HistBucket        `json:"r_histogram"`
	Overshoot   OvershootStats      `json:"overshoot"`
	Audit       engine.Audit        `json:"audit"`
}

var histEdges = []struct {
	label string
	lo    float64
	hi    float64
}{
	{"<-1R", math.Inf(-1), -1},
	{"-1R..0R", -1, 0},
	{"0R..1R", 0, 1},
	{"1R..2R", 1, 2},
	{"2R..3R", 2, 3},
	{">=3R", 3, math.Inf(1)},
}

// BuildSummary 从成交与审计计数算出汇总。
func BuildSummary(run backtest.Run, trades []engine.TradeRecord, audit engine.Audit) Summary {
	s := Summary{
		RunID:       run.ID,
		Symbol:      run.Symbol,
		Months:      run.Months,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Config:      run.Config,
		Stats:       backtest.StatsFromTrades(trades, audit.BarsUsed),
		ExitReasons: make(map[string]int),
		RByReason:   make(map[string]float64),
		Audit:       audit,
	}
	buckets := make([]int, len(histEdges))
	for _, t := range trades {
		s.ExitReasons[t.ExitReason]++
		s.RByReason[t.ExitReason] += t.RMultiple
		for i, e := range histEdges {
			if t.RMultiple >= e.lo && t.RMultiple < e.hi {
				buckets[i]++
				break
			}
		}
		if t.OvershootR > 0 {
			s.Overshoot.Count++
			s.Overshoot.AvgR += t.OvershootR
			if t.OvershootR > s.Overshoot.MaxR {
				s.Overshoot.MaxR = t.OvershootR
			}
		}
	}
	if s.Overshoot.Count > 0 {
		s.Overshoot.AvgR /= float64(s.Overshoot.Count)
	}
	for i, e := range histEdges {
		s.Histogram = append(s.Histogram, HistBucket{Label: e.label, Count: buckets[i]})
	}
	return s
}

// WriteJSON 把汇总落盘为缩进 JSON。map 键按字典序编码，输出确定。
func (s Summary) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// SortedReasons 返回字典序的退出原因列表，控制台汇总用。
func (s Summary) SortedReasons() []string {
	keys := make([]string, 0, len(s.ExitReasons))
	for k := range s.ExitReasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
