package engine

import (
	"context"
	"fmt"
	"sort"

	"surge/internal/config"
	"surge/internal/logger"
	"surge/internal/market"
	"surge/internal/series"
)

// Audit 一次回放的审计计数，随结果一起落盘，用于核对两次运行是否等价。
type Audit struct {
	BarsTotal      int      `json:"bars_total"`
	BarsUsed       int      `json:"bars_used"`
	BarsSkipped    int      `json:"bars_skipped"`
	WarmupBars     int      `json:"warmup_bars"`
	ReleasesFired  int      `json:"releases_fired"`
	SignalsArmed   int      `json:"signals_armed"`
	SignalsDropped int      `json:"signals_dropped"`
	EntriesFilled  int      `json:"entries_filled"`
	PendingExpired int      `json:"pending_expired"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Result 单 symbol 回放的完整产出。
type Result struct {
	Symbol string
	Config config.SymbolConfig
	Trades []TradeRecord
	Audit  Audit
}

// Driver 串起五段流水线，对一段 1 分钟 K 线做严格顺序回放。
// 同一输入两次运行产出逐字节一致。
type Driver struct {
	cfg config.SymbolConfig
}

func NewDriver(cfg config.SymbolConfig) *Driver {
	return &Driver{cfg: cfg}
}

// Run 执行回放。坏 K 线跳过并记录告警；引擎不变量被破坏时返回错误，
// 该 symbol 的结果作废。
func (d *Driver) Run(ctx context.Context, candles []market.Candle) (*Result, error) {
	res := &Result{Symbol: d.cfg.Symbol, Config: d.cfg}
	res.Audit.BarsTotal = len(candles)
	res.Audit.WarmupBars = d.cfg.Warmup

	clean := d.sanitize(candles, &res.Audit)
	if len(clean) == 0 {
		return nil, &DataError{Symbol: d.cfg.Symbol, Reason: "清洗后无可用 K 线"}
	}
	res.Audit.BarsUsed = len(clean)

	cache, err := series.Build(clean, d.cfg)
	if err != nil {
		return nil, fmt.Errorf("构建指标序列失败: %w", err)
	}

	closes := market.Closes(clean)
	regime := NewRegimeDetector(d.cfg.Regime)
	wave := NewWaveDetector(cache, d.cfg.EventWave)
	trigger := NewTriggerEvaluator(cache, d.cfg.Trigger)
	sched := NewEntryScheduler(d.cfg)
	risk := NewRiskEngine(d.cfg)

	for i, bar := range clean {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		// 上一根挂的单在本根开盘成交；成交根不做任何风控推进
		filled := false
		if side, ok := sched.TakePending(); ok {
			if err := risk.Open(side, bar, i, cache.ATR[i]); err != nil {
				if ivErr, fatal := err.(*InvariantError); fatal {
					return nil, ivErr
				}
				res.Audit.Warnings = append(res.Audit.Warnings, err.Error())
			} else {
				res.Audit.EntriesFilled++
				filled = true
			}
		}

		sched.Tick()
		waveDir, fired := wave.Update(i)
		if fired {
			res.Audit.ReleasesFired++
		}

		if risk.HasPosition() && !filled {
			rec, err := risk.Update(bar, i, cache.ATR[i], cache.MedATR[i])
			if err != nil {
				return nil, err
			}
			if rec != nil {
				res.Trades = append(res.Trades, *rec)
				sched.StartCooldown()
			}
		}

		if i < d.cfg.Warmup {
			continue
		}

		// 只有 Release 根才进入触发评估；一次释放至多评估一次
		if fired {
			side, ok := trigger.Evaluate(i, regime.Classify(closes, i))
			if ok && waveDir != RegimeFlat {
				sideDir := RegimeUp
				if side == SideShort {
					sideDir = RegimeDown
				}
				if sideDir != waveDir {
					ok = false
				}
			}
			if ok {
				if sched.Arm(side, risk.HasPosition()) {
					res.Audit.SignalsArmed++
				} else {
					res.Audit.SignalsDropped++
				}
			}
		}
	}

	if sched.HasPending() {
		res.Audit.PendingExpired++
	}
	if last := len(clean) - 1; risk.HasPosition() {
		if rec := risk.CloseAtMarket(clean[last], last); rec != nil {
			res.Trades = append(res.Trades, *rec)
		}
	}

	logger.Infof("[%s] 回放完成: bars=%d trades=%d releases=%d skipped=%d",
		d.cfg.Symbol, res.Audit.BarsUsed, len(res.Trades), res.Audit.ReleasesFired, res.Audit.BarsSkipped)
	return res, nil
}

// sanitize 排序后过滤坏 K 线: 非法数值、时间戳重复或不递增的都丢弃并告警。
func (d *Driver) sanitize(candles []market.Candle, audit *Audit) []market.Candle {
	sorted := make([]market.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime < sorted[j].OpenTime
	})
	clean := make([]market.Candle, 0, len(sorted))
	var prevTS int64 = -1
	for idx, c := range sorted {
		if !c.Valid() {
			audit.BarsSkipped++
			msg := fmt.Sprintf("跳过坏 K 线 idx=%d ts=%d", idx, c.OpenTime)
			audit.Warnings = append(audit.Warnings, msg)
			logger.Warnf("[%s] %s", d.cfg.Symbol, msg)
			continue
		}
		if c.OpenTime <= prevTS {
			audit.BarsSkipped++
			msg := fmt.Sprintf("跳过时间戳非递增 K 线 idx=%d ts=%d", idx, c.OpenTime)
			audit.Warnings = append(audit.Warnings, msg)
			logger.Warnf("[%s] %s", d.cfg.Symbol, msg)
			continue
		}
		prevTS = c.OpenTime
		clean = append(clean, c)
	}
	return clean
}
