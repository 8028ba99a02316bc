package engine

import (
	"math"

	"surge/internal/config"
	"surge/internal/series"
)

// 触发评估模式。
const (
	TriggerModeDonchian = "donchian"
	TriggerModeZScore   = "zscore"
)

// TriggerEvaluator 在 Release 根上评估突破方向。donchian 模式比较收盘价与
// 上一根的唐奇安通道（通道右移一根，避免用到当根极值）；zscore 模式直接
// 用触发侧 z-score 的符号。突破方向还必须与市场状态方向一致。
type TriggerEvaluator struct {
	cache *series.Cache
	cfg   config.TriggerConfig
}

func NewTriggerEvaluator(cache *series.Cache, cfg config.TriggerConfig) *TriggerEvaluator {
	return &TriggerEvaluator{cache: cache, cfg: cfg}
}

// Evaluate 返回可执行的交易方向。指标未就绪、无突破或与 regime 不一致时
// 返回 (0, false)。
func (t *TriggerEvaluator) Evaluate(i int, regime RegimeDir) (Side, bool) {
	if regime == RegimeFlat {
		return 0, false
	}
	var dir RegimeDir
	switch t.cfg.Mode {
	case TriggerModeZScore:
		z := t.cache.TriggerZ[i]
		if math.IsNaN(z) {
			return 0, false
		}
		if z > t.cfg.ZScoreThreshold {
			dir = RegimeUp
		} else if z < -t.cfg.ZScoreThreshold {
			dir = RegimeDown
		}
	default:
		if i < 1 {
			return 0, false
		}
		hi := t.cache.DonchianHigh[i-1]
		lo := t.cache.DonchianLow[i-1]
		close := t.cache.Candles[i].Close
		if !math.IsNaN(hi) && close > hi {
			dir = RegimeUp
		} else if !math.IsNaN(lo) && close < lo {
			dir = RegimeDown
		}
	}
	if dir == RegimeFlat || dir != regime {
		return 0, false
	}
	if dir == RegimeUp {
		return SideLong, true
	}
	return SideShort, true
}
