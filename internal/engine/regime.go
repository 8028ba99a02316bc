package engine

import (
	"math"

	"surge/internal/config"
)

// RegimeDir 市场状态方向。
type RegimeDir int

const (
	RegimeFlat RegimeDir = 0
	RegimeUp   RegimeDir = 1
	RegimeDown RegimeDir = -1
)

func (d RegimeDir) String() string {
	switch d {
	case RegimeUp:
		return "up"
	case RegimeDown:
		return "down"
	default:
		return "flat"
	}
}

// RegimeDetector 多窗口时序动量投票。每个窗口比较当前收盘与 N 根前收盘,
// 涨落各记一票，落在中性带内弃权；赞成票达到 require_majority 才给出方向。
type RegimeDetector struct {
	windows     []int
	majority    int
	neutralBand float64
}

func NewRegimeDetector(cfg config.TSMomConfig) *RegimeDetector {
	windows := make([]int, 0, len(cfg.Timeframes))
	for _, tf := range cfg.Timeframes {
		windows = append(windows, tf.LookbackCloses)
	}
	return &RegimeDetector{
		windows:     windows,
		majority:    cfg.RequireMajority,
		neutralBand: cfg.NeutralBand,
	}
}

// Classify 对下标 i 的收盘序列投票。任一窗口数据不足时该窗口弃权;
// 没有任何窗口可投票则返回 Flat。
func (r *RegimeDetector) Classify(closes []float64, i int) RegimeDir {
	if len(r.windows) == 0 {
		return RegimeFlat
	}
	up, down := 0, 0
	for _, w := range r.windows {
		if w <= 0 || i-w < 0 {
			continue
		}
		ref := closes[i-w]
		cur := closes[i]
		if math.IsNaN(ref) || math.IsNaN(cur) || ref <= 0 {
			continue
		}
		diff := cur - ref
		if math.Abs(diff) <= r.neutralBand*ref {
			continue
		}
		if diff > 0 {
			up++
		} else {
			down++
		}
	}
	need := r.majority
	if need <= 0 {
		need = len(r.windows)/2 + 1
	}
	if up >= need && up > down {
		return RegimeUp
	}
	if down >= need && down > up {
		return RegimeDown
	}
	return RegimeFlat
}
