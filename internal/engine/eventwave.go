package engine

import (
	"math"

	"surge/internal/config"
	"surge/internal/series"
)

// WaveState 波动收缩-释放状态机的状态，闭合枚举，只有三个取值。
type WaveState int

const (
	// WaveQuiet 常态。只有从 Quiet 经过 Squeeze 才可能产生新的 Release。
	WaveQuiet WaveState = iota
	// WaveSqueeze 波动收缩中（含收缩刚结束后的宽限窗口）。
	WaveSqueeze
	// WaveRelease 收缩后的能量释放。单次释放只供一次触发评估。
	WaveRelease
)

func (s WaveState) String() string {
	switch s {
	case WaveSqueeze:
		return "squeeze"
	case WaveRelease:
		return "release"
	default:
		return "quiet"
	}
}

// WaveDetector 按根推进 Quiet → Squeeze → Release 状态机。
// 收缩判据: 波动侧 ATR 低于其滚动中位数的 pct_of_median 倍。
// 释放判据: 收益率 z-score 绝对值突破阈值，方向取 z 的符号。
type WaveDetector struct {
	cache *series.Cache
	cfg   config.EventWaveConfig

	state     WaveState
	graceLeft int
}

func NewWaveDetector(cache *series.Cache, cfg config.EventWaveConfig) *WaveDetector {
	return &WaveDetector{cache: cache, cfg: cfg, state: WaveQuiet}
}

func (w *WaveDetector) State() WaveState { return w.state }

func (w *WaveDetector) compressed(i int) bool {
	atr := w.cache.WaveATR[i]
	med := w.cache.WaveMed[i]
	if math.IsNaN(atr) || math.IsNaN(med) || med <= 0 {
		return false
	}
	return atr < w.cfg.Squeeze.PctOfMedian*med
}

func (w *WaveDetector) broke(i int) (RegimeDir, bool) {
	z := w.cache.ReleaseZ[i]
	if math.IsNaN(z) {
		return RegimeFlat, false
	}
	if z > w.cfg.Release.ZScoreThreshold {
		return RegimeUp, true
	}
	if z < -w.cfg.Release.ZScoreThreshold {
		return RegimeDown, true
	}
	return RegimeFlat, false
}

// Update 用下标 i 的 K 线推进状态机。fired 仅在进入 Release 的那一根
// 为 true，方向为释放方向；后续 Release 根不再触发。
func (w *WaveDetector) Update(i int) (dir RegimeDir, fired bool) {
	switch w.state {
	case WaveQuiet:
		if w.compressed(i) {
			w.state = WaveSqueeze
			w.graceLeft = w.cfg.Release.GraceBars
		}
	case WaveSqueeze:
		if d, ok := w.broke(i); ok {
			w.state = WaveRelease
			return d, true
		}
		if w.compressed(i) {
			w.graceLeft = w.cfg.Release.GraceBars
			return RegimeFlat, false
		}
		// 收缩已结束，宽限窗口内仍允许释放
		if w.graceLeft > 0 {
			w.graceLeft--
			return RegimeFlat, false
		}
		w.state = WaveQuiet
	case WaveRelease:
		// 压缩比恢复到阈值以上才衰减回 Quiet；收缩未散时停在 Release,
		// 同一轮收缩不会经 Quiet 重新武装出第二次释放
		if !w.compressed(i) {
			w.state = WaveQuiet
		}
	}
	return RegimeFlat, false
}
