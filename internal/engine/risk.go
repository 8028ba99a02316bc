package engine

import (
	"math"

	"surge/internal/config"
	"surge/internal/logger"
	"surge/internal/market"
)

// RiskEngine 管理单笔持仓从开仓到离场的全部止损/止盈状态。
// 每根已收盘 K 线调用一次 Update，内部顺序固定:
// 先判离场，再做保本提升，最后推进追踪止损。
type RiskEngine struct {
	symbol string
	tick   float64
	cfg    config.RiskConfig

	pos *Position
}

func NewRiskEngine(cfg config.SymbolConfig) *RiskEngine {
	return &RiskEngine{
		symbol: cfg.Symbol,
		tick:   cfg.TickSize,
		cfg:    cfg.Risk,
	}
}

func (r *RiskEngine) HasPosition() bool { return r.pos != nil }

func (r *RiskEngine) Position() *Position { return r.pos }

// Open 在 bar 的开盘价建仓并放置初始止损/止盈。atr 必须取自建仓 K 线,
// 1R = sl_mult * atr。atr 未就绪或非正时拒绝开仓。
func (r *RiskEngine) Open(side Side, bar market.Candle, barIdx int, atr float64) error {
	if r.pos != nil {
		return &InvariantError{Symbol: r.symbol, Bar: barIdx, Detail: "第二笔持仓在未平仓时开出", Dump: r.pos.dump()}
	}
	if math.IsNaN(atr) || atr <= 0 {
		return &DataError{Symbol: r.symbol, Bar: barIdx, TS: bar.OpenTime, Reason: "ATR 未就绪，拒绝开仓"}
	}
	entry := bar.Open
	rValue := r.cfg.SLMult * atr
	stop := quantizeStop(side, entry-float64(side)*rValue, r.tick)
	var tp float64
	if r.cfg.TPMult > 0 {
		tp = quantizeTarget(side, entry+float64(side)*r.cfg.TPMult*rValue, r.tick)
	}
	ts := bar.EpochSecs()
	r.pos = &Position{
		Side:        side,
		EntryTS:     ts,
		EntryBar:    barIdx,
		EntryPx:     entry,
		ATREntry:    atr,
		RValue:      rValue,
		InitialStop: stop,
		TakeProfit:  tp,
		Stop:        stop,
		StopSetBy:   stopByInitial,
		TSLState:    TSLInactive,
		LastStepTS:  ts,
		ExtremePx:   entry,
	}
	logger.Infof("[%s] 开仓 %s @ %.8f sl=%.8f tp=%.8f r=%.8f", r.symbol, side, entry, stop, tp, rValue)
	return nil
}

// Update 用一根已收盘 K 线推进持仓状态。返回非 nil 表示本根离场。
// atr/medATR 取自当前 K 线，NaN 时跳过追踪推进但不影响离场判定。
func (r *RiskEngine) Update(bar market.Candle, barIdx int, atr, medATR float64) (*TradeRecord, error) {
	p := r.pos
	if p == nil {
		return nil, &InvariantError{Symbol: r.symbol, Bar: barIdx, Detail: "无持仓时调用了风控更新"}
	}

	// 离场判定最先做，且同根 K 线止损优先于止盈（保守假设先走到不利侧）
	if rec := r.checkExit(bar, barIdx); rec != nil {
		r.pos = nil
		return rec, nil
	}

	// 极值价在离场判定之后刷新，追踪锚点不吃当根的触发行情
	if p.Side == SideLong {
		if bar.High > p.ExtremePx {
			p.ExtremePx = bar.High
		}
	} else {
		if bar.Low < p.ExtremePx {
			p.ExtremePx = bar.Low
		}
	}

	ts := bar.EpochSecs()
	if err := r.maybeBreakeven(bar, barIdx, ts); err != nil {
		return nil, err
	}
	if err := r.maybeTrail(bar, barIdx, ts, atr, medATR); err != nil {
		return nil, err
	}
	return nil, nil
}

// checkExit 判定本根 K 线是否触发止损或止盈。触发止损时成交价取止损价，
// 超越幅度 overshoot_R = 止损价与极端价之差折算成 R，永远非负。
func (r *RiskEngine) checkExit(bar market.Candle, barIdx int) *TradeRecord {
	p := r.pos
	adverse := bar.Low
	favorable := bar.High
	if p.Side == SideShort {
		adverse = bar.High
		favorable = bar.Low
	}
	if priceBreachedStop(p.Side, adverse, p.Stop) {
		overshoot := (p.Stop - adverse) * float64(p.Side) / p.RValue
		if overshoot < 0 {
			overshoot = 0
		}
		return r.close(bar, barIdx, p.Stop, p.StopSetBy.String(), overshoot)
	}
	if priceReachedTarget(p.Side, favorable, p.TakeProfit) {
		return r.close(bar, barIdx, p.TakeProfit, ExitReasonTP, 0)
	}
	return nil
}

// maybeBreakeven 浮盈达到阈值 R 后把止损一次性提到入场价（可加缓冲 tick）。
// 提升计为一次步进事件，刷新防抖计时。
func (r *RiskEngine) maybeBreakeven(bar market.Candle, barIdx int, ts int64) error {
	p := r.pos
	if !r.cfg.BE.Enabled || p.BreakevenArmed {
		return nil
	}
	unrealR := (bar.Close - p.EntryPx) * float64(p.Side) / p.RValue
	if unrealR < r.cfg.BE.ThresholdR {
		return nil
	}
	bePx := p.EntryPx + float64(p.Side)*float64(r.cfg.BE.BufferTicks)*r.tick
	candidate := quantizeStop(p.Side, bePx, r.tick)
	p.BreakevenArmed = true
	if !stopImproves(p.Side, candidate, p.Stop) {
		return nil
	}
	if err := r.tighten(barIdx, candidate, stopByBreakeven); err != nil {
		return err
	}
	p.LastStepTS = ts
	logger.Infof("[%s] 保本提升 stop=%.8f (R=%.2f)", r.symbol, candidate, unrealR)
	return nil
}

// maybeTrail 推进阶梯式追踪止损。依次检查: 启用/首步延迟/推进闸门/
// 防抖间隔，全部通过后以入场以来极值价减追踪距离作为候选，
// 距离取 max(tsl_atr_mult*ATR, floor_from_med_mult*medATR)。
func (r *RiskEngine) maybeTrail(bar market.Candle, barIdx int, ts int64, atr, medATR float64) error {
	p := r.pos
	if !r.cfg.TSL.Enabled {
		return nil
	}
	if p.TSLState == TSLInactive {
		if ts-p.EntryTS < int64(r.cfg.TSL.FirstStepDelaySecs) {
			return nil
		}
		p.TSLState = TSLArmedPendingDelay
	}
	if math.IsNaN(atr) || atr <= 0 {
		return nil
	}
	// 推进闸门: 收盘价领先当前止损不足 step_atr_mult*ATR 时不推进
	if (bar.Close-p.Stop)*float64(p.Side) < r.cfg.TSL.StepATRMult*atr {
		return nil
	}
	if ts-p.LastStepTS < int64(r.cfg.TSL.MinStepSecs) {
		return nil
	}
	trail := r.cfg.TSL.TSLATRMult * atr
	if !math.IsNaN(medATR) && medATR > 0 {
		if floor := r.cfg.TSL.FloorFromMedMult * medATR; floor > trail {
			trail = floor
		}
	}
	candidate := quantizeStop(p.Side, p.ExtremePx-float64(p.Side)*trail, r.tick)
	if !stopImproves(p.Side, candidate, p.Stop) {
		return nil
	}
	if err := r.tighten(barIdx, candidate, stopByTrail); err != nil {
		return err
	}
	p.TSLState = TSLActive
	p.StepCount++
	p.LastStepTS = ts
	logger.Debugf("[%s] 追踪步进 #%d stop=%.8f trail=%.8f", r.symbol, p.StepCount, candidate, trail)
	return nil
}

// tighten 是唯一改写止损价的入口，强制单调收紧的不变量。
func (r *RiskEngine) tighten(barIdx int, candidate float64, by stopSetter) error {
	p := r.pos
	if !stopImproves(p.Side, candidate, p.Stop) {
		return &InvariantError{Symbol: r.symbol, Bar: barIdx,
			Detail: "止损被反向放松", Dump: p.dump()}
	}
	p.Stop = candidate
	p.StopSetBy = by
	return nil
}

// CloseAtMarket 数据末尾用收盘价强制平仓，exit_reason 记 CLOSE。
func (r *RiskEngine) CloseAtMarket(bar market.Candle, barIdx int) *TradeRecord {
	if r.pos == nil {
		return nil
	}
	rec := r.close(bar, barIdx, bar.Close, ExitReasonClose, 0)
	r.pos = nil
	return rec
}

func (r *RiskEngine) close(bar market.Candle, barIdx int, exitPx float64, reason string, overshoot float64) *TradeRecord {
	p := r.pos
	rMult := (exitPx - p.EntryPx) * float64(p.Side) / p.RValue
	logger.Infof("[%s] 平仓 %s @ %.8f reason=%s R=%.2f steps=%d", r.symbol, p.Side, exitPx, reason, rMult, p.StepCount)
	return &TradeRecord{
		Symbol:     r.symbol,
		Side:       p.Side.String(),
		EntryBar:   p.EntryBar,
		ExitBar:    barIdx,
		EntryTS:    p.EntryTS,
		EntryPx:    p.EntryPx,
		ExitTS:     bar.EpochSecs(),
		ExitPx:     exitPx,
		ExitReason: reason,
		RMultiple:  rMult,
		RValue:     p.RValue,
		Stop:       p.Stop,
		StepCount:  p.StepCount,
		OvershootR: overshoot,
		HoldBars:   barIdx - p.EntryBar,
	}
}
