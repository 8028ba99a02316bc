package engine

import "fmt"

// Side 表示持仓方向。数值上 long=+1、short=-1，便于方向无关的盈亏算式:
// favorable = (px - entry) * side。
type Side int

const (
	SideLong  Side = 1
	SideShort Side = -1
)

func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}

// 止损由哪条机制最后一次设置，退出原因据此判定:
// 初始止损触发记 SL，保本位触发记 BE，追踪位触发记 TSL。
type stopSetter int

const (
	stopByInitial stopSetter = iota
	stopByBreakeven
	stopByTrail
)

func (s stopSetter) String() string {
	switch s {
	case stopByBreakeven:
		return "BE"
	case stopByTrail:
		return "TSL"
	default:
		return "SL"
	}
}

// TSLState 追踪止损的生命周期状态，只允许单向推进:
// Inactive -> ArmedPendingDelay -> Active。
type TSLState int

const (
	// TSLInactive 入场后首步延迟尚未走完。
	TSLInactive TSLState = iota
	// TSLArmedPendingDelay 延迟已满，等待第一次满足步进条件。
	TSLArmedPendingDelay
	// TSLActive 至少完成过一次步进。
	TSLActive
)

func (s TSLState) String() string {
	switch s {
	case TSLArmedPendingDelay:
		return "armed_pending_delay"
	case TSLActive:
		return "active"
	default:
		return "inactive"
	}
}

// Position 一笔在场持仓的全部风控状态。字段只由 RiskEngine 修改。
type Position struct {
	Side     Side
	EntryTS  int64 // 秒级
	EntryBar int
	EntryPx  float64

	ATREntry float64 // 入场 K 线的 ATR，定义 1R
	RValue   float64 // sl_atr_mult * ATREntry

	InitialStop float64
	TakeProfit  float64 // 0 表示未启用
	Stop        float64
	StopSetBy   stopSetter

	BreakevenArmed bool
	TSLState       TSLState
	LastStepTS     int64 // 入场时间起算，步进与保本提升都会刷新
	StepCount      int

	// 入场以来最有利的极值价，追踪位候选的锚点
	ExtremePx float64
}

func (p *Position) dump() string {
	return fmt.Sprintf("side=%s entry=%.8f stop=%.8f set_by=%s tp=%.8f tsl=%s steps=%d be=%v extreme=%.8f",
		p.Side, p.EntryPx, p.Stop, p.StopSetBy, p.TakeProfit, p.TSLState, p.StepCount, p.BreakevenArmed, p.ExtremePx)
}

// TradeRecord 一笔已完结交易。
type TradeRecord struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	EntryBar   int     `json:"entry_bar"`
	ExitBar    int     `json:"exit_bar"`
	EntryTS    int64   `json:"entry_ts"`
	EntryPx    float64 `json:"entry_px"`
	ExitTS     int64   `json:"exit_ts"`
	ExitPx     float64 `json:"exit_px"`
	ExitReason string  `json:"exit_reason"`
	RMultiple  float64 `json:"r_multiple"`
	RValue     float64 `json:"r_value"`
	Stop       float64 `json:"stop_at_exit"`
	StepCount  int     `json:"tsl_steps"`
	OvershootR float64 `json:"overshoot_r"`
	HoldBars   int     `json:"hold_bars"`
}

// 退出原因取值。SL/BE/TSL 由止损归属机制决定，TP 为止盈触发，
// CLOSE 为数据末尾按收盘价强制平仓。
const (
	ExitReasonSL    = "SL"
	ExitReasonBE    = "BE"
	ExitReasonTSL   = "TSL"
	ExitReasonTP    = "TP"
	ExitReasonClose = "CLOSE"
)
