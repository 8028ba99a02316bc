package engine

import (
	"strings"

	"surge/internal/config"
	"surge/internal/logger"
)

// EntryScheduler 执行「t 根出信号、t+1 根开盘成交」的时序契约。
// 信号根只挂单，下一根到来时以其开盘价成交；数据在挂单后结束则挂单作废。
// 同时负责方向过滤与离场后的冷却期。
type EntryScheduler struct {
	symbol       string
	allowLong    bool
	allowShort   bool
	cooldownBars int

	pending      *Side
	cooldownLeft int
}

func NewEntryScheduler(cfg config.SymbolConfig) *EntryScheduler {
	dir := strings.ToLower(cfg.Entry.Direction)
	return &EntryScheduler{
		symbol:       cfg.Symbol,
		allowLong:    dir == "long" || dir == "both" || dir == "",
		allowShort:   dir == "short" || dir == "both" || dir == "",
		cooldownBars: cfg.Entry.CooldownBars,
	}
}

// TakePending 取走待成交的挂单。每根 K 线开头调用一次。
func (e *EntryScheduler) TakePending() (Side, bool) {
	if e.pending == nil {
		return 0, false
	}
	side := *e.pending
	e.pending = nil
	return side, true
}

// Tick 推进冷却计数。每根 K 线调用一次。
func (e *EntryScheduler) Tick() {
	if e.cooldownLeft > 0 {
		e.cooldownLeft--
	}
}

// Arm 在信号根挂单。持仓中、冷却中、方向被过滤或已有挂单时丢弃信号。
func (e *EntryScheduler) Arm(side Side, holding bool) bool {
	if holding || e.pending != nil {
		return false
	}
	if e.cooldownLeft > 0 {
		logger.Debugf("[%s] 冷却中，丢弃 %s 信号 (剩余 %d 根)", e.symbol, side, e.cooldownLeft)
		return false
	}
	if side == SideLong && !e.allowLong {
		return false
	}
	if side == SideShort && !e.allowShort {
		return false
	}
	s := side
	e.pending = &s
	return true
}

// StartCooldown 离场后启动冷却期。
func (e *EntryScheduler) StartCooldown() {
	e.cooldownLeft = e.cooldownBars
}

// HasPending 是否有待成交挂单。
func (e *EntryScheduler) HasPending() bool { return e.pending != nil }
