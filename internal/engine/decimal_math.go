package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

var decimalEps = decimal.NewFromFloat(1e-9)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// quantizeStop 把止损价对齐到 tick 整数倍，方向取对持仓更不利的一侧:
// 多头向下取整（止损更远），空头向上取整。tick<=0 时原样返回。
func quantizeStop(side Side, value, tick float64) float64 {
	if tick <= 0 || value <= 0 {
		return value
	}
	v := decFromFloat(value)
	t := decFromFloat(tick)
	steps := v.Div(t)
	if side == SideShort {
		steps = steps.Ceil()
	} else {
		steps = steps.Floor()
	}
	return decToFloat(steps.Mul(t))
}

// quantizeTarget 止盈价对齐，同样取不利一侧:
// 多头止盈向上取整（更难触达），空头向下取整。
func quantizeTarget(side Side, value, tick float64) float64 {
	if tick <= 0 || value <= 0 {
		return value
	}
	v := decFromFloat(value)
	t := decFromFloat(tick)
	steps := v.Div(t)
	if side == SideShort {
		steps = steps.Floor()
	} else {
		steps = steps.Ceil()
	}
	return decToFloat(steps.Mul(t))
}

// stopImproves 候选止损是否比当前止损严格更有利（多头更高，空头更低）。
// epsilon 容差吸收 float64 噪声，保证止损单调收紧。
func stopImproves(side Side, candidate, current float64) bool {
	if candidate <= 0 {
		return false
	}
	cand := decFromFloat(candidate)
	curr := decFromFloat(current)
	if side == SideShort {
		return cand.Cmp(curr.Sub(decimalEps)) < 0
	}
	return cand.Cmp(curr.Add(decimalEps)) > 0
}

func priceBreachedStop(side Side, price, stop float64) bool {
	if stop <= 0 || price <= 0 {
		return false
	}
	if side == SideShort {
		return decFromFloat(price).Cmp(decFromFloat(stop)) >= 0
	}
	return decFromFloat(price).Cmp(decFromFloat(stop)) <= 0
}

func priceReachedTarget(side Side, price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	if side == SideShort {
		return decFromFloat(price).Cmp(decFromFloat(target)) <= 0
	}
	return decFromFloat(price).Cmp(decFromFloat(target)) >= 0
}
