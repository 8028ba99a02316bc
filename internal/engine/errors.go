package engine

import "fmt"

// DataError 标记一根无法使用的输入 K 线。局部恢复：跳过该根并记录告警，
// 不中断整个运行。
type DataError struct {
	Symbol string
	Bar    int
	TS     int64
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data: %s bar=%d ts=%d %s", e.Symbol, e.Bar, e.TS, e.Reason)
}

// InvariantError 标记引擎内部契约被破坏（同时两笔持仓、止损反向放松等）。
// 按设计不可达；一旦检出必须中止该 symbol 的运行并完整输出持仓状态，
// 绝不允许继续产出错误成交。
type InvariantError struct {
	Symbol string
	Bar    int
	Detail string
	Dump   string
}

func (e *InvariantError) Error() string {
	if e.Dump != "" {
		return fmt.Sprintf("invariant violated: %s bar=%d %s\n%s", e.Symbol, e.Bar, e.Detail, e.Dump)
	}
	return fmt.Sprintf("invariant violated: %s bar=%d %s", e.Symbol, e.Bar, e.Detail)
}
