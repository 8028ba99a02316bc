package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"surge/internal/logger"
	"surge/internal/market"
)

// MonthCache 缓存按月聚合好的 1m K 线，避免重复解析 tick 文件。
type MonthCache interface {
	LoadMonth(ctx context.Context, symbol, ym string) ([]market.Candle, error)
	SaveMonth(ctx context.Context, symbol, ym string, candles []market.Candle) error
}

// Loader 负责把 inputs 目录下的月度文件解析为连续的 1m K 线序列。
type Loader struct {
	inputsDir string
	cache     MonthCache
}

func NewLoader(inputsDir string, cache MonthCache) (*Loader, error) {
	if strings.TrimSpace(inputsDir) == "" {
		return nil, fmt.Errorf("inputs dir 不能为空")
	}
	return &Loader{inputsDir: inputsDir, cache: cache}, nil
}

// 支持的文件形态（平铺或按 symbol 子目录，CSV 或 ZIP）：
//   inputs/ETHUSDT-ticks-2025-01.csv        tick 文件
//   inputs/ETHUSDT/ETHUSDT-ticks-2025-01.zip
//   inputs/ETHUSDT-2025-01.csv              预聚合 OHLCV
//   inputs/ETHUSDT/ETHUSDT-2025-01.zip

func (l *Loader) tickCandidates(symbol, ym string) []string {
	name := fmt.Sprintf("%s-ticks-%s", symbol, ym)
	return []string{
		filepath.Join(l.inputsDir, name+".csv"),
		filepath.Join(l.inputsDir, symbol, name+".csv"),
		filepath.Join(l.inputsDir, name+".zip"),
		filepath.Join(l.inputsDir, symbol, name+".zip"),
	}
}

func (l *Loader) ohlcvCandidates(symbol, ym string) []string {
	name := fmt.Sprintf("%s-%s", symbol, ym)
	return []string{
		filepath.Join(l.inputsDir, name+".csv"),
		filepath.Join(l.inputsDir, symbol, name+".csv"),
		filepath.Join(l.inputsDir, name+".zip"),
		filepath.Join(l.inputsDir, symbol, name+".zip"),
	}
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadMonths 返回请求月份拼接后的 1m OHLCV。每个月的优先级：
//  1. 月缓存
//  2. tick 文件聚合为 1m
//  3. 预聚合 OHLCV 文件
//
// 任一月份三者皆无时返回错误。
func (l *Loader) LoadMonths(ctx context.Context, symbol string, months []string) ([]market.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	if len(months) == 0 {
		return nil, fmt.Errorf("months 不能为空")
	}
	var all []market.Candle
	for _, ym := range months {
		candles, err := l.loadMonth(ctx, symbol, ym)
		if err != nil {
			return nil, err
		}
		all = append(all, candles...)
	}
	return market.SortCandles(all), nil
}

func (l *Loader) loadMonth(ctx context.Context, symbol, ym string) ([]market.Candle, error) {
	if l.cache != nil {
		cached, err := l.cache.LoadMonth(ctx, symbol, ym)
		if err != nil {
			logger.Warnf("[data] %s %s: 读缓存失败，回退源文件: %v", symbol, ym, err)
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	if path := firstExisting(l.tickCandidates(symbol, ym)); path != "" {
		logger.Infof("[data] %s %s: 从 %s 聚合 ticks -> 1m", symbol, ym, filepath.Base(path))
		ticks, skipped, err := readTickFile(path)
		if err != nil {
			return nil, fmt.Errorf("解析 tick 文件失败 (%s): %w", path, err)
		}
		if skipped > 0 {
			logger.Warnf("[data] %s %s: 跳过 %d 行无法解析的 tick", symbol, ym, skipped)
		}
		candles := AggregateTicks(ticks)
		l.saveCache(ctx, symbol, ym, candles)
		return candles, nil
	}

	if path := firstExisting(l.ohlcvCandidates(symbol, ym)); path != "" {
		logger.Infof("[data] %s %s: 使用预聚合 OHLCV %s", symbol, ym, filepath.Base(path))
		candles, skipped, err := readOHLCVFile(path)
		if err != nil {
			return nil, fmt.Errorf("解析 OHLCV 文件失败 (%s): %w", path, err)
		}
		if skipped > 0 {
			logger.Warnf("[data] %s %s: 跳过 %d 行无法解析的 K 线", symbol, ym, skipped)
		}
		l.saveCache(ctx, symbol, ym, candles)
		return candles, nil
	}

	return nil, fmt.Errorf("未找到 %s %s 的数据（期望 %s 下的 tick 或 OHLCV CSV/ZIP）", symbol, ym, l.inputsDir)
}

func (l *Loader) saveCache(ctx context.Context, symbol, ym string, candles []market.Candle) {
	if l.cache == nil || len(candles) == 0 {
		return
	}
	if err := l.cache.SaveMonth(ctx, symbol, ym, candles); err != nil {
		logger.Warnf("[data] %s %s: 写缓存失败（忽略）: %v", symbol, ym, err)
	}
}
