package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"surge/internal/backtest"
	"surge/internal/config"
	"surge/internal/dataset"
	"surge/internal/engine"
	"surge/internal/logger"
	"surge/internal/report"
)

// App 串起数据加载、回放与结果落盘。多 symbol 并发跑，单 symbol 内严格串行。
type App struct {
	cfg     *config.Config
	loader  *dataset.Loader
	cache   *backtest.CacheStore
	results *backtest.ResultStore
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config 不能为空")
	}
	cache, err := backtest.NewCacheStore(cfg.Paths.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("初始化 K 线缓存失败: %w", err)
	}
	results, err := backtest.NewResultStore(cfg.Paths.ResultsDB)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("初始化结果库失败: %w", err)
	}
	loader, err := dataset.NewLoader(cfg.Paths.InputsDir, cache)
	if err != nil {
		cache.Close()
		results.Close()
		return nil, err
	}
	return &App{cfg: cfg, loader: loader, cache: cache, results: results}, nil
}

func (a *App) Close() error {
	var firstErr error
	if err := a.cache.Close(); err != nil {
		firstErr = err
	}
	if err := a.results.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Run 对配置的全部 symbol 跑一次回放。单 symbol 失败不影响其余 symbol,
// 有结果的照常落盘；全部失败时返回错误。
func (a *App) Run(ctx context.Context) error {
	months := strings.Join(a.cfg.Months, ",")
	g, gctx := errgroup.WithContext(ctx)
	limit := a.cfg.Engine.MaxParallelSymbols
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	summaries := make([]report.Summary, 0, len(a.cfg.Symbols))
	failed := 0

	for _, symbol := range a.cfg.Symbols {
		symbol := symbol
		g.Go(func() error {
			sum, err := a.runSymbol(gctx, symbol, months)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger.Errorf("[%s] 回放失败: %v", symbol, err)
				return nil
			}
			summaries = append(summaries, sum)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(summaries) == 0 && failed > 0 {
		return fmt.Errorf("全部 %d 个 symbol 回放失败", failed)
	}
	a.printSummary(summaries, failed)
	return nil
}

func (a *App) runSymbol(ctx context.Context, symbol, months string) (report.Summary, error) {
	symCfg := a.cfg.ResolveSymbol(symbol)
	run := backtest.NewRun(symCfg, months)
	if err := a.results.InsertRun(ctx, run); err != nil {
		return report.Summary{}, fmt.Errorf("写入 run 记录失败: %w", err)
	}

	candles, err := a.loader.LoadMonths(ctx, symCfg.Symbol, a.cfg.Months)
	if err != nil {
		a.markFailed(ctx, run.ID, err)
		return report.Summary{}, err
	}

	result, err := engine.NewDriver(symCfg).Run(ctx, candles)
	if err != nil {
		a.markFailed(ctx, run.ID, err)
		return report.Summary{}, err
	}

	stats := backtest.StatsFromTrades(result.Trades, result.Audit.BarsUsed)
	if err := a.results.InsertTrades(ctx, run.ID, result.Trades); err != nil {
		a.markFailed(ctx, run.ID, err)
		return report.Summary{}, err
	}
	if err := a.results.UpdateRunSummary(ctx, run.ID, backtest.RunStatusDone, stats, ""); err != nil {
		return report.Summary{}, err
	}

	run.Stats = stats
	sum := report.BuildSummary(run, result.Trades, result.Audit)
	outDir := filepath.Join(a.cfg.Paths.OutputsDir, symCfg.Symbol)
	if err := report.WriteTradesCSV(filepath.Join(outDir, "trades.csv"), result.Trades); err != nil {
		return report.Summary{}, fmt.Errorf("写 trades.csv 失败: %w", err)
	}
	if err := sum.WriteJSON(filepath.Join(outDir, "summary.json")); err != nil {
		return report.Summary{}, fmt.Errorf("写 summary.json 失败: %w", err)
	}
	if err := report.WriteChartHTML(filepath.Join(outDir, "report.html"), sum, result.Trades); err != nil {
		return report.Summary{}, fmt.Errorf("写 report.html 失败: %w", err)
	}
	return sum, nil
}

func (a *App) markFailed(ctx context.Context, runID string, cause error) {
	if err := a.results.UpdateRunSummary(ctx, runID, backtest.RunStatusFailed, backtest.RunStats{}, cause.Error()); err != nil {
		logger.Warnf("更新失败状态未成功 run=%s: %v", runID, err)
	}
}

func (a *App) printSummary(summaries []report.Summary, failed int) {
	var b strings.Builder
	b.WriteString("==== 回放汇总 ====\n")
	for _, s := range summaries {
		b.WriteString(fmt.Sprintf("%-12s trades=%-4d win=%.1f%% total_r=%+.2f",
			s.Symbol, s.Stats.Trades, s.Stats.WinRate*100, s.Stats.TotalR))
		for _, reason := range s.SortedReasons() {
			b.WriteString(fmt.Sprintf(" %s=%d", reason, s.ExitReasons[reason]))
		}
		b.WriteString("\n")
	}
	if failed > 0 {
		b.WriteString(fmt.Sprintf("失败 symbol 数: %d\n", failed))
	}
	logger.InfoBlock(b.String())
}
