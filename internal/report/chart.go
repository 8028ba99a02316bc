package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"surge/internal/engine"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorEquity        = "#3b82f6"
	colorWin           = "#34d399"
	colorLoss          = "#f87171"

	chartWidthPx  = 1400
	chartHeightPx = 480
)

// WriteChartHTML 输出交互式 HTML 报表: 累计 R 曲线 + R 分布直方图。
func WriteChartHTML(path string, summary Summary, trades []engine.TradeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildEquityCurve(summary, trades), buildRHistogram(summary))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func buildEquityCurve(summary Summary, trades []engine.TradeRecord) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s 累计 R", summary.Symbol),
			Subtitle:      fmt.Sprintf("trades=%d win_rate=%.1f%% total_r=%.2f", summary.Stats.Trades, summary.Stats.WinRate*100, summary.Stats.TotalR),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	xAxis := make([]string, 0, len(trades))
	data := make([]opts.LineData, 0, len(trades))
	cum := 0.0
	for _, t := range trades {
		cum += t.RMultiple
		xAxis = append(xAxis, time.Unix(t.ExitTS, 0).UTC().Format("01-02 15:04"))
		data = append(data, opts.LineData{Value: round(cum, 4)})
	}
	line.SetXAxis(xAxis)
	line.AddSeries("cum_r", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

func buildRHistogram(summary Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "R 分布", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	xAxis := make([]string, 0, len(summary.Histogram))
	data := make([]opts.BarData, 0, len(summary.Histogram))
	for i, b := range summary.Histogram {
		color := colorWin
		if i < 2 {
			color = colorLoss
		}
		xAxis = append(xAxis, b.Label)
		data = append(data, opts.BarData{
			Value:     b.Count,
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.7)},
		})
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("trades", data)
	return bar
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
