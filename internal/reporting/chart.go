package reporting

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNothingToPlot is returned when a report has neither daily results nor
// closed trades.
var ErrNothingToPlot = errors.New("nothing to plot")

const (
	colorBalance  = "#2f6fdb"
	colorDrawdown = "#d9534f"
	colorProfit   = "#3a9d5d"
	colorLoss     = "#d9534f"
)

// RenderCharts writes an HTML page with the balance, drawdown and daily pnl
// charts, followed by the per-trade equity curve.
func RenderCharts(w io.Writer, r *Report) error {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	plotted := false
	if s := r.Stats; s != nil && len(s.Days) > 0 {
		dates := make([]string, len(s.Days))
		balance := make([]opts.LineData, len(s.Days))
		drawdown := make([]opts.LineData, len(s.Days))
		pnl := make([]opts.BarData, len(s.Days))
		for i, d := range s.Days {
			dates[i] = formatDate(d.Date)
			balance[i] = opts.LineData{Value: d.Balance.InexactFloat64()}
			drawdown[i] = opts.LineData{Value: d.Drawdown.InexactFloat64()}
			color := colorProfit
			if d.NetPnl.IsNegative() {
				color = colorLoss
			}
			pnl[i] = opts.BarData{
				Value:     d.NetPnl.InexactFloat64(),
				ItemStyle: &opts.ItemStyle{Color: color},
			}
		}

		page.AddCharts(
			lineChart("Balance", dates, balance, colorBalance, false),
			lineChart("Drawdown", dates, drawdown, colorDrawdown, true),
			barChart("Daily Pnl", dates, pnl),
		)
		plotted = true
	}

	if s := r.Summary; s != nil && len(s.CapitalList) > 0 {
		labels := make([]string, len(s.TimeList))
		equity := make([]opts.LineData, len(s.CapitalList))
		for i := range s.CapitalList {
			labels[i] = formatTime(s.TimeList[i])
			equity[i] = opts.LineData{Value: s.CapitalList[i].InexactFloat64()}
		}
		page.AddCharts(lineChart("Trade Equity", labels, equity, colorBalance, false))
		plotted = true
	}

	if !plotted {
		return ErrNothingToPlot
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

func baseOptions(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	}
}

func lineChart(title string, x []string, data []opts.LineData, color string, area bool) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(baseOptions(title)...)
	line.SetXAxis(x)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}),
	}
	if area {
		seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Color: color, Opacity: opts.Float(0.3)}))
	}
	line.AddSeries(title, data, seriesOpts...)
	return line
}

func barChart(title string, x []string, data []opts.BarData) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions(title)...)
	bar.SetXAxis(x)
	bar.AddSeries(title, data)
	return bar
}
