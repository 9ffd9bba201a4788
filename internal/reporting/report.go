// Package reporting renders backtest runs as console tables, Markdown,
// CSV, YAML and HTML charts.
package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/domain"
)

// Report is everything the renderers need for one run.
type Report struct {
	GeneratedAt time.Time
	Run         *domain.Run
	Trades      []domain.Trade
	Daily       []domain.DailyResult

	// Summary is only available for in-process runs; stored runs keep the
	// headline figures on Run.
	Summary *domain.BacktestResult
	// Stats is nil when the run produced no daily results.
	Stats *domain.DailyStatistics
}

// Row is one label/value line of a summary table.
type Row struct {
	Name  string
	Value string
}

// FromResult builds a report for a finished in-process run.
func FromResult(run *domain.Run, res *backtest.Result, now time.Time) *Report {
	return &Report{
		GeneratedAt: now.UTC(),
		Run:         run,
		Trades:      res.Trades,
		Daily:       res.Daily,
		Summary:     res.Summary,
		Stats:       res.DailyStats,
	}
}

// Title is the report heading.
func (r *Report) Title() string {
	return fmt.Sprintf("%s %s backtest", r.Run.Strategy, r.Run.Symbol)
}

// SettingRows describes the run configuration.
func (r *Report) SettingRows() []Row {
	run := r.Run
	end := "open"
	if !run.EndDate.IsZero() {
		end = formatDate(run.EndDate)
	}
	rows := []Row{
		{"Run ID", run.RunID},
		{"Strategy", run.Strategy},
		{"Parameters", FormatParams(run.Params)},
		{"Symbol", run.Symbol},
		{"Mode", string(run.Mode)},
		{"Window", formatDate(run.StartDate) + " to " + end},
		{"Warm-up days", fmt.Sprintf("%d", run.InitDays)},
		{"Capital", run.Capital.String()},
		{"Rate", run.Rate.String()},
		{"Slippage", run.Slippage.String()},
		{"Size", run.Size.String()},
		{"Price tick", run.PriceTick.String()},
		{"Status", string(run.Status)},
	}
	if run.Fingerprint != "" {
		rows = append(rows, Row{"Fingerprint", run.Fingerprint})
	}
	if run.Error != "" {
		rows = append(rows, Row{"Error", run.Error})
	}
	return rows
}

// TradeRows describes the trade-level result. It is empty when the run
// closed no trades.
func (r *Report) TradeRows() []Row {
	if s := r.Summary; s != nil {
		return []Row{
			{"First trade", formatTime(s.FirstTradeTime)},
			{"Last trade", formatTime(s.LastTradeTime)},
			{"Closed results", fmt.Sprintf("%d", s.TotalResult)},
			{"Net pnl", money(s.Capital)},
			{"Max drawdown", money(s.MaxDrawdown)},
			{"Average pnl", money(s.AveragePnl)},
			{"Average commission", money(s.AverageCommission)},
			{"Average slippage", money(s.AverageSlippage)},
			{"Winning rate", money(s.WinningRate) + "%"},
			{"Average winning", money(s.AverageWinning)},
			{"Average losing", money(s.AverageLosing)},
			{"Profit/loss ratio", money(s.ProfitLossRatio)},
		}
	}
	if r.Run.ResultCount == 0 {
		return nil
	}
	return []Row{
		{"Closed results", fmt.Sprintf("%d", r.Run.ResultCount)},
		{"Net pnl", money(r.Run.NetPnl)},
		{"Max drawdown", money(r.Run.MaxDrawdown)},
		{"Winning rate", money(r.Run.WinningRate) + "%"},
		{"Profit/loss ratio", money(r.Run.ProfitLossRatio)},
	}
}

// DailyRows describes the daily statistics. It is empty when no day was
// replayed.
func (r *Report) DailyRows() []Row {
	s := r.Stats
	if s == nil {
		return nil
	}
	return []Row{
		{"Start date", formatDate(s.StartDate)},
		{"End date", formatDate(s.EndDate)},
		{"Trading days", fmt.Sprintf("%d", s.TotalDays)},
		{"Profit days", fmt.Sprintf("%d", s.ProfitDays)},
		{"Loss days", fmt.Sprintf("%d", s.LossDays)},
		{"End balance", money(s.EndBalance)},
		{"Max drawdown", money(s.MaxDrawdown)},
		{"Max drawdown %", money(s.MaxDdPercent) + "%"},
		{"Total net pnl", money(s.TotalNetPnl)},
		{"Daily net pnl", money(s.DailyNetPnl)},
		{"Total commission", money(s.TotalCommission)},
		{"Total slippage", money(s.TotalSlippage)},
		{"Total turnover", money(s.TotalTurnover)},
		{"Total trades", fmt.Sprintf("%d", s.TotalTradeCount)},
		{"Daily trades", fmt.Sprintf("%.2f", s.DailyTradeCount)},
		{"Total return", fmt.Sprintf("%.2f%%", s.TotalReturn)},
		{"Annualized return", fmt.Sprintf("%.2f%%", s.AnnualizedReturn)},
		{"Daily return", fmt.Sprintf("%.4f%%", s.DailyReturn)},
		{"Return std", fmt.Sprintf("%.4f%%", s.ReturnStd)},
		{"Sharpe ratio", fmt.Sprintf("%.2f", s.SharpeRatio)},
	}
}

// FormatParams renders params as "a=1, b=2" in key order.
func FormatParams(params map[string]float64) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, ", ")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
