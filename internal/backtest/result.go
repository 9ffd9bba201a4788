package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// Result holds backtest output.
type Result struct {
	RunID        string
	Settings     Settings
	StrategyName string
	StrategyID   string

	WarmupPoints int
	Points       int

	Orders     []domain.LimitOrder
	StopOrders []domain.StopOrder
	Trades     []domain.Trade

	// Summary is nil when the run closed no trades.
	Summary    *domain.BacktestResult
	Daily      []domain.DailyResult
	DailyStats *domain.DailyStatistics

	EndPrice decimal.Decimal
	EndTime  time.Time
}

// NoTrades reports the "no results" outcome.
func (r *Result) NoTrades() bool {
	return r.Summary == nil
}

// TradePtrs returns pointers into the trade ledger for storage calls.
func (r *Result) TradePtrs() []*domain.Trade {
	out := make([]*domain.Trade, len(r.Trades))
	for i := range r.Trades {
		out[i] = &r.Trades[i]
	}
	return out
}

// DailyPtrs returns pointers into the daily results for storage calls.
func (r *Result) DailyPtrs() []*domain.DailyResult {
	out := make([]*domain.DailyResult, len(r.Daily))
	for i := range r.Daily {
		out[i] = &r.Daily[i]
	}
	return out
}

// ApplyTo copies the run summary into run and marks it completed.
func (r *Result) ApplyTo(run *domain.Run) {
	run.Status = domain.RunStatusCompleted
	run.Error = ""
	run.PointCount = r.Points
	run.TradeCount = len(r.Trades)
	run.NetPnl = decimal.Zero
	run.MaxDrawdown = decimal.Zero
	run.WinningRate = decimal.Zero
	run.ProfitLossRatio = decimal.Zero
	run.ResultCount = 0
	run.SharpeRatio = 0
	if s := r.Summary; s != nil {
		run.ResultCount = s.TotalResult
		run.NetPnl = s.Capital
		run.MaxDrawdown = s.MaxDrawdown
		run.WinningRate = s.WinningRate
		run.ProfitLossRatio = s.ProfitLossRatio
	}
	if r.DailyStats != nil {
		run.SharpeRatio = r.DailyStats.SharpeRatio
	}
}
