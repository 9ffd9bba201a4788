package metrics

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// ErrNoTrades is returned when a run produced no closed results.
// It is an outcome, not a failure.
var ErrNoTrades = errors.New("no trades available for result calculation")

var hundred = decimal.NewFromInt(100)

// Calculate pairs the trade ledger and derives the equity curve, drawdown
// series and summary statistics. Returns ErrNoTrades if pairing yields no
// results.
func Calculate(trades []domain.Trade, endPrice decimal.Decimal, endTime time.Time, c Costs) (*domain.BacktestResult, error) {
	pairing := PairTrades(trades, endPrice, endTime, c)
	if len(pairing.Results) == 0 {
		return nil, ErrNoTrades
	}
	return summarize(pairing.Results), nil
}

// summarize walks results in order. Capital starts at zero and accumulates
// pnl; drawdown is capital minus its running peak and is never positive.
// The peak is seeded with the zero starting capital, so drawdown[i] is
// capital[i] - max(0, capital[0..i]) and a first losing result is already
// a drawdown.
func summarize(results []domain.TradingResult) *domain.BacktestResult {
	n := len(results)
	r := &domain.BacktestResult{
		Results:       results,
		TotalResult:   n,
		TimeList:      make([]time.Time, 0, n),
		PnlList:       make([]decimal.Decimal, 0, n),
		CapitalList:   make([]decimal.Decimal, 0, n),
		DrawdownList:  make([]decimal.Decimal, 0, n),
		PosList:       make([]int, 0, 2*n),
		TradeTimeList: make([]time.Time, 0, 2*n),
	}

	var totalWinning, totalLosing decimal.Decimal
	for i, res := range results {
		r.Capital = r.Capital.Add(res.Pnl)
		r.MaxCapital = decimal.Max(r.MaxCapital, r.Capital)
		r.Drawdown = r.Capital.Sub(r.MaxCapital)
		if i == 0 || r.Drawdown.LessThan(r.MaxDrawdown) {
			r.MaxDrawdown = r.Drawdown
		}

		r.TimeList = append(r.TimeList, res.ExitTime)
		r.PnlList = append(r.PnlList, res.Pnl)
		r.CapitalList = append(r.CapitalList, r.Capital)
		r.DrawdownList = append(r.DrawdownList, r.Drawdown)

		pos := 1
		if res.Volume.IsNegative() {
			pos = -1
		}
		r.PosList = append(r.PosList, pos, 0)
		r.TradeTimeList = append(r.TradeTimeList, res.EntryTime, res.ExitTime)

		r.TotalTurnover = r.TotalTurnover.Add(res.Turnover)
		r.TotalCommission = r.TotalCommission.Add(res.Commission)
		r.TotalSlippage = r.TotalSlippage.Add(res.Slippage)

		if res.Pnl.IsNegative() {
			r.LosingResult++
			totalLosing = totalLosing.Add(res.Pnl)
		} else {
			r.WinningResult++
			totalWinning = totalWinning.Add(res.Pnl)
		}
	}

	// First and last trade are reported by result exit time.
	r.FirstTradeTime = r.TimeList[0]
	r.LastTradeTime = r.TimeList[n-1]

	total := decimal.NewFromInt(int64(n))
	r.WinningRate = safeDiv(decimal.NewFromInt(int64(r.WinningResult)), total).Mul(hundred)
	r.AverageWinning = safeDiv(totalWinning, decimal.NewFromInt(int64(r.WinningResult)))
	r.AverageLosing = safeDiv(totalLosing, decimal.NewFromInt(int64(r.LosingResult)))
	r.ProfitLossRatio = safeDiv(r.AverageWinning, r.AverageLosing).Neg()

	r.AveragePnl = safeDiv(r.Capital, total)
	r.AverageSlippage = safeDiv(r.TotalSlippage, total)
	r.AverageCommission = safeDiv(r.TotalCommission, total)

	return r
}

// safeDiv returns zero instead of dividing by zero.
func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
