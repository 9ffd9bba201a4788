package daily

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// TradingDaysPerYear annualizes daily figures.
const TradingDaysPerYear = 240

var hundred = decimal.NewFromInt(100)

// Statistics derives the balance curve and summary figures from daily
// results in date order. Balance starts at capital. Returns ErrNoDays for
// an empty series.
func Statistics(results []domain.DailyResult, capital decimal.Decimal) (*domain.DailyStatistics, error) {
	n := len(results)
	if n == 0 {
		return nil, ErrNoDays
	}

	s := &domain.DailyStatistics{
		StartDate: results[0].Date,
		EndDate:   results[n-1].Date,
		TotalDays: n,
		Days:      make([]domain.DailyBalance, n),
	}

	returns := make(stats.Float64Data, n)
	balance := capital
	highLevel := capital
	for i, r := range results {
		prev := balance
		balance = balance.Add(r.NetPnl)
		if i == 0 {
			highLevel = balance
		} else {
			highLevel = decimal.Max(highLevel, balance)
		}

		if i > 0 {
			returns[i] = logReturn(prev, balance)
		}

		drawdown := balance.Sub(highLevel)
		ddPercent := decimal.Zero
		if !highLevel.IsZero() {
			ddPercent = drawdown.Div(highLevel).Mul(hundred)
		}

		s.Days[i] = domain.DailyBalance{
			Date:      r.Date,
			NetPnl:    r.NetPnl,
			Balance:   balance,
			Return:    returns[i],
			HighLevel: highLevel,
			Drawdown:  drawdown,
			DdPercent: ddPercent,
		}

		if i == 0 || drawdown.LessThan(s.MaxDrawdown) {
			s.MaxDrawdown = drawdown
		}
		if i == 0 || ddPercent.LessThan(s.MaxDdPercent) {
			s.MaxDdPercent = ddPercent
		}

		switch {
		case r.NetPnl.IsPositive():
			s.ProfitDays++
		case r.NetPnl.IsNegative():
			s.LossDays++
		}

		s.TotalNetPnl = s.TotalNetPnl.Add(r.NetPnl)
		s.TotalCommission = s.TotalCommission.Add(r.Commission)
		s.TotalSlippage = s.TotalSlippage.Add(r.Slippage)
		s.TotalTurnover = s.TotalTurnover.Add(r.Turnover)
		s.TotalTradeCount += r.TradeCount
	}

	days := decimal.NewFromInt(int64(n))
	s.EndBalance = balance
	s.DailyNetPnl = s.TotalNetPnl.Div(days)
	s.DailyCommission = s.TotalCommission.Div(days)
	s.DailySlippage = s.TotalSlippage.Div(days)
	s.DailyTurnover = s.TotalTurnover.Div(days)
	s.DailyTradeCount = float64(s.TotalTradeCount) / float64(n)

	if capital.IsPositive() {
		s.TotalReturn = balance.Div(capital).Sub(decimal.NewFromInt(1)).Mul(hundred).InexactFloat64()
	}
	s.AnnualizedReturn = s.TotalReturn / float64(n) * TradingDaysPerYear

	if mean, err := stats.Mean(returns); err == nil {
		s.DailyReturn = mean * 100
	}
	if n > 1 {
		if std, err := stats.StandardDeviationSample(returns); err == nil {
			s.ReturnStd = std * 100
		}
	}
	if s.ReturnStd != 0 {
		s.SharpeRatio = s.DailyReturn / s.ReturnStd * math.Sqrt(TradingDaysPerYear)
	}

	return s, nil
}

// logReturn is ln(cur/prev), or zero when either balance is not positive.
func logReturn(prev, cur decimal.Decimal) float64 {
	if !prev.IsPositive() || !cur.IsPositive() {
		return 0
	}
	return math.Log(cur.InexactFloat64()) - math.Log(prev.InexactFloat64())
}
