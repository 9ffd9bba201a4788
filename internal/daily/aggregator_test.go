package daily

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cta-backtester/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(n int) time.Time { return time.Date(2024, 2, n, 0, 0, 0, 0, time.UTC) }

func tr(id string, dir domain.Direction, price, vol string, dayN int) domain.Trade {
	return domain.Trade{
		TradeID:    id,
		Direction:  dir,
		Price:      d(price),
		Volume:     d(vol),
		Time:       day(dayN).Add(10 * time.Hour),
		TradingDay: day(dayN),
	}
}

func TestAggregator_ChainsDays(t *testing.T) {
	a := NewAggregator()
	a.UpdateClose(day(2).Add(9*time.Hour), d("98"))
	a.UpdateClose(day(2).Add(15*time.Hour), d("100"))
	a.UpdateClose(day(1), d("90"))
	a.UpdateClose(day(3), d("110"))
	require.Equal(t, 3, a.Len())

	trades := []domain.Trade{
		tr("1", domain.DirectionLong, "95", "2", 2),
		tr("2", domain.DirectionShort, "108", "1", 3),
	}
	costs := Costs{Rate: d("0.001"), Slippage: d("0.2"), Size: d("10")}

	days, err := a.Calculate(trades, costs)
	require.NoError(t, err)
	require.Len(t, days, 3)

	// Day 1: no trades, no position.
	assert.Equal(t, day(1), days[0].Date)
	assert.True(t, days[0].NetPnl.IsZero())
	assert.True(t, days[0].PositionPnl.IsZero())

	// Day 2: bought 2 at 95, closes at 100.
	d2 := days[1]
	assert.True(t, d2.PreviousClose.Equal(d("90")))
	assert.True(t, d2.ClosePrice.Equal(d("100")))
	assert.True(t, d2.TradingPnl.Equal(d("100")), "tradingPnl %s", d2.TradingPnl)
	assert.True(t, d2.Turnover.Equal(d("1900")))
	assert.True(t, d2.Commission.Equal(d("1.9")))
	assert.True(t, d2.Slippage.Equal(d("4")))
	assert.True(t, d2.ClosePosition.Equal(d("2")))
	assert.Equal(t, 1, d2.TradeCount)

	// Day 3: carries 2 from 100 to 110, sells 1 at 108.
	d3 := days[2]
	assert.True(t, d3.OpenPosition.Equal(d2.ClosePosition))
	assert.True(t, d3.PositionPnl.Equal(d("200")), "positionPnl %s", d3.PositionPnl)
	assert.True(t, d3.TradingPnl.Equal(d("-20")), "tradingPnl %s", d3.TradingPnl)
	assert.True(t, d3.ClosePosition.Equal(d("1")))

	for _, r := range days {
		assert.True(t, r.NetPnl.Equal(r.TotalPnl.Sub(r.Commission).Sub(r.Slippage)))
		assert.True(t, r.TotalPnl.Equal(r.TradingPnl.Add(r.PositionPnl)))
	}
}

func TestAggregator_PositionCarriesAcrossDays(t *testing.T) {
	a := NewAggregator()
	for i := 1; i <= 5; i++ {
		a.UpdateClose(day(i), decimal.NewFromInt(int64(100+i)))
	}
	trades := []domain.Trade{
		tr("1", domain.DirectionLong, "101", "1", 1),
		tr("2", domain.DirectionLong, "102", "3", 2),
		tr("3", domain.DirectionShort, "104", "5", 4),
	}

	days, err := a.Calculate(trades, Costs{Size: d("1")})
	require.NoError(t, err)
	for i := 1; i < len(days); i++ {
		assert.True(t, days[i].OpenPosition.Equal(days[i-1].ClosePosition), "day %d", i)
		assert.True(t, days[i].PreviousClose.Equal(days[i-1].ClosePrice), "day %d", i)
	}
	assert.True(t, days[4].ClosePosition.Equal(d("-1")))
}

func TestAggregator_MissingDay(t *testing.T) {
	a := NewAggregator()
	a.UpdateClose(day(1), d("100"))

	_, err := a.Calculate([]domain.Trade{tr("1", domain.DirectionLong, "100", "1", 2)}, Costs{Size: d("1")})
	assert.ErrorIs(t, err, ErrMissingDay)
}

func TestAggregator_CalculateIsRepeatable(t *testing.T) {
	a := NewAggregator()
	a.UpdateClose(day(1), d("100"))
	trades := []domain.Trade{tr("1", domain.DirectionLong, "99", "1", 1)}

	first, err := a.Calculate(trades, Costs{Size: d("1")})
	require.NoError(t, err)
	second, err := a.Calculate(trades, Costs{Size: d("1")})
	require.NoError(t, err)

	assert.Equal(t, first[0].TradeCount, second[0].TradeCount)
	assert.True(t, first[0].NetPnl.Equal(second[0].NetPnl))
}

func TestStatistics_Empty(t *testing.T) {
	_, err := Statistics(nil, d("1000"))
	assert.ErrorIs(t, err, ErrNoDays)
}

func TestStatistics_BalanceCurve(t *testing.T) {
	results := []domain.DailyResult{
		{Date: day(1), NetPnl: d("10"), Commission: d("1"), Turnover: d("100"), TradeCount: 2},
		{Date: day(2), NetPnl: d("-5"), Commission: d("1"), Turnover: d("100"), TradeCount: 1},
		{Date: day(3), NetPnl: d("0")},
	}

	s, err := Statistics(results, d("1000"))
	require.NoError(t, err)

	assert.Equal(t, day(1), s.StartDate)
	assert.Equal(t, day(3), s.EndDate)
	assert.Equal(t, 3, s.TotalDays)
	assert.Equal(t, 1, s.ProfitDays)
	assert.Equal(t, 1, s.LossDays)
	assert.True(t, s.EndBalance.Equal(d("1005")))
	assert.True(t, s.MaxDrawdown.Equal(d("-5")))
	assert.True(t, s.TotalNetPnl.Equal(d("5")))
	assert.True(t, s.TotalCommission.Equal(d("2")))
	assert.Equal(t, 3, s.TotalTradeCount)
	assert.InDelta(t, 1.0, s.DailyTradeCount, 1e-12)

	assert.InDelta(t, 0.5, s.TotalReturn, 1e-9)
	assert.InDelta(t, 0.5/3*240, s.AnnualizedReturn, 1e-9)

	require.Len(t, s.Days, 3)
	assert.Equal(t, 0.0, s.Days[0].Return)
	assert.InDelta(t, math.Log(1005.0/1010.0), s.Days[1].Return, 1e-12)
	assert.True(t, s.Days[1].HighLevel.Equal(d("1010")))
	assert.True(t, s.Days[1].Drawdown.Equal(d("-5")))

	wantMean := math.Log(1005.0/1010.0) / 3 * 100
	assert.InDelta(t, wantMean, s.DailyReturn, 1e-9)
	assert.NotZero(t, s.ReturnStd)
	assert.InDelta(t, s.DailyReturn/s.ReturnStd*math.Sqrt(240), s.SharpeRatio, 1e-9)
}

func TestStatistics_FlatCurveHasZeroSharpe(t *testing.T) {
	results := []domain.DailyResult{
		{Date: day(1), NetPnl: d("0")},
		{Date: day(2), NetPnl: d("0")},
	}
	s, err := Statistics(results, d("1000"))
	require.NoError(t, err)
	assert.Zero(t, s.ReturnStd)
	assert.Zero(t, s.SharpeRatio)
}
