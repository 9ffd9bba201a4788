package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cta-backtester/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var base = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func trade(id string, dir domain.Direction, price, volume string, min int) domain.Trade {
	return domain.Trade{
		TradeID:   id,
		OrderID:   id,
		Symbol:    "IF",
		Direction: dir,
		Price:     d(price),
		Volume:    d(volume),
		Time:      at(min),
	}
}

var refCosts = Costs{Rate: d("0.0005"), Slippage: d("0.5"), Size: d("5")}

func TestGenerateTradingResult_RoundTrip(t *testing.T) {
	r := GenerateTradingResult(d("100"), at(0), d("110"), at(1), d("1"), refCosts)

	assert.True(t, r.Turnover.Equal(d("1050")), "turnover %s", r.Turnover)
	assert.True(t, r.Commission.Equal(d("0.525")), "commission %s", r.Commission)
	assert.True(t, r.Slippage.Equal(d("5")), "slippage %s", r.Slippage)
	assert.True(t, r.Pnl.Equal(d("44.475")), "pnl %s", r.Pnl)
}

func TestGenerateTradingResult_ShortClose(t *testing.T) {
	// Short at 110, covered at 100: negative volume, positive gross.
	r := GenerateTradingResult(d("110"), at(0), d("100"), at(1), d("-1"), Costs{Size: d("1")})
	assert.True(t, r.Pnl.Equal(d("10")), "pnl %s", r.Pnl)
	assert.True(t, r.Turnover.Equal(d("210")))
}

func TestPairTrades_LongThenSell(t *testing.T) {
	trades := []domain.Trade{
		trade("1", domain.DirectionLong, "100", "1", 0),
		trade("2", domain.DirectionShort, "110", "1", 5),
	}
	p := PairTrades(trades, d("999"), at(99), refCosts)

	require.Len(t, p.Results, 1)
	assert.Equal(t, 0, p.Residual)
	r := p.Results[0]
	assert.True(t, r.Volume.Equal(d("1")))
	assert.True(t, r.Pnl.Equal(d("44.475")))
	assert.Equal(t, at(0), r.EntryTime)
	assert.Equal(t, at(5), r.ExitTime)
}

func TestPairTrades_ShortThenCoverIsNegativeVolume(t *testing.T) {
	trades := []domain.Trade{
		trade("1", domain.DirectionShort, "110", "2", 0),
		trade("2", domain.DirectionLong, "100", "2", 1),
	}
	p := PairTrades(trades, decimal.Zero, time.Time{}, Costs{Size: d("1")})

	require.Len(t, p.Results, 1)
	assert.True(t, p.Results[0].Volume.Equal(d("-2")))
	assert.True(t, p.Results[0].Pnl.Equal(d("20")))
}

func TestPairTrades_PartialAcrossLots(t *testing.T) {
	trades := []domain.Trade{
		trade("1", domain.DirectionLong, "100", "1", 0),
		trade("2", domain.DirectionLong, "102", "2", 1),
		trade("3", domain.DirectionShort, "105", "2", 2),
	}
	p := PairTrades(trades, d("104"), at(10), Costs{Size: d("1")})

	require.Len(t, p.Results, 3)
	assert.Equal(t, 1, p.Residual)

	// Oldest lot first.
	assert.True(t, p.Results[0].EntryPrice.Equal(d("100")))
	assert.True(t, p.Results[0].Volume.Equal(d("1")))
	assert.True(t, p.Results[1].EntryPrice.Equal(d("102")))
	assert.True(t, p.Results[1].Volume.Equal(d("1")))

	// One contract of the second lot is closed at the end price.
	assert.True(t, p.Results[2].EntryPrice.Equal(d("102")))
	assert.True(t, p.Results[2].ExitPrice.Equal(d("104")))
	assert.True(t, p.Results[2].Volume.Equal(d("1")))
	assert.Equal(t, at(10), p.Results[2].ExitTime)
}

func TestPairTrades_DirectionFlip(t *testing.T) {
	trades := []domain.Trade{
		trade("1", domain.DirectionLong, "100", "1", 0),
		trade("2", domain.DirectionShort, "110", "3", 1),
		trade("3", domain.DirectionLong, "105", "2", 2),
	}
	p := PairTrades(trades, d("0"), at(10), Costs{Size: d("1")})

	require.Len(t, p.Results, 2)
	assert.Equal(t, 0, p.Residual)

	assert.True(t, p.Results[0].Volume.Equal(d("1")))
	assert.True(t, p.Results[0].Pnl.Equal(d("10")))

	// The remaining 2 of trade 2 became a short lot closed by trade 3.
	assert.True(t, p.Results[1].EntryPrice.Equal(d("110")))
	assert.True(t, p.Results[1].Volume.Equal(d("-2")))
	assert.True(t, p.Results[1].Pnl.Equal(d("10")))
}

func TestPairTrades_ResidualLongsBeforeShorts(t *testing.T) {
	trades := []domain.Trade{
		trade("1", domain.DirectionShort, "100", "1", 0),
	}
	p := PairTrades(trades, d("90"), at(5), Costs{Size: d("1")})

	require.Len(t, p.Results, 1)
	assert.Equal(t, 1, p.Residual)
	assert.True(t, p.Results[0].Volume.Equal(d("-1")))
	assert.True(t, p.Results[0].Pnl.Equal(d("10")))
}

func TestPairTrades_VolumeConserved(t *testing.T) {
	dirs := []domain.Direction{domain.DirectionLong, domain.DirectionShort}
	vols := []string{"1", "3", "2", "5", "1", "4", "2", "2"}

	var trades []domain.Trade
	total := decimal.Zero
	for i, v := range vols {
		dir := dirs[(i*7/3)%2]
		trades = append(trades, trade(string(rune('a'+i)), dir, "100", v, i))
		total = total.Add(d(v))
	}

	p := PairTrades(trades, d("100"), at(100), Costs{Size: d("1")})

	// A paired result consumes its volume from two trades, a residual from one.
	reconstructed := decimal.Zero
	for i, r := range p.Results {
		if i < len(p.Results)-p.Residual {
			reconstructed = reconstructed.Add(r.Volume.Abs().Mul(two))
		} else {
			reconstructed = reconstructed.Add(r.Volume.Abs())
		}
	}
	assert.True(t, total.Equal(reconstructed), "traded %s, reconstructed %s", total, reconstructed)
}

func TestCalculate_NoTrades(t *testing.T) {
	_, err := Calculate(nil, d("100"), at(0), refCosts)
	assert.True(t, errors.Is(err, ErrNoTrades))
}

func TestCalculate_Summary(t *testing.T) {
	costs := Costs{Size: d("1")}
	trades := []domain.Trade{
		trade("1", domain.DirectionLong, "100", "1", 0),
		trade("2", domain.DirectionShort, "110", "1", 1), // +10
		trade("3", domain.DirectionLong, "110", "1", 2),
		trade("4", domain.DirectionShort, "95", "1", 3), // -15
		trade("5", domain.DirectionShort, "95", "1", 4),
		trade("6", domain.DirectionLong, "90", "1", 5), // +5
	}

	r, err := Calculate(trades, d("90"), at(6), costs)
	require.NoError(t, err)

	assert.Equal(t, 3, r.TotalResult)
	assert.Equal(t, 2, r.WinningResult)
	assert.Equal(t, 1, r.LosingResult)
	assert.True(t, r.Capital.Equal(d("0")))
	assert.True(t, r.MaxCapital.Equal(d("10")))
	assert.True(t, r.MaxDrawdown.Equal(d("-15")))
	assert.True(t, r.AverageWinning.Equal(d("7.5")))
	assert.True(t, r.AverageLosing.Equal(d("-15")))
	assert.True(t, r.ProfitLossRatio.Equal(d("0.5")))
	assert.True(t, r.AveragePnl.IsZero())

	wantCapital := []string{"10", "-5", "0"}
	wantDrawdown := []string{"0", "-15", "-10"}
	for i := range wantCapital {
		assert.True(t, r.CapitalList[i].Equal(d(wantCapital[i])), "capital[%d] = %s", i, r.CapitalList[i])
		assert.True(t, r.DrawdownList[i].Equal(d(wantDrawdown[i])), "drawdown[%d] = %s", i, r.DrawdownList[i])
	}

	assert.Equal(t, []int{1, 0, 1, 0, -1, 0}, r.PosList)
	assert.Len(t, r.TradeTimeList, 6)
	assert.Equal(t, at(1), r.FirstTradeTime)
	assert.Equal(t, at(5), r.LastTradeTime)
}

func TestCalculate_DrawdownNeverPositive(t *testing.T) {
	prices := []string{"100", "103", "99", "108", "101", "97", "112", "90"}
	var trades []domain.Trade
	for i, p := range prices {
		dir := domain.DirectionLong
		if i%2 == 1 {
			dir = domain.DirectionShort
		}
		trades = append(trades, trade(string(rune('a'+i)), dir, p, "1", i))
	}

	r, err := Calculate(trades, d("90"), at(20), Costs{Size: d("1")})
	require.NoError(t, err)

	peak := decimal.Zero
	for i, dd := range r.DrawdownList {
		assert.False(t, dd.IsPositive())
		peak = decimal.Max(peak, r.CapitalList[i])
		assert.True(t, dd.Equal(r.CapitalList[i].Sub(peak)))
	}
}

func TestCalculate_DrawdownPeakStartsAtZero(t *testing.T) {
	// Long 100 closed at 95, then long 95 closed at 97: capital -5, -3.
	trades := []domain.Trade{
		trade("1", domain.DirectionLong, "100", "1", 0),
		trade("2", domain.DirectionShort, "95", "1", 1),
		trade("3", domain.DirectionLong, "95", "1", 2),
		trade("4", domain.DirectionShort, "97", "1", 3),
	}
	r, err := Calculate(trades, d("97"), at(4), Costs{Size: d("1")})
	require.NoError(t, err)
	require.Len(t, r.DrawdownList, 2)

	assert.True(t, r.CapitalList[0].Equal(d("-5")))
	assert.True(t, r.DrawdownList[0].Equal(d("-5")), "first loss is measured from zero, got %s", r.DrawdownList[0])
	assert.True(t, r.DrawdownList[1].Equal(d("-3")))
	assert.True(t, r.MaxCapital.IsZero())
	assert.True(t, r.MaxDrawdown.Equal(d("-5")))
}

func TestCalculate_AllWinnersGuardsRatios(t *testing.T) {
	trades := []domain.Trade{
		trade("1", domain.DirectionLong, "100", "1", 0),
		trade("2", domain.DirectionShort, "101", "1", 1),
	}
	r, err := Calculate(trades, d("101"), at(2), Costs{Size: d("1")})
	require.NoError(t, err)

	assert.True(t, r.AverageLosing.IsZero())
	assert.True(t, r.ProfitLossRatio.IsZero())
	assert.True(t, r.WinningRate.Equal(d("100")))
}

func TestFifo_PopCompacts(t *testing.T) {
	var q fifo[int]
	for i := 0; i < 100; i++ {
		q.push(i)
	}
	for i := 0; i < 80; i++ {
		require.Equal(t, i, q.pop())
	}
	assert.Equal(t, 20, q.len())
	assert.Equal(t, 80, q.peek())
	assert.Equal(t, 20, len(q.drain()))
	assert.Equal(t, 0, q.len())
}
