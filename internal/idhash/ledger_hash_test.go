package idhash

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cta-backtester/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeDatasetHash(t *testing.T) {
	bars := []*domain.Bar{
		{Open: dec("1"), High: dec("2"), Low: dec("0.5"), Close: dec("1.5"), EndTime: t0},
		{Open: dec("1.5"), High: dec("2"), Low: dec("1"), Close: dec("1"), EndTime: t0.Add(time.Minute)},
	}
	h1 := ComputeDatasetHash(domain.BarPoints(bars))
	h2 := ComputeDatasetHash(domain.BarPoints(bars))
	assert.Equal(t, h1, h2)

	reversed := []*domain.Bar{bars[1], bars[0]}
	assert.NotEqual(t, h1, ComputeDatasetHash(domain.BarPoints(reversed)))

	ticks := []*domain.Tick{{LastPrice: dec("1"), AskPrice1: dec("1.1"), BidPrice1: dec("0.9"), Datetime: t0}}
	assert.NotEqual(t, h1, ComputeDatasetHash(domain.TickPoints(ticks)))
	assert.Equal(t, ComputeDatasetHash(nil), ComputeDatasetHash([]domain.MarketPoint{}))
}

func TestComputeTradesHash(t *testing.T) {
	trades := []domain.Trade{
		{TradeID: "1", OrderID: "1", Direction: domain.DirectionLong, Offset: domain.OffsetOpen, Price: dec("100"), Volume: dec("1"), Time: t0},
		{TradeID: "2", OrderID: "2", Direction: domain.DirectionShort, Offset: domain.OffsetClose, Price: dec("105"), Volume: dec("1"), Time: t0.Add(time.Minute)},
	}
	base := ComputeTradesHash(trades)
	assert.Equal(t, base, ComputeTradesHash(trades))

	changed := append([]domain.Trade(nil), trades...)
	changed[1].Price = dec("105.5")
	assert.NotEqual(t, base, ComputeTradesHash(changed))
}

func TestComputeResultsHash(t *testing.T) {
	results := []domain.TradingResult{
		{EntryPrice: dec("100"), EntryTime: t0, ExitPrice: dec("105"), ExitTime: t0.Add(time.Minute), Volume: dec("1"), Pnl: dec("5")},
	}
	base := ComputeResultsHash(results)
	assert.Equal(t, base, ComputeResultsHash(results))

	changed := append([]domain.TradingResult(nil), results...)
	changed[0].Volume = dec("-1")
	assert.NotEqual(t, base, ComputeResultsHash(changed))
}
