package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketPoint is one replayed data point: either *Bar or *Tick.
// Points are immutable once produced by the data source.
type MarketPoint interface {
	// Time is the point's timestamp (bar end time or tick time).
	Time() time.Time
	// Day is the trading day the point belongs to, truncated to midnight UTC.
	Day() time.Time
	// Price is the reference close: bar close or tick last price.
	Price() decimal.Decimal

	marketPoint()
}

// Bar is an aggregated OHLC summary for one interval.
type Bar struct {
	Symbol     string
	TradingDay time.Time // zero means the calendar date of EndTime
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	EndTime    time.Time
}

// Time returns the bar end time.
func (b *Bar) Time() time.Time { return b.EndTime }

// Day returns the bar's trading day.
func (b *Bar) Day() time.Time {
	if b.TradingDay.IsZero() {
		return DateOf(b.EndTime)
	}
	return DateOf(b.TradingDay)
}

// Price returns the bar close.
func (b *Bar) Price() decimal.Decimal { return b.Close }

func (*Bar) marketPoint() {}

// Tick is a single quote snapshot.
type Tick struct {
	Symbol     string
	TradingDay time.Time // zero means the calendar date of Datetime
	Datetime   time.Time
	LastPrice  decimal.Decimal
	AskPrice1  decimal.Decimal
	BidPrice1  decimal.Decimal
	Volume     decimal.Decimal
}

// Time returns the tick time.
func (t *Tick) Time() time.Time { return t.Datetime }

// Day returns the tick's trading day.
func (t *Tick) Day() time.Time {
	if t.TradingDay.IsZero() {
		return DateOf(t.Datetime)
	}
	return DateOf(t.TradingDay)
}

// Price returns the last traded price.
func (t *Tick) Price() decimal.Decimal { return t.LastPrice }

func (*Tick) marketPoint() {}

// DateOf truncates t to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BarPoints converts bars to market points.
func BarPoints(bars []*Bar) []MarketPoint {
	points := make([]MarketPoint, len(bars))
	for i, b := range bars {
		points[i] = b
	}
	return points
}

// TickPoints converts ticks to market points.
func TickPoints(ticks []*Tick) []MarketPoint {
	points := make([]MarketPoint, len(ticks))
	for i, t := range ticks {
		points[i] = t
	}
	return points
}
