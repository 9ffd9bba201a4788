package daily

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// Aggregator errors
var (
	ErrMissingDay = errors.New("trade falls on a day with no close price")
	ErrNoDays     = errors.New("no daily results available")
)

// Costs are the cost parameters applied per trade.
type Costs struct {
	Rate     decimal.Decimal
	Slippage decimal.Decimal
	Size     decimal.Decimal
}

// Aggregator buckets a run into trading days. Buckets are created lazily
// by UpdateClose; Calculate attaches trades and chains the days.
type Aggregator struct {
	days map[time.Time]*domain.DailyResult
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{days: make(map[time.Time]*domain.DailyResult)}
}

// Reset drops all buckets.
func (a *Aggregator) Reset() {
	a.days = make(map[time.Time]*domain.DailyResult)
}

// UpdateClose records price as the latest close of day, creating the
// bucket on first use.
func (a *Aggregator) UpdateClose(day time.Time, price decimal.Decimal) {
	day = domain.DateOf(day)
	r, ok := a.days[day]
	if !ok {
		r = &domain.DailyResult{Date: day}
		a.days[day] = r
	}
	r.ClosePrice = price
}

// Len returns the number of buckets.
func (a *Aggregator) Len() int {
	return len(a.days)
}

// Calculate attaches trades to their days and computes each day's P&L in
// date order. previousClose and openPosition carry forward from the prior
// day, starting from zero. Trades must be in ledger order.
func (a *Aggregator) Calculate(trades []domain.Trade, c Costs) ([]domain.DailyResult, error) {
	for _, r := range a.days {
		r.Trades = nil
	}
	for i := range trades {
		t := trades[i]
		day := t.TradingDay
		if day.IsZero() {
			day = t.Time
		}
		r, ok := a.days[domain.DateOf(day)]
		if !ok {
			return nil, fmt.Errorf("%w: trade %s on %s", ErrMissingDay, t.TradeID, domain.DateOf(day).Format(time.DateOnly))
		}
		r.Trades = append(r.Trades, &t)
	}

	dates := make([]time.Time, 0, len(a.days))
	for day := range a.days {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]domain.DailyResult, 0, len(dates))
	prevClose := decimal.Zero
	openPos := decimal.Zero
	for _, day := range dates {
		r := a.days[day]
		calculateDay(r, prevClose, openPos, c)
		prevClose = r.ClosePrice
		openPos = r.ClosePosition
		out = append(out, *r)
	}
	return out, nil
}

// calculateDay fills the P&L fields of r.
//
//	positionPnl = openPosition * (close - previousClose) * size
//	tradingPnl  = sum(signed volume * (close - trade price) * size)
//	netPnl      = tradingPnl + positionPnl - commission - slippage
func calculateDay(r *domain.DailyResult, prevClose, openPos decimal.Decimal, c Costs) {
	r.PreviousClose = prevClose
	r.OpenPosition = openPos
	r.ClosePosition = openPos
	r.TradeCount = len(r.Trades)
	r.Turnover = decimal.Zero
	r.Commission = decimal.Zero
	r.Slippage = decimal.Zero
	r.TradingPnl = decimal.Zero

	r.PositionPnl = openPos.Mul(r.ClosePrice.Sub(prevClose)).Mul(c.Size)

	for _, t := range r.Trades {
		change := t.SignedVolume()
		r.ClosePosition = r.ClosePosition.Add(change)
		r.TradingPnl = r.TradingPnl.Add(change.Mul(r.ClosePrice.Sub(t.Price)).Mul(c.Size))

		turnover := t.Price.Mul(t.Volume).Mul(c.Size)
		r.Turnover = r.Turnover.Add(turnover)
		r.Commission = r.Commission.Add(turnover.Mul(c.Rate))
		r.Slippage = r.Slippage.Add(t.Volume.Mul(c.Size).Mul(c.Slippage))
	}

	r.TotalPnl = r.TradingPnl.Add(r.PositionPnl)
	r.NetPnl = r.TotalPnl.Sub(r.Commission).Sub(r.Slippage)
}
