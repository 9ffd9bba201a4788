package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// openLot is a trade whose volume is not yet fully closed.
type openLot struct {
	price     decimal.Decimal
	time      time.Time
	remaining decimal.Decimal
}

// Pairing is the output of PairTrades.
type Pairing struct {
	Results []domain.TradingResult
	// Residual reports how many results were produced by closing still-open
	// lots at the end price rather than by an opposite trade.
	Residual int
}

// PairTrades matches trades first-in first-out. A trade that meets open
// exposure in the opposite direction closes it oldest lot first, one result
// per lot touched; any volume left once the opposite side is flat opens a
// new lot in the trade's own direction. Lots still open after the last
// trade are closed at endPrice/endTime, longs before shorts.
//
// Trades must be in ledger order.
func PairTrades(trades []domain.Trade, endPrice decimal.Decimal, endTime time.Time, c Costs) Pairing {
	var (
		longs   fifo[*openLot]
		shorts  fifo[*openLot]
		results []domain.TradingResult
	)

	for i := range trades {
		t := &trades[i]
		remaining := t.Volume

		// A LONG trade closes shorts and vice versa. Closing a short is a
		// negative result volume so that pnl keeps its economic sign.
		opposite, own, sign := &shorts, &longs, decimal.NewFromInt(-1)
		if t.Direction == domain.DirectionShort {
			opposite, own, sign = &longs, &shorts, decimal.NewFromInt(1)
		}

		for remaining.IsPositive() && opposite.len() > 0 {
			head := opposite.peek()
			closed := decimal.Min(remaining, head.remaining)

			results = append(results, GenerateTradingResult(
				head.price, head.time, t.Price, t.Time, closed.Mul(sign), c,
			))

			remaining = remaining.Sub(closed)
			head.remaining = head.remaining.Sub(closed)
			if !head.remaining.IsPositive() {
				opposite.pop()
			}
		}

		if remaining.IsPositive() {
			own.push(&openLot{price: t.Price, time: t.Time, remaining: remaining})
		}
	}

	paired := len(results)
	for _, lot := range longs.drain() {
		results = append(results, GenerateTradingResult(lot.price, lot.time, endPrice, endTime, lot.remaining, c))
	}
	for _, lot := range shorts.drain() {
		results = append(results, GenerateTradingResult(lot.price, lot.time, endPrice, endTime, lot.remaining.Neg(), c))
	}

	return Pairing{Results: results, Residual: len(results) - paired}
}
