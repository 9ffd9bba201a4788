package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// Costs are the per-run cost parameters.
type Costs struct {
	Rate     decimal.Decimal // commission rate on turnover
	Slippage decimal.Decimal // price units per contract per side
	Size     decimal.Decimal // contract multiplier
}

var two = decimal.NewFromInt(2)

// GenerateTradingResult computes the outcome of one closing match.
// volume is signed: positive closes a long, negative closes a short.
//
//	turnover   = (entry + exit) * size * |volume|
//	commission = turnover * rate
//	slippage   = slippage * 2 * size * |volume|
//	pnl        = (exit - entry) * volume * size - commission - slippage
func GenerateTradingResult(entryPrice decimal.Decimal, entryTime time.Time, exitPrice decimal.Decimal, exitTime time.Time, volume decimal.Decimal, c Costs) domain.TradingResult {
	abs := volume.Abs()
	turnover := entryPrice.Add(exitPrice).Mul(c.Size).Mul(abs)
	commission := turnover.Mul(c.Rate)
	slippage := c.Slippage.Mul(two).Mul(c.Size).Mul(abs)
	pnl := exitPrice.Sub(entryPrice).Mul(volume).Mul(c.Size).Sub(commission).Sub(slippage)

	return domain.TradingResult{
		EntryPrice: entryPrice,
		EntryTime:  entryTime,
		ExitPrice:  exitPrice,
		ExitTime:   exitTime,
		Volume:     volume,
		Turnover:   turnover,
		Commission: commission,
		Slippage:   slippage,
		Pnl:        pnl,
	}
}
