package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one fill. Volume is always positive; Direction carries the side.
type Trade struct {
	TradeID    string
	OrderID    string
	Symbol     string
	Direction  Direction
	Offset     Offset
	Price      decimal.Decimal
	Volume     decimal.Decimal
	Time       time.Time
	TradingDay time.Time
}

// SignedVolume returns +Volume for LONG and -Volume for SHORT.
func (t *Trade) SignedVolume() decimal.Decimal {
	if t.Direction == DirectionShort {
		return t.Volume.Neg()
	}
	return t.Volume
}

// TradingResult is the financial outcome of one closing match.
// Volume is signed: positive when a long position is closed, negative when
// a short position is closed, so Pnl = (Exit-Entry) * Volume * Size - costs.
type TradingResult struct {
	EntryPrice decimal.Decimal
	EntryTime  time.Time
	ExitPrice  decimal.Decimal
	ExitTime   time.Time
	Volume     decimal.Decimal
	Turnover   decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal
	Pnl        decimal.Decimal
}
