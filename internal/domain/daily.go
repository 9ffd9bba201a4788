package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyResult is the P&L bucket for one trading day.
// Corresponds to the daily_results table.
type DailyResult struct {
	Date          time.Time
	ClosePrice    decimal.Decimal
	PreviousClose decimal.Decimal

	Trades     []*Trade
	TradeCount int

	OpenPosition  decimal.Decimal
	ClosePosition decimal.Decimal

	Turnover   decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal

	TradingPnl  decimal.Decimal
	PositionPnl decimal.Decimal
	TotalPnl    decimal.Decimal
	NetPnl      decimal.Decimal
}
