package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestResult is the trade-level run summary produced by FIFO pairing.
// Series are parallel: one entry per TradingResult, in pairing order.
type BacktestResult struct {
	Results []TradingResult

	FirstTradeTime time.Time
	LastTradeTime  time.Time

	Capital     decimal.Decimal // cumulative pnl
	MaxCapital  decimal.Decimal
	Drawdown    decimal.Decimal // last drawdown value
	MaxDrawdown decimal.Decimal // most negative drawdown

	TotalResult     int
	TotalTurnover   decimal.Decimal
	TotalCommission decimal.Decimal
	TotalSlippage   decimal.Decimal

	WinningResult   int
	LosingResult    int
	WinningRate     decimal.Decimal // percent
	AverageWinning  decimal.Decimal
	AverageLosing   decimal.Decimal
	ProfitLossRatio decimal.Decimal

	AveragePnl        decimal.Decimal
	AverageSlippage   decimal.Decimal
	AverageCommission decimal.Decimal

	TimeList     []time.Time
	PnlList      []decimal.Decimal
	CapitalList  []decimal.Decimal
	DrawdownList []decimal.Decimal

	// PosList and TradeTimeList describe each result as an entry/exit pair:
	// +1/0 for a closed long, -1/0 for a closed short.
	PosList       []int
	TradeTimeList []time.Time
}

// DailyStatistics summarizes the daily P&L series.
type DailyStatistics struct {
	StartDate time.Time
	EndDate   time.Time

	TotalDays  int
	ProfitDays int
	LossDays   int

	EndBalance   decimal.Decimal
	MaxDrawdown  decimal.Decimal
	MaxDdPercent decimal.Decimal

	TotalNetPnl     decimal.Decimal
	DailyNetPnl     decimal.Decimal
	TotalCommission decimal.Decimal
	DailyCommission decimal.Decimal
	TotalSlippage   decimal.Decimal
	DailySlippage   decimal.Decimal
	TotalTurnover   decimal.Decimal
	DailyTurnover   decimal.Decimal
	TotalTradeCount int
	DailyTradeCount float64

	TotalReturn      float64 // percent
	AnnualizedReturn float64 // percent
	DailyReturn      float64 // percent, mean of daily log returns
	ReturnStd        float64 // percent, sample stddev of daily log returns
	SharpeRatio      float64

	Days []DailyBalance
}

// DailyBalance is the per-day balance curve derived from DailyResult.
type DailyBalance struct {
	Date      time.Time
	NetPnl    decimal.Decimal
	Balance   decimal.Decimal
	Return    float64
	HighLevel decimal.Decimal
	Drawdown  decimal.Decimal
	DdPercent decimal.Decimal
}
