package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the lifecycle state of a persisted backtest run.
type RunStatus string

// RunStatus constants.
const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted record of one backtest.
// Corresponds to the backtest_runs table.
type Run struct {
	RunID       string
	Strategy    string
	Params      map[string]float64
	Symbol      string
	Mode        Mode
	StartDate   time.Time
	EndDate     time.Time
	InitDays    int
	Capital     decimal.Decimal
	Slippage    decimal.Decimal
	Rate        decimal.Decimal
	Size        decimal.Decimal
	PriceTick   decimal.Decimal
	Status      RunStatus
	Error       string
	Fingerprint string // deterministic hash of settings and dataset
	CreatedAt   time.Time
	FinishedAt  time.Time

	// Summary, filled once completed.
	PointCount      int
	TradeCount      int
	ResultCount     int
	NetPnl          decimal.Decimal
	MaxDrawdown     decimal.Decimal
	WinningRate     decimal.Decimal
	ProfitLossRatio decimal.Decimal
	SharpeRatio     float64
}
