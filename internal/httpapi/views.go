package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

type runView struct {
	RunID       string             `json:"run_id"`
	Strategy    string             `json:"strategy"`
	Params      map[string]float64 `json:"params"`
	Symbol      string             `json:"symbol"`
	Mode        domain.Mode        `json:"mode"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date,omitempty"`
	InitDays    int                `json:"init_days"`
	Capital     decimal.Decimal    `json:"capital"`
	Slippage    decimal.Decimal    `json:"slippage"`
	Rate        decimal.Decimal    `json:"rate"`
	Size        decimal.Decimal    `json:"size"`
	PriceTick   decimal.Decimal    `json:"price_tick"`
	Status      domain.RunStatus   `json:"status"`
	Error       string             `json:"error,omitempty"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`

	PointCount      int             `json:"point_count"`
	TradeCount      int             `json:"trade_count"`
	ResultCount     int             `json:"result_count"`
	NetPnl          decimal.Decimal `json:"net_pnl"`
	MaxDrawdown     decimal.Decimal `json:"max_drawdown"`
	WinningRate     decimal.Decimal `json:"winning_rate"`
	ProfitLossRatio decimal.Decimal `json:"profit_loss_ratio"`
	SharpeRatio     float64         `json:"sharpe_ratio"`
}

func newRunView(r *domain.Run) runView {
	v := runView{
		RunID:           r.RunID,
		Strategy:        r.Strategy,
		Params:          r.Params,
		Symbol:          r.Symbol,
		Mode:            r.Mode,
		StartDate:       formatDate(r.StartDate),
		EndDate:         formatDate(r.EndDate),
		InitDays:        r.InitDays,
		Capital:         r.Capital,
		Slippage:        r.Slippage,
		Rate:            r.Rate,
		Size:            r.Size,
		PriceTick:       r.PriceTick,
		Status:          r.Status,
		Error:           r.Error,
		Fingerprint:     r.Fingerprint,
		CreatedAt:       r.CreatedAt,
		PointCount:      r.PointCount,
		TradeCount:      r.TradeCount,
		ResultCount:     r.ResultCount,
		NetPnl:          r.NetPnl,
		MaxDrawdown:     r.MaxDrawdown,
		WinningRate:     r.WinningRate,
		ProfitLossRatio: r.ProfitLossRatio,
		SharpeRatio:     r.SharpeRatio,
	}
	if v.Params == nil {
		v.Params = map[string]float64{}
	}
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt
		v.FinishedAt = &t
	}
	return v
}

type tradeView struct {
	TradeID    string           `json:"trade_id"`
	OrderID    string           `json:"order_id"`
	Symbol     string           `json:"symbol"`
	Direction  domain.Direction `json:"direction"`
	Offset     domain.Offset    `json:"offset"`
	Price      decimal.Decimal  `json:"price"`
	Volume     decimal.Decimal  `json:"volume"`
	Time       time.Time        `json:"time"`
	TradingDay string           `json:"trading_day"`
}

func newTradeView(t *domain.Trade) tradeView {
	return tradeView{
		TradeID:    t.TradeID,
		OrderID:    t.OrderID,
		Symbol:     t.Symbol,
		Direction:  t.Direction,
		Offset:     t.Offset,
		Price:      t.Price,
		Volume:     t.Volume,
		Time:       t.Time,
		TradingDay: formatDate(t.TradingDay),
	}
}

type dailyView struct {
	Date          string          `json:"date"`
	ClosePrice    decimal.Decimal `json:"close_price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	TradeCount    int             `json:"trade_count"`
	OpenPosition  decimal.Decimal `json:"open_position"`
	ClosePosition decimal.Decimal `json:"close_position"`
	Turnover      decimal.Decimal `json:"turnover"`
	Commission    decimal.Decimal `json:"commission"`
	Slippage      decimal.Decimal `json:"slippage"`
	TradingPnl    decimal.Decimal `json:"trading_pnl"`
	PositionPnl   decimal.Decimal `json:"position_pnl"`
	TotalPnl      decimal.Decimal `json:"total_pnl"`
	NetPnl        decimal.Decimal `json:"net_pnl"`
}

func newDailyView(d *domain.DailyResult) dailyView {
	return dailyView{
		Date:          formatDate(d.Date),
		ClosePrice:    d.ClosePrice,
		PreviousClose: d.PreviousClose,
		TradeCount:    d.TradeCount,
		OpenPosition:  d.OpenPosition,
		ClosePosition: d.ClosePosition,
		Turnover:      d.Turnover,
		Commission:    d.Commission,
		Slippage:      d.Slippage,
		TradingPnl:    d.TradingPnl,
		PositionPnl:   d.PositionPnl,
		TotalPnl:      d.TotalPnl,
		NetPnl:        d.NetPnl,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
