package reporting

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"cta-backtester/internal/domain"
)

// TradeRow is the CSV layout of the trade ledger.
type TradeRow struct {
	TradeID    string `csv:"trade_id"`
	OrderID    string `csv:"order_id"`
	Symbol     string `csv:"symbol"`
	Direction  string `csv:"direction"`
	Offset     string `csv:"offset"`
	Price      string `csv:"price"`
	Volume     string `csv:"volume"`
	Datetime   string `csv:"datetime"`
	TradingDay string `csv:"trading_day"`
}

// DailyRow is the CSV layout of daily results.
type DailyRow struct {
	Date          string `csv:"date"`
	ClosePrice    string `csv:"close_price"`
	PreviousClose string `csv:"pre_close"`
	TradeCount    int    `csv:"trade_count"`
	StartPos      string `csv:"start_pos"`
	EndPos        string `csv:"end_pos"`
	Turnover      string `csv:"turnover"`
	Commission    string `csv:"commission"`
	Slippage      string `csv:"slippage"`
	TradingPnl    string `csv:"trading_pnl"`
	HoldingPnl    string `csv:"holding_pnl"`
	TotalPnl      string `csv:"total_pnl"`
	NetPnl        string `csv:"net_pnl"`
}

// ResultRow is the CSV layout of one closed trading result with the
// running equity.
type ResultRow struct {
	EntryTime  string `csv:"entry_time"`
	EntryPrice string `csv:"entry_price"`
	ExitTime   string `csv:"exit_time"`
	ExitPrice  string `csv:"exit_price"`
	Volume     string `csv:"volume"`
	Turnover   string `csv:"turnover"`
	Commission string `csv:"commission"`
	Slippage   string `csv:"slippage"`
	Pnl        string `csv:"pnl"`
	Capital    string `csv:"capital"`
	Drawdown   string `csv:"drawdown"`
}

// WriteTradesCSV writes the trade ledger.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	rows := make([]*TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = &TradeRow{
			TradeID:    t.TradeID,
			OrderID:    t.OrderID,
			Symbol:     t.Symbol,
			Direction:  string(t.Direction),
			Offset:     string(t.Offset),
			Price:      t.Price.String(),
			Volume:     t.Volume.String(),
			Datetime:   formatTime(t.Time),
			TradingDay: formatDate(t.TradingDay),
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write trades csv: %w", err)
	}
	return nil
}

// WriteDailyCSV writes the daily results.
func WriteDailyCSV(w io.Writer, results []domain.DailyResult) error {
	rows := make([]*DailyRow, len(results))
	for i, d := range results {
		rows[i] = &DailyRow{
			Date:          formatDate(d.Date),
			ClosePrice:    d.ClosePrice.String(),
			PreviousClose: d.PreviousClose.String(),
			TradeCount:    d.TradeCount,
			StartPos:      d.OpenPosition.String(),
			EndPos:        d.ClosePosition.String(),
			Turnover:      d.Turnover.String(),
			Commission:    d.Commission.String(),
			Slippage:      d.Slippage.String(),
			TradingPnl:    d.TradingPnl.String(),
			HoldingPnl:    d.PositionPnl.String(),
			TotalPnl:      d.TotalPnl.String(),
			NetPnl:        d.NetPnl.String(),
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write daily csv: %w", err)
	}
	return nil
}

// WriteResultsCSV writes the closed results of summary with their equity
// series. A nil summary writes only the header.
func WriteResultsCSV(w io.Writer, summary *domain.BacktestResult) error {
	var rows []*ResultRow
	if summary != nil {
		rows = make([]*ResultRow, len(summary.Results))
		for i, r := range summary.Results {
			rows[i] = &ResultRow{
				EntryTime:  formatTime(r.EntryTime),
				EntryPrice: r.EntryPrice.String(),
				ExitTime:   formatTime(r.ExitTime),
				ExitPrice:  r.ExitPrice.String(),
				Volume:     r.Volume.String(),
				Turnover:   r.Turnover.String(),
				Commission: r.Commission.String(),
				Slippage:   r.Slippage.String(),
				Pnl:        r.Pnl.String(),
				Capital:    summary.CapitalList[i].String(),
				Drawdown:   summary.DrawdownList[i].String(),
			}
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write results csv: %w", err)
	}
	return nil
}
