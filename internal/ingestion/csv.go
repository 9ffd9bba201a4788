// Package ingestion imports historical bars and ticks from CSV files into
// the history stores.
package ingestion

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// ErrInvalidRow is returned when a CSV row cannot be parsed.
var ErrInvalidRow = errors.New("invalid csv row")

// BarRow is the CSV layout for bars. Symbol may be omitted when the
// importer is given a default.
type BarRow struct {
	Symbol     string `csv:"symbol,omitempty"`
	Datetime   string `csv:"datetime"`
	TradingDay string `csv:"trading_day,omitempty"`
	Open       string `csv:"open"`
	High       string `csv:"high"`
	Low        string `csv:"low"`
	Close      string `csv:"close"`
	Volume     string `csv:"volume,omitempty"`
}

// TickRow is the CSV layout for ticks.
type TickRow struct {
	Symbol     string `csv:"symbol,omitempty"`
	Datetime   string `csv:"datetime"`
	TradingDay string `csv:"trading_day,omitempty"`
	LastPrice  string `csv:"last_price"`
	AskPrice1  string `csv:"ask_price_1"`
	BidPrice1  string `csv:"bid_price_1"`
	Volume     string `csv:"volume,omitempty"`
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"20060102 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

// ParseTime parses a timestamp in any supported layout. Layouts without a
// zone are interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// ReadBars parses bars from r. Rows without a symbol take symbol.
func ReadBars(r io.Reader, symbol string, loc *time.Location) ([]*domain.Bar, error) {
	var rows []*BarRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}

	bars := make([]*domain.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := row.toBar(symbol, loc)
		if err != nil {
			// +2: header line and 1-based numbering
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidRow, i+2, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// ReadTicks parses ticks from r. Rows without a symbol take symbol.
func ReadTicks(r io.Reader, symbol string, loc *time.Location) ([]*domain.Tick, error) {
	var rows []*TickRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decode ticks: %w", err)
	}

	ticks := make([]*domain.Tick, 0, len(rows))
	for i, row := range rows {
		tick, err := row.toTick(symbol, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidRow, i+2, err)
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

func (row *BarRow) toBar(symbol string, loc *time.Location) (*domain.Bar, error) {
	p := parser{loc: loc}
	bar := &domain.Bar{
		Symbol:     pick(row.Symbol, symbol),
		EndTime:    p.time("datetime", row.Datetime),
		TradingDay: p.optionalDay(row.TradingDay),
		Open:       p.decimal("open", row.Open),
		High:       p.decimal("high", row.High),
		Low:        p.decimal("low", row.Low),
		Close:      p.decimal("close", row.Close),
		Volume:     p.optionalDecimal("volume", row.Volume),
	}
	if p.err != nil {
		return nil, p.err
	}
	if bar.Symbol == "" {
		return nil, errors.New("missing symbol")
	}
	if bar.High.LessThan(bar.Low) {
		return nil, fmt.Errorf("high %s below low %s", bar.High, bar.Low)
	}
	return bar, nil
}

func (row *TickRow) toTick(symbol string, loc *time.Location) (*domain.Tick, error) {
	p := parser{loc: loc}
	tick := &domain.Tick{
		Symbol:     pick(row.Symbol, symbol),
		Datetime:   p.time("datetime", row.Datetime),
		TradingDay: p.optionalDay(row.TradingDay),
		LastPrice:  p.decimal("last_price", row.LastPrice),
		AskPrice1:  p.decimal("ask_price_1", row.AskPrice1),
		BidPrice1:  p.decimal("bid_price_1", row.BidPrice1),
		Volume:     p.optionalDecimal("volume", row.Volume),
	}
	if p.err != nil {
		return nil, p.err
	}
	if tick.Symbol == "" {
		return nil, errors.New("missing symbol")
	}
	return tick, nil
}

// parser keeps the first field error.
type parser struct {
	loc *time.Location
	err error
}

func (p *parser) time(field, s string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	t, err := ParseTime(s, p.loc)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
	return t
}

func (p *parser) optionalDay(s string) time.Time {
	if strings.TrimSpace(s) == "" {
		return time.Time{}
	}
	return domain.DateOf(p.time("trading_day", s))
}

func (p *parser) decimal(field, s string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
	return d
}

func (p *parser) optionalDecimal(field, s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero
	}
	return p.decimal(field, s)
}

func pick(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
