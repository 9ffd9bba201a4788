package strategy

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// DualMAStrategy trades EMA crossovers with limit orders at the bar close.
// A golden cross covers any short and goes long; a dead cross sells any
// long and goes short.
type DualMAStrategy struct {
	Template

	FastWindow int
	SlowWindow int
	FixedSize  decimal.Decimal

	window *barWindow
	orders orderSet

	fastMA float64
	slowMA float64
}

// NewDualMAStrategy creates a new DualMAStrategy.
func NewDualMAStrategy(fastWindow, slowWindow int, fixedSize decimal.Decimal) *DualMAStrategy {
	return &DualMAStrategy{
		FastWindow: fastWindow,
		SlowWindow: slowWindow,
		FixedSize:  fixedSize,
	}
}

// Name returns the strategy type.
func (s *DualMAStrategy) Name() string { return TypeDualMA }

// ID returns the strategy identifier including parameters.
func (s *DualMAStrategy) ID() string {
	return fmt.Sprintf("%s_fast%d_slow%d_size%s", TypeDualMA, s.FastWindow, s.SlowWindow, s.FixedSize)
}

// OnInit resets indicator state.
func (s *DualMAStrategy) OnInit() {
	// EMA needs history beyond the slow window to settle.
	s.window = newBarWindow(s.SlowWindow * 4)
	s.orders = orderSet{}
	s.fastMA, s.slowMA = 0, 0
}

// OnTick treats each tick as a one-price bar.
func (s *DualMAStrategy) OnTick(tick *domain.Tick) {
	s.OnBar(tickBar(tick))
}

// OnBar updates the averages and reacts to crosses.
func (s *DualMAStrategy) OnBar(bar *domain.Bar) {
	if s.window == nil {
		s.OnInit()
	}
	s.orders.cancelAll(&s.Template)
	s.window.update(bar)

	closes := s.window.closes
	n := len(closes)
	if n < s.SlowWindow+1 {
		return
	}

	fast := talib.Ema(closes, s.FastWindow)
	slow := talib.Ema(closes, s.SlowWindow)
	fast0, fast1 := fast[n-1], fast[n-2]
	slow0, slow1 := slow[n-1], slow[n-2]
	s.fastMA, s.slowMA = fast0, slow0

	crossOver := fast0 > slow0 && fast1 < slow1
	crossBelow := fast0 < slow0 && fast1 > slow1

	pos := s.Pos()
	price := bar.Close

	switch {
	case crossOver:
		if pos.IsNegative() {
			s.orders.add(s.Cover(price, pos.Abs(), false))
		}
		if !pos.IsPositive() {
			s.orders.add(s.Buy(price, s.FixedSize, false))
		}
	case crossBelow:
		if pos.IsPositive() {
			s.orders.add(s.Sell(price, pos, false))
		}
		if !pos.IsNegative() {
			s.orders.add(s.Short(price, s.FixedSize, false))
		}
	}
}

// OnOrder forgets finished orders.
func (s *DualMAStrategy) OnOrder(order *domain.LimitOrder) {
	s.orders.forgetOrder(order)
}

// MA returns the latest fast and slow averages.
func (s *DualMAStrategy) MA() (fast, slow float64) {
	return s.fastMA, s.slowMA
}

func tickBar(t *domain.Tick) *domain.Bar {
	return &domain.Bar{
		Symbol:     t.Symbol,
		TradingDay: t.TradingDay,
		Open:       t.LastPrice,
		High:       t.LastPrice,
		Low:        t.LastPrice,
		Close:      t.LastPrice,
		Volume:     t.Volume,
		EndTime:    t.Datetime,
	}
}

var _ Strategy = (*DualMAStrategy)(nil)
