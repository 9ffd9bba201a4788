package strategy

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// ChannelBreakoutStrategy enters on a break of the N-bar high or low using
// stop orders and exits on a break of the opposite side. Stops are
// re-placed on every bar.
type ChannelBreakoutStrategy struct {
	Template

	Window    int
	FixedSize decimal.Decimal

	window *barWindow
	orders orderSet

	upper decimal.Decimal
	lower decimal.Decimal
}

// NewChannelBreakoutStrategy creates a new ChannelBreakoutStrategy.
func NewChannelBreakoutStrategy(window int, fixedSize decimal.Decimal) *ChannelBreakoutStrategy {
	return &ChannelBreakoutStrategy{
		Window:    window,
		FixedSize: fixedSize,
	}
}

// Name returns the strategy type.
func (s *ChannelBreakoutStrategy) Name() string { return TypeChannelBreakout }

// ID returns the strategy identifier including parameters.
func (s *ChannelBreakoutStrategy) ID() string {
	return fmt.Sprintf("%s_window%d_size%s", TypeChannelBreakout, s.Window, s.FixedSize)
}

// OnInit resets indicator state.
func (s *ChannelBreakoutStrategy) OnInit() {
	s.window = newBarWindow(s.Window)
	s.orders = orderSet{}
	s.upper, s.lower = decimal.Zero, decimal.Zero
}

// OnTick treats each tick as a one-price bar.
func (s *ChannelBreakoutStrategy) OnTick(tick *domain.Tick) {
	s.OnBar(tickBar(tick))
}

// OnBar recomputes the channel and re-places the stops.
func (s *ChannelBreakoutStrategy) OnBar(bar *domain.Bar) {
	if s.window == nil {
		s.OnInit()
	}
	s.orders.cancelAll(&s.Template)
	s.window.update(bar)
	if !s.window.ready() {
		return
	}

	highs := talib.Max(s.window.highs, s.Window)
	lows := talib.Min(s.window.lows, s.Window)
	s.upper = decimal.NewFromFloat(highs[len(highs)-1])
	s.lower = decimal.NewFromFloat(lows[len(lows)-1])

	pos := s.Pos()
	switch {
	case pos.IsZero():
		s.orders.add(s.Buy(s.upper, s.FixedSize, true))
		s.orders.add(s.Short(s.lower, s.FixedSize, true))
	case pos.IsPositive():
		s.orders.add(s.Sell(s.lower, pos, true))
	default:
		s.orders.add(s.Cover(s.upper, pos.Abs(), true))
	}
}

// OnStopOrder forgets finished stop orders.
func (s *ChannelBreakoutStrategy) OnStopOrder(stop *domain.StopOrder) {
	s.orders.forgetStop(stop)
}

// Channel returns the latest upper and lower bounds.
func (s *ChannelBreakoutStrategy) Channel() (upper, lower decimal.Decimal) {
	return s.upper, s.lower
}

var _ Strategy = (*ChannelBreakoutStrategy)(nil)
