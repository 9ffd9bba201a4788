package backtest

import (
	"cta-backtester/internal/domain"
	"cta-backtester/internal/strategy"
)

// StubStrategy records every callback and runs optional scripted hooks.
// It is used by tests and by determinism checks.
type StubStrategy struct {
	strategy.Template

	// Optional hooks, called after the callback is recorded.
	OnStartFunc func(s *StubStrategy)
	OnBarFunc   func(s *StubStrategy, bar *domain.Bar)
	OnTickFunc  func(s *StubStrategy, tick *domain.Tick)
	OnTradeFunc func(s *StubStrategy, trade *domain.Trade)

	Calls      []string
	Bars       []*domain.Bar
	Ticks      []*domain.Tick
	Orders     []domain.LimitOrder
	StopOrders []domain.StopOrder
	Trades     []domain.Trade
	// TradingAtPoint records Trading() for every delivered point.
	TradingAtPoint []bool
}

// NewStubStrategy creates a new stub strategy.
func NewStubStrategy() *StubStrategy {
	return &StubStrategy{}
}

// Name returns the strategy type.
func (s *StubStrategy) Name() string { return "STUB" }

// ID returns the strategy identifier.
func (s *StubStrategy) ID() string { return "STUB" }

// OnInit records the call.
func (s *StubStrategy) OnInit() { s.Calls = append(s.Calls, "init") }

// OnStart records the call.
func (s *StubStrategy) OnStart() {
	s.Calls = append(s.Calls, "start")
	if s.OnStartFunc != nil {
		s.OnStartFunc(s)
	}
}

// OnStop records the call.
func (s *StubStrategy) OnStop() { s.Calls = append(s.Calls, "stop") }

// OnBar records the bar.
func (s *StubStrategy) OnBar(bar *domain.Bar) {
	s.Calls = append(s.Calls, "bar")
	s.Bars = append(s.Bars, bar)
	s.TradingAtPoint = append(s.TradingAtPoint, s.Trading())
	if s.OnBarFunc != nil {
		s.OnBarFunc(s, bar)
	}
}

// OnTick records the tick.
func (s *StubStrategy) OnTick(tick *domain.Tick) {
	s.Calls = append(s.Calls, "tick")
	s.Ticks = append(s.Ticks, tick)
	s.TradingAtPoint = append(s.TradingAtPoint, s.Trading())
	if s.OnTickFunc != nil {
		s.OnTickFunc(s, tick)
	}
}

// OnOrder records the order update.
func (s *StubStrategy) OnOrder(order *domain.LimitOrder) {
	s.Calls = append(s.Calls, "order:"+string(order.Status))
	s.Orders = append(s.Orders, *order)
}

// OnStopOrder records the stop order update.
func (s *StubStrategy) OnStopOrder(stop *domain.StopOrder) {
	s.Calls = append(s.Calls, "stop_order:"+string(stop.Status))
	s.StopOrders = append(s.StopOrders, *stop)
}

// OnTrade records the fill.
func (s *StubStrategy) OnTrade(trade *domain.Trade) {
	s.Calls = append(s.Calls, "trade")
	s.Trades = append(s.Trades, *trade)
	if s.OnTradeFunc != nil {
		s.OnTradeFunc(s, trade)
	}
}

var _ strategy.Strategy = (*StubStrategy)(nil)
