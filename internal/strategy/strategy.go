package strategy

import (
	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// Engine is the command surface a strategy sees. The backtest engine
// implements it; all calls happen synchronously inside strategy hooks.
type Engine interface {
	// SendOrder submits a limit order and returns its ID, or "" if the
	// order was not accepted.
	SendOrder(orderType domain.OrderType, price, volume decimal.Decimal) string
	// SendStopOrder submits a locally held stop order.
	SendStopOrder(orderType domain.OrderType, price, volume decimal.Decimal) string
	CancelOrder(orderID string)
	CancelStopOrder(stopOrderID string)
}

// Strategy is the pluggable decision logic driven by the replay.
// Implementations embed Template, which supplies no-op hooks and the
// order commands, and override the hooks they need.
type Strategy interface {
	// Name returns the strategy type, e.g. "DUAL_MA".
	Name() string
	// ID returns the strategy identifier including parameters.
	ID() string

	OnInit()
	OnStart()
	OnStop()

	OnBar(bar *domain.Bar)
	OnTick(tick *domain.Tick)

	OnOrder(order *domain.LimitOrder)
	OnStopOrder(stop *domain.StopOrder)
	OnTrade(trade *domain.Trade)

	base() *Template
}

// Template holds the engine binding and run state shared by all strategies.
type Template struct {
	engine  Engine
	symbol  string
	pos     decimal.Decimal
	inited  bool
	trading bool
}

func (t *Template) base() *Template { return t }

// OnInit is a no-op.
func (t *Template) OnInit() {}

// OnStart is a no-op.
func (t *Template) OnStart() {}

// OnStop is a no-op.
func (t *Template) OnStop() {}

// OnBar is a no-op.
func (t *Template) OnBar(*domain.Bar) {}

// OnTick is a no-op.
func (t *Template) OnTick(*domain.Tick) {}

// OnOrder is a no-op.
func (t *Template) OnOrder(*domain.LimitOrder) {}

// OnStopOrder is a no-op.
func (t *Template) OnStopOrder(*domain.StopOrder) {}

// OnTrade is a no-op.
func (t *Template) OnTrade(*domain.Trade) {}

// Buy opens long exposure.
func (t *Template) Buy(price, volume decimal.Decimal, stop bool) string {
	return t.SendOrder(domain.OrderBuy, price, volume, stop)
}

// Sell closes long exposure.
func (t *Template) Sell(price, volume decimal.Decimal, stop bool) string {
	return t.SendOrder(domain.OrderSell, price, volume, stop)
}

// Short opens short exposure.
func (t *Template) Short(price, volume decimal.Decimal, stop bool) string {
	return t.SendOrder(domain.OrderShort, price, volume, stop)
}

// Cover closes short exposure.
func (t *Template) Cover(price, volume decimal.Decimal, stop bool) string {
	return t.SendOrder(domain.OrderCover, price, volume, stop)
}

// SendOrder routes an order to the limit or stop book. It returns "" when
// the strategy is not trading.
func (t *Template) SendOrder(orderType domain.OrderType, price, volume decimal.Decimal, stop bool) string {
	if !t.trading || t.engine == nil {
		return ""
	}
	if stop {
		return t.engine.SendStopOrder(orderType, price, volume)
	}
	return t.engine.SendOrder(orderType, price, volume)
}

// CancelOrder cancels a limit or stop order depending on the ID namespace.
func (t *Template) CancelOrder(id string) {
	if !t.trading || t.engine == nil || id == "" {
		return
	}
	if domain.IsStopOrderID(id) {
		t.engine.CancelStopOrder(id)
		return
	}
	t.engine.CancelOrder(id)
}

// Pos returns the current net position.
func (t *Template) Pos() decimal.Decimal { return t.pos }

// Symbol returns the bound instrument.
func (t *Template) Symbol() string { return t.symbol }

// Inited reports whether OnInit has completed.
func (t *Template) Inited() bool { return t.inited }

// Trading reports whether order commands are live.
func (t *Template) Trading() bool { return t.trading }

// Bind attaches s to an engine for one run and resets its run state.
func Bind(s Strategy, eng Engine, symbol string) {
	b := s.base()
	b.engine = eng
	b.symbol = symbol
	b.pos = decimal.Zero
	b.inited = false
	b.trading = false
}

// SetInited marks initialization state.
func SetInited(s Strategy, v bool) { s.base().inited = v }

// SetTrading enables or disables order commands.
func SetTrading(s Strategy, v bool) { s.base().trading = v }

// AdjustPos applies a signed fill volume to the strategy's position.
func AdjustPos(s Strategy, delta decimal.Decimal) {
	b := s.base()
	b.pos = b.pos.Add(delta)
}

// PosOf returns the net position of s.
func PosOf(s Strategy) decimal.Decimal { return s.base().pos }
