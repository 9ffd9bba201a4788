package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// EventKind identifies an engine event.
type EventKind string

// EventKind constants.
const (
	EventOrder     EventKind = "order"
	EventStopOrder EventKind = "stop_order"
	EventTrade     EventKind = "trade"
	EventFinished  EventKind = "finished"
)

// Event is one notification published to an EventSink. Exactly one of the
// payload fields is set, matching Kind.
type Event struct {
	RunID     string             `json:"run_id"`
	Kind      EventKind          `json:"kind"`
	Time      time.Time          `json:"time"`
	Order     *domain.LimitOrder `json:"order,omitempty"`
	StopOrder *domain.StopOrder  `json:"stop_order,omitempty"`
	Trade     *domain.Trade      `json:"trade,omitempty"`
	Finished  *FinishedEvent     `json:"finished,omitempty"`
}

// FinishedEvent closes a run's event stream.
type FinishedEvent struct {
	Status     domain.RunStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	Points     int              `json:"points"`
	TradeCount int              `json:"trade_count"`
	NetPnl     decimal.Decimal  `json:"net_pnl"`
}

// EventSink receives engine events synchronously from the replay loop.
// Implementations must not block.
type EventSink interface {
	Publish(event Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event Event)

// Publish calls f.
func (f EventSinkFunc) Publish(event Event) { f(event) }
