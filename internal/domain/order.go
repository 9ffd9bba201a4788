package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StopOrderPrefix namespaces stop order IDs so they never collide with
// limit order IDs.
const StopOrderPrefix = "StopOrder."

// IsStopOrderID reports whether id belongs to the stop order namespace.
func IsStopOrderID(id string) bool {
	return strings.HasPrefix(id, StopOrderPrefix)
}

// LimitOrder is a simulated limit order.
type LimitOrder struct {
	OrderID      string
	Symbol       string
	Direction    Direction
	Offset       Offset
	Price        decimal.Decimal
	TotalVolume  decimal.Decimal
	TradedVolume decimal.Decimal
	Status       OrderStatus
	OrderTime    time.Time
	CancelTime   time.Time
}

// StopOrder is a locally simulated stop order. When triggered it produces a
// fully filled LimitOrder and a Trade; it never rests as a limit order.
type StopOrder struct {
	StopOrderID string
	Symbol      string
	Direction   Direction
	Offset      Offset
	Price       decimal.Decimal
	Volume      decimal.Decimal
	Status      StopOrderStatus
	OrderTime   time.Time
	// OrderID is the synthesized limit order, set once triggered.
	OrderID string
}
