package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Mapping errors.
var (
	ErrUnknownOrderType = errors.New("unknown order type")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrUnknownMode      = errors.New("unknown replay mode")
)

// Direction is the side of an order or trade.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Sign returns +1 for LONG and -1 for SHORT.
func (d Direction) Sign() int64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

// Offset tells whether an order opens or closes exposure.
type Offset string

// Offset constants.
const (
	OffsetOpen  Offset = "OPEN"
	OffsetClose Offset = "CLOSE"
)

// Valid reports whether o is one of the known offsets.
func (o Offset) Valid() bool {
	return o == OffsetOpen || o == OffsetClose
}

// OrderStatus is the lifecycle state of a limit order.
// PARTTRADED and REJECTED are part of the vocabulary but the matching
// engine only produces full fills.
type OrderStatus string

// OrderStatus constants.
const (
	StatusUnset      OrderStatus = "UNSET"
	StatusNotTraded  OrderStatus = "NOTTRADED"
	StatusPartTraded OrderStatus = "PARTTRADED"
	StatusAllTraded  OrderStatus = "ALLTRADED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRejected   OrderStatus = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusAllTraded, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// StopOrderStatus is the lifecycle state of a locally simulated stop order.
type StopOrderStatus string

// StopOrderStatus constants.
const (
	StopStatusWaiting   StopOrderStatus = "WAITING"
	StopStatusTriggered StopOrderStatus = "TRIGGERED"
	StopStatusCancelled StopOrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s StopOrderStatus) Terminal() bool {
	return s == StopStatusTriggered || s == StopStatusCancelled
}

// Mode selects which kind of market point a run replays.
type Mode string

// Mode constants.
const (
	ModeBar  Mode = "bar"
	ModeTick Mode = "tick"
)

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBar:
		return ModeBar, nil
	case ModeTick:
		return ModeTick, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// OrderType is one of the four strategy commands. The set is closed: the
// only usable values are OrderBuy, OrderSell, OrderShort and OrderCover, and
// each carries its (direction, offset) pair, so resolving a type needs no
// switch. The zero value is invalid.
type OrderType struct {
	name      string
	direction Direction
	offset    Offset
}

// The four order types.
var (
	OrderBuy   = OrderType{name: "BUY", direction: DirectionLong, offset: OffsetOpen}
	OrderSell  = OrderType{name: "SELL", direction: DirectionShort, offset: OffsetClose}
	OrderShort = OrderType{name: "SHORT", direction: DirectionShort, offset: OffsetOpen}
	OrderCover = OrderType{name: "COVER", direction: DirectionLong, offset: OffsetClose}
)

// Valid reports whether t is one of the four order types.
func (t OrderType) Valid() bool {
	return t.name != ""
}

// String returns the command name.
func (t OrderType) String() string {
	if t.name == "" {
		return "INVALID"
	}
	return t.name
}

// Direction returns the order side.
func (t OrderType) Direction() Direction { return t.direction }

// Offset returns the order offset.
func (t OrderType) Offset() Offset { return t.offset }

// Resolve returns the (direction, offset) pair, or ErrUnknownOrderType for
// the zero value.
func (t OrderType) Resolve() (Direction, Offset, error) {
	if !t.Valid() {
		return "", "", ErrUnknownOrderType
	}
	return t.direction, t.offset, nil
}

// ParseOrderType maps a command name to its OrderType.
func ParseOrderType(s string) (OrderType, error) {
	for _, t := range []OrderType{OrderBuy, OrderSell, OrderShort, OrderCover} {
		if strings.EqualFold(t.name, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return OrderType{}, fmt.Errorf("%w: %q", ErrUnknownOrderType, s)
}
