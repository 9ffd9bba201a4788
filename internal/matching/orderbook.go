package matching

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// Listener receives order book notifications. OnPosition is always called
// before the OnTrade of the fill that caused it.
type Listener interface {
	OnOrder(order *domain.LimitOrder)
	OnStopOrder(stop *domain.StopOrder)
	OnTrade(trade *domain.Trade)
	OnPosition(delta decimal.Decimal)
}

// OrderBook simulates resting limit orders and locally held stop orders
// against replayed market points.
//
// Every order, stop order and trade ever created lives in an append-only
// history arena owned by the book. Working sets hold IDs only, so a
// cancelled or filled order is removed from the working set while its
// record stays in history. Listeners receive copies of the records.
type OrderBook struct {
	priceTick decimal.Decimal
	listener  Listener

	orderCount     int64
	stopOrderCount int64
	tradeCount     int64

	orders       []*domain.LimitOrder
	orderIndex   map[string]int
	workingLimit *workingSet

	stopOrders  []*domain.StopOrder
	stopIndex   map[string]int
	workingStop *workingSet

	trades []*domain.Trade

	point domain.MarketPoint
	now   time.Time
}

// NewOrderBook creates an empty book. A nil listener discards notifications.
func NewOrderBook(priceTick decimal.Decimal, listener Listener) *OrderBook {
	b := &OrderBook{priceTick: priceTick, listener: listener}
	b.Reset()
	return b
}

// SetPriceTick changes the rounding increment for subsequently submitted orders.
func (b *OrderBook) SetPriceTick(tick decimal.Decimal) {
	b.priceTick = tick
}

// PriceTick returns the rounding increment.
func (b *OrderBook) PriceTick() decimal.Decimal {
	return b.priceTick
}

// Reset clears history, working sets, counters and the current point.
func (b *OrderBook) Reset() {
	b.orderCount = 0
	b.stopOrderCount = 0
	b.tradeCount = 0
	b.orders = nil
	b.orderIndex = make(map[string]int)
	b.workingLimit = newWorkingSet()
	b.stopOrders = nil
	b.stopIndex = make(map[string]int)
	b.workingStop = newWorkingSet()
	b.trades = nil
	b.point = nil
	b.now = time.Time{}
}

// SetPoint records the current market point without matching. The replay
// driver uses it during warm-up so that order timestamps stay meaningful.
func (b *OrderBook) SetPoint(p domain.MarketPoint) {
	b.point = p
	if p != nil {
		b.now = p.Time()
	}
}

// Point returns the current market point, or nil before the first one.
func (b *OrderBook) Point() domain.MarketPoint {
	return b.point
}

// SubmitLimitOrder creates a working limit order and returns its ID.
// The price is rounded to the price tick. The order is matched from the
// next Cross call onward.
func (b *OrderBook) SubmitLimitOrder(symbol string, dir domain.Direction, offset domain.Offset, price, volume decimal.Decimal) (string, error) {
	if err := validateOrder(dir, offset, price, volume); err != nil {
		return "", err
	}

	id := strconv.FormatInt(b.orderCount+1, 10)
	if _, exists := b.orderIndex[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateOrderID, id)
	}
	b.orderCount++

	order := &domain.LimitOrder{
		OrderID:      id,
		Symbol:       symbol,
		Direction:    dir,
		Offset:       offset,
		Price:        RoundToTick(price, b.priceTick),
		TotalVolume:  volume,
		TradedVolume: decimal.Zero,
		Status:       domain.StatusUnset,
		OrderTime:    b.now,
	}
	b.orderIndex[id] = len(b.orders)
	b.orders = append(b.orders, order)
	b.workingLimit.add(id)
	return id, nil
}

// SubmitStopOrder creates a waiting stop order and returns its ID, which
// always carries domain.StopOrderPrefix.
func (b *OrderBook) SubmitStopOrder(symbol string, dir domain.Direction, offset domain.Offset, price, volume decimal.Decimal) (string, error) {
	if err := validateOrder(dir, offset, price, volume); err != nil {
		return "", err
	}

	id := domain.StopOrderPrefix + strconv.FormatInt(b.stopOrderCount+1, 10)
	if _, exists := b.stopIndex[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateOrderID, id)
	}
	b.stopOrderCount++

	stop := &domain.StopOrder{
		StopOrderID: id,
		Symbol:      symbol,
		Direction:   dir,
		Offset:      offset,
		Price:       RoundToTick(price, b.priceTick),
		Volume:      volume,
		Status:      domain.StopStatusWaiting,
		OrderTime:   b.now,
	}
	b.stopIndex[id] = len(b.stopOrders)
	b.stopOrders = append(b.stopOrders, stop)
	b.workingStop.add(id)
	return id, nil
}

func validateOrder(dir domain.Direction, offset domain.Offset, price, volume decimal.Decimal) error {
	if !dir.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownDirection, dir)
	}
	if !offset.Valid() {
		return fmt.Errorf("%w: offset %q", domain.ErrUnknownOrderType, offset)
	}
	if !volume.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidVolume, volume)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	return nil
}

// CancelLimitOrder cancels a working limit order. It reports whether an
// order was cancelled; unknown or already terminal IDs are a no-op.
// An order that was never evaluated is acknowledged (NOTTRADED) before it
// is cancelled, so every order passes through NOTTRADED exactly once.
func (b *OrderBook) CancelLimitOrder(id string) bool {
	if !b.workingLimit.has(id) {
		return false
	}
	order := b.orders[b.orderIndex[id]]
	if order.Status == domain.StatusUnset {
		order.Status = domain.StatusNotTraded
		b.notifyOrder(order)
		if !b.workingLimit.has(id) {
			return false
		}
	}
	b.workingLimit.remove(id)
	order.Status = domain.StatusCancelled
	order.CancelTime = b.now
	b.notifyOrder(order)
	return true
}

// CancelStopOrder cancels a waiting stop order. It reports whether an
// order was cancelled.
func (b *OrderBook) CancelStopOrder(id string) bool {
	if !b.workingStop.remove(id) {
		return false
	}
	stop := b.stopOrders[b.stopIndex[id]]
	stop.Status = domain.StopStatusCancelled
	b.notifyStopOrder(stop)
	return true
}

// CancelAll cancels every working limit and stop order.
func (b *OrderBook) CancelAll() {
	for _, id := range b.workingLimit.snapshot() {
		b.CancelLimitOrder(id)
	}
	for _, id := range b.workingStop.snapshot() {
		b.CancelStopOrder(id)
	}
}

// Cross makes p the current point and matches working limit orders, then
// working stop orders, against it. Both working sets are snapshotted before
// the limit pass, so orders submitted by listener callbacks during either
// pass wait for the next point. Orders cancelled during the point are skipped.
func (b *OrderBook) Cross(p domain.MarketPoint) error {
	limitPrices, err := limitCrossPrices(p)
	if err != nil {
		return err
	}
	stopPrices, err := stopCrossPrices(p)
	if err != nil {
		return err
	}

	b.SetPoint(p)
	limitIDs := b.workingLimit.snapshot()
	stopIDs := b.workingStop.snapshot()
	b.crossLimitOrders(limitIDs, limitPrices)
	b.crossStopOrders(stopIDs, stopPrices)
	return nil
}

func (b *OrderBook) crossLimitOrders(ids []string, cp crossPrices) {
	for _, id := range ids {
		if !b.workingLimit.has(id) {
			continue
		}
		order := b.orders[b.orderIndex[id]]

		if order.Status == domain.StatusUnset {
			order.Status = domain.StatusNotTraded
			b.notifyOrder(order)
			if !b.workingLimit.has(id) {
				continue
			}
		}

		var fill decimal.Decimal
		switch order.Direction {
		case domain.DirectionLong:
			if !cp.buyCross.IsPositive() || order.Price.LessThan(cp.buyCross) {
				continue
			}
			fill = decimal.Min(order.Price, cp.buyBestCross)
		case domain.DirectionShort:
			if !cp.sellCross.IsPositive() || order.Price.GreaterThan(cp.sellCross) {
				continue
			}
			fill = decimal.Max(order.Price, cp.sellBestCross)
		default:
			continue
		}

		trade := b.newTrade(order.OrderID, order.Symbol, order.Direction, order.Offset, fill, order.TotalVolume)

		order.TradedVolume = order.TotalVolume
		order.Status = domain.StatusAllTraded
		b.workingLimit.remove(id)

		b.notifyPosition(trade.SignedVolume())
		b.notifyTrade(trade)
		b.notifyOrder(order)
	}
}

func (b *OrderBook) crossStopOrders(ids []string, cp crossPrices) {
	for _, id := range ids {
		if !b.workingStop.has(id) {
			continue
		}
		stop := b.stopOrders[b.stopIndex[id]]

		var fill decimal.Decimal
		switch stop.Direction {
		case domain.DirectionLong:
			if stop.Price.GreaterThan(cp.buyCross) {
				continue
			}
			fill = decimal.Max(cp.buyBestCross, stop.Price)
		case domain.DirectionShort:
			if stop.Price.LessThan(cp.sellCross) {
				continue
			}
			fill = decimal.Min(cp.sellBestCross, stop.Price)
		default:
			continue
		}

		b.orderCount++
		orderID := strconv.FormatInt(b.orderCount, 10)
		order := &domain.LimitOrder{
			OrderID:      orderID,
			Symbol:       stop.Symbol,
			Direction:    stop.Direction,
			Offset:       stop.Offset,
			Price:        stop.Price,
			TotalVolume:  stop.Volume,
			TradedVolume: stop.Volume,
			Status:       domain.StatusAllTraded,
			OrderTime:    b.now,
		}
		// History only: the synthesized order never enters the working set.
		b.orderIndex[orderID] = len(b.orders)
		b.orders = append(b.orders, order)

		stop.Status = domain.StopStatusTriggered
		stop.OrderID = orderID
		b.workingStop.remove(id)

		trade := b.newTrade(orderID, stop.Symbol, stop.Direction, stop.Offset, fill, stop.Volume)

		b.notifyPosition(trade.SignedVolume())
		b.notifyStopOrder(stop)
		b.notifyOrder(order)
		b.notifyTrade(trade)
	}
}

func (b *OrderBook) newTrade(orderID, symbol string, dir domain.Direction, offset domain.Offset, price, volume decimal.Decimal) *domain.Trade {
	b.tradeCount++
	trade := &domain.Trade{
		TradeID:   strconv.FormatInt(b.tradeCount, 10),
		OrderID:   orderID,
		Symbol:    symbol,
		Direction: dir,
		Offset:    offset,
		Price:     price,
		Volume:    volume,
		Time:      b.now,
	}
	if b.point != nil {
		trade.TradingDay = b.point.Day()
	}
	b.trades = append(b.trades, trade)
	return trade
}

func (b *OrderBook) notifyOrder(o *domain.LimitOrder) {
	if b.listener == nil {
		return
	}
	cp := *o
	b.listener.OnOrder(&cp)
}

func (b *OrderBook) notifyStopOrder(s *domain.StopOrder) {
	if b.listener == nil {
		return
	}
	cp := *s
	b.listener.OnStopOrder(&cp)
}

func (b *OrderBook) notifyTrade(t *domain.Trade) {
	if b.listener == nil {
		return
	}
	cp := *t
	b.listener.OnTrade(&cp)
}

func (b *OrderBook) notifyPosition(delta decimal.Decimal) {
	if b.listener == nil {
		return
	}
	b.listener.OnPosition(delta)
}

// Order returns a copy of the limit order with the given ID.
func (b *OrderBook) Order(id string) (domain.LimitOrder, bool) {
	i, ok := b.orderIndex[id]
	if !ok {
		return domain.LimitOrder{}, false
	}
	return *b.orders[i], true
}

// StopOrder returns a copy of the stop order with the given ID.
func (b *OrderBook) StopOrder(id string) (domain.StopOrder, bool) {
	i, ok := b.stopIndex[id]
	if !ok {
		return domain.StopOrder{}, false
	}
	return *b.stopOrders[i], true
}

// Orders returns copies of every limit order ever created, in creation order.
func (b *OrderBook) Orders() []domain.LimitOrder {
	out := make([]domain.LimitOrder, len(b.orders))
	for i, o := range b.orders {
		out[i] = *o
	}
	return out
}

// StopOrders returns copies of every stop order ever created.
func (b *OrderBook) StopOrders() []domain.StopOrder {
	out := make([]domain.StopOrder, len(b.stopOrders))
	for i, s := range b.stopOrders {
		out[i] = *s
	}
	return out
}

// WorkingOrders returns copies of the working limit orders.
func (b *OrderBook) WorkingOrders() []domain.LimitOrder {
	ids := b.workingLimit.snapshot()
	out := make([]domain.LimitOrder, len(ids))
	for i, id := range ids {
		out[i] = *b.orders[b.orderIndex[id]]
	}
	return out
}

// WorkingStopOrders returns copies of the waiting stop orders.
func (b *OrderBook) WorkingStopOrders() []domain.StopOrder {
	ids := b.workingStop.snapshot()
	out := make([]domain.StopOrder, len(ids))
	for i, id := range ids {
		out[i] = *b.stopOrders[b.stopIndex[id]]
	}
	return out
}

// Trades returns copies of every trade in fill order.
func (b *OrderBook) Trades() []domain.Trade {
	out := make([]domain.Trade, len(b.trades))
	for i, t := range b.trades {
		out[i] = *t
	}
	return out
}

// TradeCount returns the number of fills so far.
func (b *OrderBook) TradeCount() int {
	return len(b.trades)
}
