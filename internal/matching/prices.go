package matching

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// crossPrices are the reference prices a point offers to resting orders.
type crossPrices struct {
	buyCross      decimal.Decimal
	sellCross     decimal.Decimal
	buyBestCross  decimal.Decimal
	sellBestCross decimal.Decimal
}

// limitCrossPrices: a bar offers low to buyers and high to sellers, with the
// open as the best achievable price; a tick offers the best ask to buyers and
// the best bid to sellers.
func limitCrossPrices(p domain.MarketPoint) (crossPrices, error) {
	switch v := p.(type) {
	case *domain.Bar:
		return crossPrices{
			buyCross:      v.Low,
			sellCross:     v.High,
			buyBestCross:  v.Open,
			sellBestCross: v.Open,
		}, nil
	case *domain.Tick:
		return crossPrices{
			buyCross:      v.AskPrice1,
			sellCross:     v.BidPrice1,
			buyBestCross:  v.AskPrice1,
			sellBestCross: v.BidPrice1,
		}, nil
	}
	return crossPrices{}, fmt.Errorf("%w: %T", ErrUnknownPoint, p)
}

// stopCrossPrices are inverted relative to limit orders: a buy stop is
// touched by the bar high, a sell stop by the bar low. Ticks use the last
// price for everything.
func stopCrossPrices(p domain.MarketPoint) (crossPrices, error) {
	switch v := p.(type) {
	case *domain.Bar:
		return crossPrices{
			buyCross:      v.High,
			sellCross:     v.Low,
			buyBestCross:  v.Open,
			sellBestCross: v.Open,
		}, nil
	case *domain.Tick:
		return crossPrices{
			buyCross:      v.LastPrice,
			sellCross:     v.LastPrice,
			buyBestCross:  v.LastPrice,
			sellBestCross: v.LastPrice,
		}, nil
	}
	return crossPrices{}, fmt.Errorf("%w: %T", ErrUnknownPoint, p)
}

// RoundToTick rounds price to the nearest multiple of tick, half away from
// zero. A zero or negative tick leaves the price unchanged.
func RoundToTick(price, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return price
	}
	return price.Div(tick).Round(0).Mul(tick)
}
