package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Strategy types.
const (
	TypeDualMA          = "DUAL_MA"
	TypeChannelBreakout = "CHANNEL_BREAKOUT"
)

// Factory errors
var (
	ErrUnknownStrategy = errors.New("unknown strategy type")
	ErrInvalidParam    = errors.New("invalid strategy parameter")
)

// Parameter defaults.
const (
	DefaultFastWindow    = 10
	DefaultSlowWindow    = 20
	DefaultChannelWindow = 20
	DefaultFixedSize     = 1
)

// Types returns the registered strategy types in sorted order.
func Types() []string {
	types := []string{TypeDualMA, TypeChannelBreakout}
	sort.Strings(types)
	return types
}

// FromConfig creates a Strategy by type name with numeric parameters.
// Missing parameters take their defaults; unknown keys are rejected so a
// misspelled optimization grid fails loudly.
func FromConfig(name string, params map[string]float64) (Strategy, error) {
	switch name {
	case TypeDualMA:
		return fromDualMAConfig(params)
	case TypeChannelBreakout:
		return fromChannelBreakoutConfig(params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

func fromDualMAConfig(params map[string]float64) (*DualMAStrategy, error) {
	if err := checkKeys(params, "fast_window", "slow_window", "fixed_size"); err != nil {
		return nil, err
	}
	fast, err := intParam(params, "fast_window", DefaultFastWindow)
	if err != nil {
		return nil, err
	}
	slow, err := intParam(params, "slow_window", DefaultSlowWindow)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fast_window %d must be below slow_window %d", ErrInvalidParam, fast, slow)
	}
	size, err := sizeParam(params)
	if err != nil {
		return nil, err
	}
	return NewDualMAStrategy(fast, slow, size), nil
}

func fromChannelBreakoutConfig(params map[string]float64) (*ChannelBreakoutStrategy, error) {
	if err := checkKeys(params, "window", "fixed_size"); err != nil {
		return nil, err
	}
	window, err := intParam(params, "window", DefaultChannelWindow)
	if err != nil {
		return nil, err
	}
	if window < 2 {
		return nil, fmt.Errorf("%w: window %d must be at least 2", ErrInvalidParam, window)
	}
	size, err := sizeParam(params)
	if err != nil {
		return nil, err
	}
	return NewChannelBreakoutStrategy(window, size), nil
}

func checkKeys(params map[string]float64, allowed ...string) error {
	for key := range params {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: unknown key %q", ErrInvalidParam, key)
		}
	}
	return nil
}

func intParam(params map[string]float64, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	if v <= 0 || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %v", ErrInvalidParam, key, v)
	}
	return int(v), nil
}

func sizeParam(params map[string]float64) (decimal.Decimal, error) {
	v, ok := params["fixed_size"]
	if !ok {
		return decimal.NewFromInt(DefaultFixedSize), nil
	}
	if v <= 0 {
		return decimal.Zero, fmt.Errorf("%w: fixed_size must be positive, got %v", ErrInvalidParam, v)
	}
	return decimal.NewFromFloat(v), nil
}
