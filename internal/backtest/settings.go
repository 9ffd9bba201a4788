package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/daily"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/metrics"
	"cta-backtester/internal/replay"
)

// ErrInvalidSettings is returned when engine settings fail validation.
var ErrInvalidSettings = errors.New("invalid backtest settings")

// Settings configure one run. They are fixed before replay starts.
type Settings struct {
	Symbol    string
	Mode      domain.Mode
	StartDate time.Time
	EndDate   time.Time // zero means until the end of the data
	InitDays  int

	Capital   decimal.Decimal
	Slippage  decimal.Decimal // price units per contract per side
	Rate      decimal.Decimal // commission rate on turnover
	Size      decimal.Decimal // contract multiplier
	PriceTick decimal.Decimal // zero disables rounding
}

// DefaultSettings returns the engine defaults.
func DefaultSettings() Settings {
	return Settings{
		Mode:      domain.ModeBar,
		InitDays:  10,
		Capital:   decimal.NewFromInt(1_000_000),
		Slippage:  decimal.Zero,
		Rate:      decimal.Zero,
		Size:      decimal.NewFromInt(1),
		PriceTick: decimal.Zero,
	}
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if err := s.Window().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	switch {
	case !s.Size.IsPositive():
		return fmt.Errorf("%w: size must be positive", ErrInvalidSettings)
	case s.Rate.IsNegative():
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidSettings)
	case s.Slippage.IsNegative():
		return fmt.Errorf("%w: slippage must not be negative", ErrInvalidSettings)
	case s.PriceTick.IsNegative():
		return fmt.Errorf("%w: price tick must not be negative", ErrInvalidSettings)
	case s.Capital.IsNegative():
		return fmt.Errorf("%w: capital must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Window returns the replay window described by the settings.
func (s Settings) Window() replay.Window {
	return replay.Window{
		Symbol:   s.Symbol,
		Mode:     s.Mode,
		Start:    s.StartDate,
		End:      s.EndDate,
		InitDays: s.InitDays,
	}
}

func (s Settings) resultCosts() metrics.Costs {
	return metrics.Costs{Rate: s.Rate, Slippage: s.Slippage, Size: s.Size}
}

func (s Settings) dailyCosts() daily.Costs {
	return daily.Costs{Rate: s.Rate, Slippage: s.Slippage, Size: s.Size}
}
