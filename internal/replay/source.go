package replay

import (
	"context"
	"fmt"
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// Source is the historical data boundary. LoadSeries returns the points of
// one symbol within [start, end) in chronological order; end zero means
// unbounded. The result may be empty.
type Source interface {
	LoadSeries(ctx context.Context, symbol string, start, end time.Time, mode domain.Mode) ([]domain.MarketPoint, error)
}

// StoreSource loads series from bar and tick stores.
type StoreSource struct {
	bars  storage.BarStore
	ticks storage.TickStore
}

// NewStoreSource creates a Source backed by storage. Either store may be nil
// if the corresponding mode is never requested.
func NewStoreSource(bars storage.BarStore, ticks storage.TickStore) *StoreSource {
	return &StoreSource{bars: bars, ticks: ticks}
}

// LoadSeries implements Source.
func (s *StoreSource) LoadSeries(ctx context.Context, symbol string, start, end time.Time, mode domain.Mode) ([]domain.MarketPoint, error) {
	switch mode {
	case domain.ModeBar:
		if s.bars == nil {
			return nil, fmt.Errorf("no bar store configured")
		}
		bars, err := s.bars.GetByTimeRange(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("load bars: %w", err)
		}
		return domain.BarPoints(bars), nil
	case domain.ModeTick:
		if s.ticks == nil {
			return nil, fmt.Errorf("no tick store configured")
		}
		ticks, err := s.ticks.GetByTimeRange(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("load ticks: %w", err)
		}
		return domain.TickPoints(ticks), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
}

var _ Source = (*StoreSource)(nil)
