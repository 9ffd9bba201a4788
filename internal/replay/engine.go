package replay

import (
	"context"

	"cta-backtester/internal/domain"
)

// Engine processes market points in chronological order.
type Engine interface {
	// OnPoint is called for each point in order.
	// Points are guaranteed to be ordered by time ASC.
	OnPoint(ctx context.Context, point domain.MarketPoint) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, point domain.MarketPoint) error

// OnPoint calls f.
func (f EngineFunc) OnPoint(ctx context.Context, point domain.MarketPoint) error {
	return f(ctx, point)
}
