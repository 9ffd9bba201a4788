package replay

import (
	"context"
	"fmt"
	"time"

	"cta-backtester/internal/domain"
)

// Window describes what to replay: the active range [Start, End) preceded
// by InitDays calendar days of warm-up data.
type Window struct {
	Symbol   string
	Mode     domain.Mode
	Start    time.Time
	End      time.Time // zero means unbounded
	InitDays int
}

// WarmupStart returns the first instant of the warm-up range.
func (w Window) WarmupStart() time.Time {
	return w.Start.AddDate(0, 0, -w.InitDays)
}

// Validate checks the window fields.
func (w Window) Validate() error {
	switch {
	case w.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidWindow)
	case w.Mode != domain.ModeBar && w.Mode != domain.ModeTick:
		return fmt.Errorf("%w: %w: %q", ErrInvalidWindow, domain.ErrUnknownMode, w.Mode)
	case w.Start.IsZero():
		return fmt.Errorf("%w: start is required", ErrInvalidWindow)
	case !w.End.IsZero() && !w.End.After(w.Start):
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidWindow, w.End, w.Start)
	case w.InitDays < 0:
		return fmt.Errorf("%w: negative init days", ErrInvalidWindow)
	}
	return nil
}

// Dataset is a loaded window. It is never mutated after Load, so one
// Dataset can back many concurrent runs.
type Dataset struct {
	Window Window
	Warmup []domain.MarketPoint
	Active []domain.MarketPoint
}

// Len returns the total number of points.
func (d *Dataset) Len() int {
	return len(d.Warmup) + len(d.Active)
}

// Runner loads series from a Source and replays them in order.
type Runner struct {
	source Source
}

// NewRunner creates a new replay runner.
func NewRunner(source Source) *Runner {
	return &Runner{source: source}
}

// Load fetches the warm-up and active ranges of w. Both series must already
// be chronological.
func (r *Runner) Load(ctx context.Context, w Window) (*Dataset, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	var warmup []domain.MarketPoint
	if w.InitDays > 0 {
		points, err := r.source.LoadSeries(ctx, w.Symbol, w.WarmupStart(), w.Start, w.Mode)
		if err != nil {
			return nil, fmt.Errorf("load warm-up series: %w", err)
		}
		if err := ValidateOrdering(points); err != nil {
			return nil, fmt.Errorf("warm-up series: %w", err)
		}
		warmup = points
	}

	active, err := r.source.LoadSeries(ctx, w.Symbol, w.Start, w.End, w.Mode)
	if err != nil {
		return nil, fmt.Errorf("load active series: %w", err)
	}
	if err := ValidateOrdering(active); err != nil {
		return nil, fmt.Errorf("active series: %w", err)
	}

	return &Dataset{Window: w, Warmup: warmup, Active: active}, nil
}

// Replay feeds points to engine in order and returns how many were
// delivered. It stops at the first engine error or context cancellation.
func (r *Runner) Replay(ctx context.Context, points []domain.MarketPoint, engine Engine) (int, error) {
	return Play(ctx, points, engine)
}

// Play is Replay without a Runner, for callers that already hold a Dataset.
func Play(ctx context.Context, points []domain.MarketPoint, engine Engine) (int, error) {
	for i, p := range points {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := engine.OnPoint(ctx, p); err != nil {
			return i + 1, err
		}
	}
	return len(points), nil
}
