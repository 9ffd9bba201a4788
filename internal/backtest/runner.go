package backtest

import (
	"context"

	"cta-backtester/internal/replay"
	"cta-backtester/internal/strategy"
)

// Runner loads a window and executes a backtest over it.
type Runner struct {
	replayRunner *replay.Runner
	opts         []Option
}

// NewRunner creates a new backtest runner. opts apply to every engine it
// creates.
func NewRunner(replayRunner *replay.Runner, opts ...Option) *Runner {
	return &Runner{
		replayRunner: replayRunner,
		opts:         opts,
	}
}

// Load fetches the dataset described by settings.
func (r *Runner) Load(ctx context.Context, settings Settings) (*replay.Dataset, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return r.replayRunner.Load(ctx, settings.Window())
}

// Run loads the window described by settings and replays it through strat.
// extra options are applied after the runner's own.
func (r *Runner) Run(ctx context.Context, settings Settings, strat strategy.Strategy, extra ...Option) (*Result, error) {
	ds, err := r.Load(ctx, settings)
	if err != nil {
		return nil, err
	}
	return r.RunDataset(ctx, ds, settings, strat, extra...)
}

// RunDataset replays an already loaded dataset.
func (r *Runner) RunDataset(ctx context.Context, ds *replay.Dataset, settings Settings, strat strategy.Strategy, extra ...Option) (*Result, error) {
	opts := append(append([]Option{}, r.opts...), extra...)
	engine := NewEngine(settings, strat, opts...)
	return engine.Run(ctx, ds)
}
