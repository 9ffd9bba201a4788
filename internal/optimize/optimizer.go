package optimize

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/observability"
	"cta-backtester/internal/replay"
	"cta-backtester/internal/strategy"
)

// Target is the result field combinations are ranked by.
type Target string

// Target constants.
const (
	TargetCapital         Target = "capital"
	TargetSharpeRatio     Target = "sharpe_ratio"
	TargetTotalReturn     Target = "total_return"
	TargetWinningRate     Target = "winning_rate"
	TargetProfitLossRatio Target = "profit_loss_ratio"
)

// ErrUnknownTarget is returned for an unsupported target name.
var ErrUnknownTarget = errors.New("unknown optimization target")

// ParseTarget converts a config string to a Target.
func ParseTarget(s string) (Target, error) {
	t := Target(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TargetCapital, TargetSharpeRatio, TargetTotalReturn, TargetWinningRate, TargetProfitLossRatio:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

// Value extracts the target from a result. Missing sections count as zero.
func (t Target) Value(res *backtest.Result) float64 {
	if res == nil {
		return 0
	}
	switch t {
	case TargetCapital:
		if res.Summary != nil {
			return res.Summary.Capital.InexactFloat64()
		}
	case TargetWinningRate:
		if res.Summary != nil {
			return res.Summary.WinningRate.InexactFloat64()
		}
	case TargetProfitLossRatio:
		if res.Summary != nil {
			return res.Summary.ProfitLossRatio.InexactFloat64()
		}
	case TargetSharpeRatio:
		if res.DailyStats != nil {
			return res.DailyStats.SharpeRatio
		}
	case TargetTotalReturn:
		if res.DailyStats != nil {
			return res.DailyStats.TotalReturn
		}
	}
	return 0
}

// Outcome is one evaluated combination.
type Outcome struct {
	Params     map[string]float64
	StrategyID string
	Value      float64
	Result     *backtest.Result
	// Err is set when the combination could not be built or run; such
	// outcomes sort last.
	Err error
}

// Config configures an Optimizer.
type Config struct {
	Strategy string
	// Fixed params apply to every combination; grid values override them.
	Fixed       map[string]float64
	Target      Target
	Parallelism int // zero means GOMAXPROCS
}

// Optimizer runs a parameter sweep.
type Optimizer struct {
	config   Config
	settings backtest.Settings
	log      logrus.FieldLogger
	metrics  *observability.Metrics
}

// NewOptimizer creates an optimizer. log and metrics may be nil.
func NewOptimizer(config Config, settings backtest.Settings, log logrus.FieldLogger, metrics *observability.Metrics) *Optimizer {
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.GOMAXPROCS(0)
	}
	if config.Target == "" {
		config.Target = TargetCapital
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Optimizer{config: config, settings: settings, log: log, metrics: metrics}
}

// Run evaluates every grid combination against ds and returns outcomes
// sorted by target value, best first. Engines share ds read-only. A
// combination that fails is recorded in its Outcome; only context
// cancellation aborts the sweep.
func (o *Optimizer) Run(ctx context.Context, ds *replay.Dataset, grid *Grid) ([]Outcome, error) {
	combos := grid.Combinations()
	if len(combos) == 0 {
		return nil, ErrEmptyGrid
	}
	if err := o.settings.Validate(); err != nil {
		return nil, err
	}

	log := o.log.WithFields(logrus.Fields{
		"strategy":     o.config.Strategy,
		"target":       o.config.Target,
		"combinations": len(combos),
		"parallelism":  o.config.Parallelism,
	})
	log.Info("optimization started")

	outcomes := make([]Outcome, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Parallelism)
	for i, combo := range combos {
		i, combo := i, combo
		g.Go(func() error {
			outcomes[i] = o.evaluate(gctx, ds, combo)
			if err := gctx.Err(); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("optimization aborted: %w", err)
	}

	sortOutcomes(outcomes)
	if best := outcomes[0]; best.Err == nil {
		log.WithFields(logrus.Fields{
			"best":  FormatParams(best.Params),
			"value": best.Value,
		}).Info("optimization finished")
	}
	return outcomes, nil
}

func (o *Optimizer) evaluate(ctx context.Context, ds *replay.Dataset, combo map[string]float64) Outcome {
	params := make(map[string]float64, len(o.config.Fixed)+len(combo))
	for k, v := range o.config.Fixed {
		params[k] = v
	}
	for k, v := range combo {
		params[k] = v
	}
	out := Outcome{Params: params}

	strat, err := strategy.FromConfig(o.config.Strategy, params)
	if err != nil {
		out.Err = err
		o.metrics.RecordCombination("invalid")
		o.log.WithField("params", FormatParams(params)).WithError(err).Warn("combination skipped")
		return out
	}
	out.StrategyID = strat.ID()

	engine := backtest.NewEngine(o.settings, strat,
		backtest.WithLogger(o.log.WithField("params", FormatParams(params))),
		backtest.WithMetrics(o.metrics),
	)
	res, err := engine.Run(ctx, ds)
	if err != nil {
		out.Err = err
		o.metrics.RecordCombination("failed")
		return out
	}
	out.Result = res
	out.Value = o.config.Target.Value(res)
	o.metrics.RecordCombination("completed")
	return out
}

// sortOutcomes orders by value descending, failures last, ties by params.
func sortOutcomes(outcomes []Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return FormatParams(a.Params) < FormatParams(b.Params)
	})
}
