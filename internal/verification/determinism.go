package verification

import (
	"context"
	"errors"
	"fmt"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/idhash"
	"cta-backtester/internal/replay"
	"cta-backtester/internal/strategy"
)

// ErrTooFewRuns is returned when fewer than two repetitions are requested.
var ErrTooFewRuns = errors.New("determinism check needs at least two runs")

// RunHashes are the ledger hashes of one repetition.
type RunHashes struct {
	Trades  string
	Results string
}

// DeterminismReport is the outcome of replaying one dataset several times.
type DeterminismReport struct {
	Runs        int
	Hashes      []RunHashes
	Match       bool
	Divergences []FieldDivergence // first divergent trades against run 0
}

// CheckDeterminism runs a fresh strategy from newStrategy over ds runs
// times, each on its own engine, and compares trade and result hashes.
func CheckDeterminism(
	ctx context.Context,
	ds *replay.Dataset,
	settings backtest.Settings,
	newStrategy func() (strategy.Strategy, error),
	runs int,
	opts ...backtest.Option,
) (*DeterminismReport, error) {
	if runs < 2 {
		return nil, ErrTooFewRuns
	}

	report := &DeterminismReport{Runs: runs, Match: true}
	var first *backtest.Result
	for i := 0; i < runs; i++ {
		strat, err := newStrategy()
		if err != nil {
			return nil, fmt.Errorf("create strategy: %w", err)
		}
		res, err := backtest.NewEngine(settings, strat, opts...).Run(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}

		h := RunHashes{Trades: idhash.ComputeTradesHash(res.Trades)}
		if res.Summary != nil {
			h.Results = idhash.ComputeResultsHash(res.Summary.Results)
		} else {
			h.Results = idhash.ComputeResultsHash(nil)
		}
		report.Hashes = append(report.Hashes, h)

		if first == nil {
			first = res
			continue
		}
		if h != report.Hashes[0] {
			report.Match = false
			if report.Divergences == nil {
				cmp := CompareLedgers(first.Trades, res.Trades)
				for _, r := range cmp.Results {
					report.Divergences = append(report.Divergences, r.Divergences...)
				}
				if len(report.Divergences) == 0 {
					report.Divergences = []FieldDivergence{{Field: "Results", Expected: report.Hashes[0].Results, Actual: h.Results}}
				}
			}
		}
	}
	return report, nil
}
