package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/strategy"
	"cta-backtester/internal/verification"
)

var errNotReproducible = errors.New("backtest is not reproducible")

var (
	verifyRunID string
	verifyRuns  int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that a stored run, or the configured backtest, replays identically",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRunID, "run-id", "", "Stored run to replay (requires storage.postgres_dsn)")
	verifyCmd.Flags().IntVar(&verifyRuns, "runs", 3, "Repetitions for the in-process determinism check")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	if _, err := env.stores.LoadHistory(ctx, env.cfg, env.log, env.metrics); err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	runner := env.stores.NewRunner(backtest.WithLogger(env.log))
	out := cmd.OutOrStdout()

	if verifyRunID != "" {
		report, err := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
			RunStore:   env.stores.Runs,
			TradeStore: env.stores.Trades,
			Runner:     runner,
		}).VerifyRun(ctx, verifyRunID)
		if err != nil {
			return err
		}
		printVerification(out, report)
		if !report.Match() {
			return errNotReproducible
		}
		return nil
	}

	settings, err := env.cfg.Settings()
	if err != nil {
		return err
	}
	name, params := env.cfg.Strategy.Name, env.cfg.Strategy.Params
	if _, err := strategy.FromConfig(name, params); err != nil {
		return err
	}
	ds, err := runner.Load(ctx, settings)
	if err != nil {
		return err
	}
	report, err := verification.CheckDeterminism(ctx, ds, settings, func() (strategy.Strategy, error) {
		return strategy.FromConfig(name, params)
	}, verifyRuns, backtest.WithLogger(env.log))
	if err != nil {
		return err
	}

	for i, h := range report.Hashes {
		fmt.Fprintf(out, "run %d: trades %s results %s\n", i, h.Trades, h.Results)
	}
	printDivergences(out, report.Divergences)
	if !report.Match {
		return errNotReproducible
	}
	fmt.Fprintf(out, "%d runs produced identical ledgers\n", report.Runs)
	return nil
}

func printVerification(w io.Writer, r *verification.VerificationReport) {
	fmt.Fprintf(w, "run:         %s\n", r.RunID)
	fmt.Fprintf(w, "fingerprint: %s\n", r.Fingerprint)
	fmt.Fprintf(w, "replayed:    %s\n", r.ReplayedFingerprint)
	fmt.Fprintf(w, "trades:      %d stored, %d replayed, %d matched, %d divergent\n",
		r.TotalTrades, r.ReplayedTrades, r.MatchedTrades, r.DivergentTrades)
	for _, tv := range r.Results {
		if tv.Match {
			continue
		}
		fmt.Fprintf(w, "trade %s:\n", tv.TradeID)
		printDivergences(w, tv.Divergences)
	}
	fmt.Fprintf(w, "match:       %t\n", r.Match())
}

func printDivergences(w io.Writer, divs []verification.FieldDivergence) {
	for _, d := range divs {
		fmt.Fprintf(w, "  %s: expected %v, got %v\n", d.Field, d.Expected, d.Actual)
	}
}
