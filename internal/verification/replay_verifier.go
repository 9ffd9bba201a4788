package verification

import (
	"context"
	"errors"
	"fmt"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
	"cta-backtester/internal/strategy"
)

var (
	// ErrRunNotFound is returned when the run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunNotCompleted is returned when the run has no final ledger.
	ErrRunNotCompleted = errors.New("run not completed")
)

// ReplayVerifier implements Verifier by re-running stored runs.
type ReplayVerifier struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	runner     *backtest.Runner
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore   storage.RunStore
	TradeStore storage.TradeStore
	Runner     *backtest.Runner
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runStore:   opts.RunStore,
		tradeStore: opts.TradeStore,
		runner:     opts.Runner,
	}
}

// VerifyRun verifies a single run by replaying it.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	// 1. Load stored run and ledger
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if run.Status != domain.RunStatusCompleted {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunNotCompleted, runID, run.Status)
	}

	storedPtrs, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	stored := make([]domain.Trade, len(storedPtrs))
	for i, t := range storedPtrs {
		stored[i] = *t
	}

	// 2. Replay with the stored settings
	settings := backtest.SettingsFromRun(run)
	strat, err := strategy.FromConfig(run.Strategy, run.Params)
	if err != nil {
		return nil, fmt.Errorf("rebuild strategy: %w", err)
	}
	ds, err := v.runner.Load(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	res, err := v.runner.RunDataset(ctx, ds, settings, strat)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}

	// 3. Compare
	report := CompareLedgers(stored, res.Trades)
	report.RunID = runID
	report.Fingerprint = run.Fingerprint
	report.ReplayedFingerprint = backtest.Fingerprint(settings, strat.ID(), run.Params, ds)
	return report, nil
}

var _ Verifier = (*ReplayVerifier)(nil)
