package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/reporting"
	"cta-backtester/internal/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay history through the configured strategy",
	RunE:  runBacktest,
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close()

	settings, err := env.cfg.Settings()
	if err != nil {
		return err
	}
	strat, err := strategy.FromConfig(env.cfg.Strategy.Name, env.cfg.Strategy.Params)
	if err != nil {
		return err
	}
	if _, err := env.stores.LoadHistory(ctx, env.cfg, env.log, env.metrics); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	runner := env.stores.NewRunner(backtest.WithLogger(env.log), backtest.WithMetrics(env.metrics))
	ds, err := runner.Load(ctx, settings)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	run := backtest.NewRun(runID, settings, strat.Name(), env.cfg.Strategy.Params, time.Now().UTC())
	run.Fingerprint = backtest.Fingerprint(settings, strat.ID(), run.Params, ds)

	res, err := runner.RunDataset(ctx, ds, settings, strat, backtest.WithRunID(runID))
	if err != nil {
		return err
	}
	res.ApplyTo(run)
	run.FinishedAt = time.Now().UTC()

	log := env.log.WithFields(logrus.Fields{"run_id": runID, "strategy": strat.ID()})
	if env.cfg.Storage.Persist {
		if err := persistRun(ctx, env, run, res); err != nil {
			return err
		}
		log.Info("run persisted")
	}

	rep := reporting.FromResult(run, res, time.Now().UTC())
	reporting.RenderConsole(cmd.OutOrStdout(), rep)

	if dir := env.cfg.Output.Dir; dir != "" {
		paths, err := reporting.WriteFiles(dir, rep, env.cfg.Output.Formats)
		if err != nil {
			return err
		}
		log.WithField("files", paths).Info("report written")
	}
	return nil
}

func persistRun(ctx context.Context, env *environment, run *domain.Run, res *backtest.Result) error {
	if err := env.stores.Runs.Insert(ctx, run); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	if len(res.Trades) > 0 {
		if err := env.stores.Trades.InsertBulk(ctx, run.RunID, res.TradePtrs()); err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
	}
	if len(res.Daily) > 0 {
		if err := env.stores.Daily.InsertBulk(ctx, run.RunID, res.DailyPtrs()); err != nil {
			return fmt.Errorf("store daily results: %w", err)
		}
	}
	return nil
}
