package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/strategy"
)

const persistTimeout = 30 * time.Second

// submit records a pending run and schedules it. The returned run is the
// record as inserted.
func (s *Server) submit(ctx context.Context, settings backtest.Settings, name string, params map[string]float64) (*domain.Run, error) {
	strat, err := strategy.FromConfig(name, params)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	run := backtest.NewRun(s.newID(), settings, name, params, s.now())
	if err := s.stores.Runs.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	// The goroutine owns its own copy of the record.
	exec := *run
	s.wg.Add(1)
	go s.execute(&exec, settings, strat)
	return run, nil
}

func (s *Server) execute(run *domain.Run, settings backtest.Settings, strat strategy.Strategy) {
	defer s.wg.Done()
	log := s.log.WithFields(logrus.Fields{
		"run_id":   run.RunID,
		"strategy": run.Strategy,
		"symbol":   run.Symbol,
	})

	if s.ctx.Err() != nil {
		s.fail(run, ErrShutdown, true, log)
		return
	}
	select {
	case s.sem <- struct{}{}:
	case <-s.ctx.Done():
		s.fail(run, ErrShutdown, true, log)
		return
	}
	defer func() { <-s.sem }()

	run.Status = domain.RunStatusRunning
	s.update(run, log)

	ds, err := s.runner.Load(s.ctx, settings)
	if err != nil {
		s.fail(run, err, true, log)
		return
	}
	run.Fingerprint = backtest.Fingerprint(settings, strat.ID(), run.Params, ds)

	opts := []backtest.Option{backtest.WithRunID(run.RunID)}
	if s.hub != nil {
		opts = append(opts, backtest.WithSink(s.hub))
	}
	res, err := s.runner.RunDataset(s.ctx, ds, settings, strat, opts...)
	if err != nil {
		// The engine has already published the finished event.
		s.fail(run, err, false, log)
		return
	}

	if err := s.persist(run.RunID, res); err != nil {
		s.fail(run, err, false, log)
		return
	}

	res.ApplyTo(run)
	run.FinishedAt = s.now()
	s.update(run, log)
	log.WithFields(logrus.Fields{
		"trades":  run.TradeCount,
		"net_pnl": run.NetPnl.String(),
	}).Info("run completed")
}

func (s *Server) persist(runID string, res *backtest.Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if len(res.Trades) > 0 {
		if err := s.stores.Trades.InsertBulk(ctx, runID, res.TradePtrs()); err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
	}
	if len(res.Daily) > 0 {
		if err := s.stores.Daily.InsertBulk(ctx, runID, res.DailyPtrs()); err != nil {
			return fmt.Errorf("store daily results: %w", err)
		}
	}
	return nil
}

// fail records err on the run. publish emits the finished event for
// failures the engine never saw.
func (s *Server) fail(run *domain.Run, err error, publish bool, log logrus.FieldLogger) {
	if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		err = ErrShutdown
	}
	run.Status = domain.RunStatusFailed
	run.Error = err.Error()
	run.FinishedAt = s.now()
	s.update(run, log)
	log.WithError(err).Warn("run failed")

	if publish && s.hub != nil {
		s.hub.Publish(backtest.Event{
			RunID: run.RunID,
			Kind:  backtest.EventFinished,
			Time:  run.FinishedAt,
			Finished: &backtest.FinishedEvent{
				Status: domain.RunStatusFailed,
				Error:  run.Error,
			},
		})
	}
}

func (s *Server) update(run *domain.Run, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.stores.Runs.Update(ctx, run); err != nil {
		log.WithError(err).WithField("status", run.Status).Error("update run")
	}
}
