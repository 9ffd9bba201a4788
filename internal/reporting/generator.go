package reporting

import (
	"context"
	"fmt"
	"time"

	"cta-backtester/internal/daily"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// Generator produces reports for stored runs.
type Generator struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	dailyStore storage.DailyResultStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.RunStore,
	tradeStore storage.TradeStore,
	dailyStore storage.DailyResultStore,
) *Generator {
	return &Generator{
		runStore:   runStore,
		tradeStore: tradeStore,
		dailyStore: dailyStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads a run with its ledger and daily results and recomputes
// the daily statistics.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	trades, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	results, err := g.dailyStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load daily results: %w", err)
	}

	r := &Report{
		GeneratedAt: g.now(),
		Run:         run,
		Trades:      make([]domain.Trade, len(trades)),
		Daily:       make([]domain.DailyResult, len(results)),
	}
	for i, t := range trades {
		r.Trades[i] = *t
	}
	for i, d := range results {
		r.Daily[i] = *d
	}

	if len(r.Daily) > 0 {
		stats, err := daily.Statistics(r.Daily, run.Capital)
		if err != nil {
			return nil, fmt.Errorf("daily statistics: %w", err)
		}
		r.Stats = stats
	}
	return r, nil
}
