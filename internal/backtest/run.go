package backtest

import (
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/idhash"
	"cta-backtester/internal/replay"
)

// NewRun creates a pending run record for the given settings and strategy
// configuration.
func NewRun(runID string, settings Settings, strategyName string, params map[string]float64, now time.Time) *domain.Run {
	p := make(map[string]float64, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &domain.Run{
		RunID:     runID,
		Strategy:  strategyName,
		Params:    p,
		Symbol:    settings.Symbol,
		Mode:      settings.Mode,
		StartDate: settings.StartDate,
		EndDate:   settings.EndDate,
		InitDays:  settings.InitDays,
		Capital:   settings.Capital,
		Slippage:  settings.Slippage,
		Rate:      settings.Rate,
		Size:      settings.Size,
		PriceTick: settings.PriceTick,
		Status:    domain.RunStatusPending,
		CreatedAt: now,
	}
}

// SettingsFromRun rebuilds the settings a run was executed with.
func SettingsFromRun(run *domain.Run) Settings {
	return Settings{
		Symbol:    run.Symbol,
		Mode:      run.Mode,
		StartDate: run.StartDate,
		EndDate:   run.EndDate,
		InitDays:  run.InitDays,
		Capital:   run.Capital,
		Slippage:  run.Slippage,
		Rate:      run.Rate,
		Size:      run.Size,
		PriceTick: run.PriceTick,
	}
}

// Fingerprint identifies a run by its settings, strategy configuration and
// the exact dataset replayed. Equal fingerprints must produce equal ledgers.
func Fingerprint(settings Settings, strategyID string, params map[string]float64, ds *replay.Dataset) string {
	points := make([]domain.MarketPoint, 0, ds.Len())
	points = append(points, ds.Warmup...)
	points = append(points, ds.Active...)

	return idhash.ComputeRunFingerprint(idhash.RunInput{
		StrategyID:  strategyID,
		Params:      params,
		Symbol:      settings.Symbol,
		Mode:        settings.Mode,
		Start:       settings.StartDate,
		End:         settings.EndDate,
		InitDays:    settings.InitDays,
		Capital:     settings.Capital,
		Slippage:    settings.Slippage,
		Rate:        settings.Rate,
		Size:        settings.Size,
		PriceTick:   settings.PriceTick,
		DatasetHash: idhash.ComputeDatasetHash(points),
	})
}
