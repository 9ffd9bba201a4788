package storage

import (
	"context"
	"time"

	"cta-backtester/internal/domain"
)

// BarStore provides access to bar history.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, end_time).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetByTimeRange retrieves bars for a symbol within [start, end), ordered by
	// end_time ASC. A zero end means unbounded.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error)

	// GetTimeRange returns the first and last end_time stored for a symbol.
	// Returns ErrNotFound if the symbol has no bars.
	GetTimeRange(ctx context.Context, symbol string) (first, last time.Time, err error)
}

// TickStore provides access to tick history.
type TickStore interface {
	// InsertBulk adds multiple ticks. Fails entire batch on duplicate (symbol, datetime).
	InsertBulk(ctx context.Context, ticks []*domain.Tick) error

	// GetByTimeRange retrieves ticks for a symbol within [start, end), ordered by
	// datetime ASC. A zero end means unbounded.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.Tick, error)

	// GetTimeRange returns the first and last datetime stored for a symbol.
	// Returns ErrNotFound if the symbol has no ticks.
	GetTimeRange(ctx context.Context, symbol string) (first, last time.Time, err error)
}

// TradeStore provides access to the per-run trade ledger.
type TradeStore interface {
	// InsertBulk adds a run's trades atomically. Fails entire batch on duplicate (run_id, trade_id).
	InsertBulk(ctx context.Context, runID string, trades []*domain.Trade) error

	// GetByRunID retrieves a run's trades in ledger order.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// DailyResultStore provides access to per-run daily results.
type DailyResultStore interface {
	// InsertBulk adds a run's daily results atomically. Fails entire batch on duplicate (run_id, date).
	InsertBulk(ctx context.Context, runID string, results []*domain.DailyResult) error

	// GetByRunID retrieves a run's daily results ordered by date ASC.
	// Trades are not attached.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DailyResult, error)
}

// RunStore provides access to run summaries.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.Run) error

	// Update replaces a run's status and summary. Returns ErrNotFound if run_id does not exist.
	Update(ctx context.Context, run *domain.Run) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.Run, error)

	// List retrieves the most recent runs, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}
