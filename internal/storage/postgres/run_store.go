package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, strategy, params, symbol, mode,
	start_date, end_date, init_days,
	capital, slippage, rate, size, price_tick,
	status, error, fingerprint, created_at, finished_at,
	point_count, trade_count, result_count,
	net_pnl, max_drawdown, winning_rate, profit_loss_ratio, sharpe_ratio
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.Run) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_run", start, err) }(time.Now())

	query := `
		INSERT INTO backtest_runs (` + runColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21,
			$22, $23, $24, $25, $26
		)
	`

	_, err = s.pool.Exec(ctx, query, runArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update replaces a run's status and summary. Returns ErrNotFound if run_id does not exist.
func (s *RunStore) Update(ctx context.Context, r *domain.Run) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("update_run", start, err) }(time.Now())

	query := `
		UPDATE backtest_runs SET
			status = $2, error = $3, fingerprint = $4, finished_at = $5,
			point_count = $6, trade_count = $7, result_count = $8,
			net_pnl = $9, max_drawdown = $10, winning_rate = $11,
			profit_loss_ratio = $12, sharpe_ratio = $13
		WHERE run_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		r.RunID, string(r.Status), r.Error, r.Fingerprint, nullTime(r.FinishedAt),
		r.PointCount, r.TradeCount, r.ResultCount,
		r.NetPnl, r.MaxDrawdown, r.WinningRate,
		r.ProfitLossRatio, r.SharpeRatio,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (_ *domain.Run, err error) {
	defer func(start time.Time) { observe("get_run", start, err) }(time.Now())

	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// List retrieves the most recent runs, newest first. limit <= 0 means no limit.
func (s *RunStore) List(ctx context.Context, limit int) (_ []*domain.Run, err error) {
	defer func(start time.Time) { observe("list_runs", start, err) }(time.Now())

	query := `SELECT ` + runColumns + ` FROM backtest_runs ORDER BY created_at DESC, run_id ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func runArgs(r *domain.Run) []any {
	params := r.Params
	if params == nil {
		params = map[string]float64{}
	}
	return []any{
		r.RunID, r.Strategy, params, r.Symbol, string(r.Mode),
		r.StartDate.UTC(), nullTime(r.EndDate), r.InitDays,
		r.Capital, r.Slippage, r.Rate, r.Size, r.PriceTick,
		string(r.Status), r.Error, r.Fingerprint, r.CreatedAt.UTC(), nullTime(r.FinishedAt),
		r.PointCount, r.TradeCount, r.ResultCount,
		r.NetPnl, r.MaxDrawdown, r.WinningRate, r.ProfitLossRatio, r.SharpeRatio,
	}
}

// scanRun scans a single row into a Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		r                 domain.Run
		mode, status      string
		endDate, finished *time.Time
	)

	err := row.Scan(
		&r.RunID, &r.Strategy, &r.Params, &r.Symbol, &mode,
		&r.StartDate, &endDate, &r.InitDays,
		&r.Capital, &r.Slippage, &r.Rate, &r.Size, &r.PriceTick,
		&status, &r.Error, &r.Fingerprint, &r.CreatedAt, &finished,
		&r.PointCount, &r.TradeCount, &r.ResultCount,
		&r.NetPnl, &r.MaxDrawdown, &r.WinningRate, &r.ProfitLossRatio, &r.SharpeRatio,
	)
	if err != nil {
		return nil, err
	}

	r.Mode = domain.Mode(mode)
	r.Status = domain.RunStatus(status)
	r.StartDate = r.StartDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.EndDate = fromNullTime(endDate)
	r.FinishedAt = fromNullTime(finished)
	return &r, nil
}
