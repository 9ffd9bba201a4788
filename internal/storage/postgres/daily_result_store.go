package postgres

import (
	"context"
	"fmt"
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// DailyResultStore implements storage.DailyResultStore using PostgreSQL.
type DailyResultStore struct {
	pool *Pool
}

// NewDailyResultStore creates a new DailyResultStore.
func NewDailyResultStore(pool *Pool) *DailyResultStore {
	return &DailyResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyResultStore = (*DailyResultStore)(nil)

// InsertBulk adds a run's daily results atomically. Fails entire batch on duplicate (run_id, date).
func (s *DailyResultStore) InsertBulk(ctx context.Context, runID string, results []*domain.DailyResult) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_daily_results", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_results (
			run_id, date, close_price, previous_close, trade_count,
			open_position, close_position, turnover, commission, slippage,
			trading_pnl, position_pnl, total_pnl, net_pnl
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, r := range results {
		_, err := tx.Exec(ctx, query,
			runID, domain.DateOf(r.Date), r.ClosePrice, r.PreviousClose, r.TradeCount,
			r.OpenPosition, r.ClosePosition, r.Turnover, r.Commission, r.Slippage,
			r.TradingPnl, r.PositionPnl, r.TotalPnl, r.NetPnl,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert daily result in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run's daily results ordered by date ASC.
func (s *DailyResultStore) GetByRunID(ctx context.Context, runID string) (_ []*domain.DailyResult, err error) {
	defer func(start time.Time) { observe("get_daily_results", start, err) }(time.Now())

	query := `
		SELECT date, close_price, previous_close, trade_count,
			open_position, close_position, turnover, commission, slippage,
			trading_pnl, position_pnl, total_pnl, net_pnl
		FROM daily_results
		WHERE run_id = $1
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get daily results by run id: %w", err)
	}
	defer rows.Close()

	var results []*domain.DailyResult
	for rows.Next() {
		var r domain.DailyResult
		err := rows.Scan(
			&r.Date, &r.ClosePrice, &r.PreviousClose, &r.TradeCount,
			&r.OpenPosition, &r.ClosePosition, &r.Turnover, &r.Commission, &r.Slippage,
			&r.TradingPnl, &r.PositionPnl, &r.TotalPnl, &r.NetPnl,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily result row: %w", err)
		}
		r.Date = domain.DateOf(r.Date)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily result rows: %w", err)
	}
	return results, nil
}
