package postgres

import (
	"context"
	"fmt"
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk adds a run's trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []*domain.Trade) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_trades", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var seq int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM trades WHERE run_id = $1`, runID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next trade seq: %w", err)
	}

	query := `
		INSERT INTO trades (
			run_id, seq, trade_id, order_id, symbol, direction, "offset",
			price, volume, trade_time, trading_day
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for i, t := range trades {
		_, err := tx.Exec(ctx, query,
			runID, seq+i, t.TradeID, t.OrderID, t.Symbol, string(t.Direction), string(t.Offset),
			t.Price, t.Volume, t.Time.UTC(), domain.DateOf(tradingDay(t)),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run's trades in ledger order.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) (_ []*domain.Trade, err error) {
	defer func(start time.Time) { observe("get_trades", start, err) }(time.Now())

	query := `
		SELECT trade_id, order_id, symbol, direction, "offset",
			price, volume, trade_time, trading_day
		FROM trades
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var (
			t                 domain.Trade
			direction, offset string
		)
		err := rows.Scan(
			&t.TradeID, &t.OrderID, &t.Symbol, &direction, &offset,
			&t.Price, &t.Volume, &t.Time, &t.TradingDay,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Direction = domain.Direction(direction)
		t.Offset = domain.Offset(offset)
		t.Time = t.Time.UTC()
		t.TradingDay = domain.DateOf(t.TradingDay)
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

func tradingDay(t *domain.Trade) time.Time {
	if t.TradingDay.IsZero() {
		return t.Time
	}
	return t.TradingDay
}
