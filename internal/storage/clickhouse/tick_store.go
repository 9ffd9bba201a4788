package clickhouse

import (
	"context"
	"fmt"
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk adds multiple ticks. Fails entire batch on duplicate (symbol, datetime).
func (s *TickStore) InsertBulk(ctx context.Context, ticks []*domain.Tick) (err error) {
	if len(ticks) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_ticks", start, err) }(time.Now())

	// Check for intra-batch duplicates
	type key struct {
		symbol string
		t      int64
	}
	seen := make(map[key]struct{}, len(ticks))
	for _, t := range ticks {
		k := key{t.Symbol, t.Datetime.UnixNano()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check the stored range.
	if err := s.checkExisting(ctx, ticks); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ticks (
			symbol, datetime, trading_day, last_price, ask_price_1, bid_price_1, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(
			t.Symbol, t.Datetime.UTC(), t.Day(),
			t.LastPrice, t.AskPrice1, t.BidPrice1, t.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *TickStore) checkExisting(ctx context.Context, ticks []*domain.Tick) error {
	bySymbol := make(map[string]map[time.Time]struct{})
	for _, p := range ticks {
		if bySymbol[p.Symbol] == nil {
			bySymbol[p.Symbol] = make(map[time.Time]struct{})
		}
		bySymbol[p.Symbol][p.Time().UTC()] = struct{}{}
	}
	for symbol, times := range bySymbol {
		lo, hi := bounds(times)
		rows, err := s.conn.Query(ctx, `
			SELECT datetime FROM ticks
			WHERE symbol = ? AND datetime >= ? AND datetime <= ?
		`, symbol, lo, hi)
		if err != nil {
			return fmt.Errorf("check existing ticks: %w", err)
		}
		dup, err := containsAny(rows, times)
		rows.Close()
		if err != nil {
			return fmt.Errorf("check existing ticks: %w", err)
		}
		if dup {
			return storage.ErrDuplicateKey
		}
	}
	return nil
}

// GetByTimeRange retrieves ticks within [start, end). A zero end means unbounded.
func (s *TickStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) (_ []*domain.Tick, err error) {
	defer func(start time.Time) { observe("select_ticks", start, err) }(time.Now())

	query := `
		SELECT symbol, datetime, trading_day, last_price, ask_price_1, bid_price_1, volume
		FROM ticks FINAL
		WHERE symbol = ? AND datetime >= ?
	`
	args := []any{symbol, start.UTC()}
	if !end.IsZero() {
		query += ` AND datetime < ?`
		args = append(args, end.UTC())
	}
	query += ` ORDER BY datetime ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ticks by time range: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// GetTimeRange returns the first and last datetime stored for a symbol.
func (s *TickStore) GetTimeRange(ctx context.Context, symbol string) (first, last time.Time, err error) {
	var count uint64
	err = s.conn.QueryRow(ctx, `
		SELECT count(), min(datetime), max(datetime)
		FROM ticks
		WHERE symbol = ?
	`, symbol).Scan(&count, &first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("query tick time range: %w", err)
	}
	if count == 0 {
		return time.Time{}, time.Time{}, storage.ErrNotFound
	}
	return first.UTC(), last.UTC(), nil
}

func scanTicks(rows chRows) ([]*domain.Tick, error) {
	var ticks []*domain.Tick

	for rows.Next() {
		var t domain.Tick
		err := rows.Scan(
			&t.Symbol, &t.Datetime, &t.TradingDay,
			&t.LastPrice, &t.AskPrice1, &t.BidPrice1, &t.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		t.Datetime = t.Datetime.UTC()
		t.TradingDay = domain.DateOf(t.TradingDay)
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}
	return ticks, nil
}
