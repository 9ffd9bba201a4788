package clickhouse

import (
	"context"
	"fmt"
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, end_time).
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_bars", start, err) }(time.Now())

	// Check for intra-batch duplicates
	type key struct {
		symbol string
		t      int64
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		k := key{b.Symbol, b.EndTime.UnixNano()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check the stored range.
	if err := s.checkExisting(ctx, bars); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, end_time, trading_day, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.EndTime.UTC(), b.Day(),
			b.Open, b.High, b.Low, b.Close, b.Volume,
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

func (s *BarStore) checkExisting(ctx context.Context, bars []*domain.Bar) error {
	bySymbol := make(map[string]map[time.Time]struct{})
	for _, p := range bars {
		if bySymbol[p.Symbol] == nil {
			bySymbol[p.Symbol] = make(map[time.Time]struct{})
		}
		bySymbol[p.Symbol][p.Time().UTC()] = struct{}{}
	}
	for symbol, times := range bySymbol {
		lo, hi := bounds(times)
		rows, err := s.conn.Query(ctx, `
			SELECT end_time FROM bars
			WHERE symbol = ? AND end_time >= ? AND end_time <= ?
		`, symbol, lo, hi)
		if err != nil {
			return fmt.Errorf("check existing bars: %w", err)
		}
		dup, err := containsAny(rows, times)
		rows.Close()
		if err != nil {
			return fmt.Errorf("check existing bars: %w", err)
		}
		if dup {
			return storage.ErrDuplicateKey
		}
	}
	return nil
}

// GetByTimeRange retrieves bars within [start, end). A zero end means unbounded.
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) (_ []*domain.Bar, err error) {
	defer func(start time.Time) { observe("select_bars", start, err) }(time.Now())

	query := `
		SELECT symbol, end_time, trading_day, open, high, low, close, volume
		FROM bars FINAL
		WHERE symbol = ? AND end_time >= ?
	`
	args := []any{symbol, start.UTC()}
	if !end.IsZero() {
		query += ` AND end_time < ?`
		args = append(args, end.UTC())
	}
	query += ` ORDER BY end_time ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetTimeRange returns the first and last end_time stored for a symbol.
func (s *BarStore) GetTimeRange(ctx context.Context, symbol string) (first, last time.Time, err error) {
	var count uint64
	err = s.conn.QueryRow(ctx, `
		SELECT count(), min(end_time), max(end_time)
		FROM bars
		WHERE symbol = ?
	`, symbol).Scan(&count, &first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("query bar time range: %w", err)
	}
	if count == 0 {
		return time.Time{}, time.Time{}, storage.ErrNotFound
	}
	return first.UTC(), last.UTC(), nil
}

func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar
		err := rows.Scan(
			&b.Symbol, &b.EndTime, &b.TradingDay,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.EndTime = b.EndTime.UTC()
		b.TradingDay = domain.DateOf(b.TradingDay)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}
	return bars, nil
}
