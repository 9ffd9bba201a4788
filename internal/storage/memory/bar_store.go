package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by (symbol, end_time)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.Bar),
	}
}

// seriesKey generates a unique key for a point in a symbol's series.
func seriesKey(symbol string, t time.Time) string {
	return fmt.Sprintf("%s|%d", symbol, t.UnixNano())
}

// inWindow reports whether t lies in [start, end); a zero end is unbounded.
func inWindow(t, start, end time.Time) bool {
	if t.Before(start) {
		return false
	}
	return end.IsZero() || t.Before(end)
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.EndTime.IsZero() {
			return storage.ErrInvalidInput
		}
		key := seriesKey(b.Symbol, b.EndTime)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		barCopy := *b
		s.data[seriesKey(b.Symbol, b.EndTime)] = &barCopy
	}

	return nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end), ordered by end_time ASC.
func (s *BarStore) GetByTimeRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data {
		if b.Symbol == symbol && inWindow(b.EndTime, start, end) {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EndTime.Before(result[j].EndTime)
	})

	return result, nil
}

// GetTimeRange returns the first and last end_time stored for a symbol.
func (s *BarStore) GetTimeRange(_ context.Context, symbol string) (first, last time.Time, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	for _, b := range s.data {
		if b.Symbol != symbol {
			continue
		}
		if !found || b.EndTime.Before(first) {
			first = b.EndTime
		}
		if !found || b.EndTime.After(last) {
			last = b.EndTime
		}
		found = true
	}
	if !found {
		return time.Time{}, time.Time{}, storage.ErrNotFound
	}
	return first, last, nil
}

var _ storage.BarStore = (*BarStore)(nil)
