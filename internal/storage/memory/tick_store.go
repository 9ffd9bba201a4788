package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Tick // keyed by (symbol, datetime)
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{
		data: make(map[string]*domain.Tick),
	}
}

// InsertBulk adds multiple ticks. Fails entire batch on duplicate.
func (s *TickStore) InsertBulk(_ context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.Symbol == "" || t.Datetime.IsZero() {
			return storage.ErrInvalidInput
		}
		key := seriesKey(t.Symbol, t.Datetime)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, t := range ticks {
		tickCopy := *t
		s.data[seriesKey(t.Symbol, t.Datetime)] = &tickCopy
	}

	return nil
}

// GetByTimeRange retrieves ticks for a symbol within [start, end), ordered by datetime ASC.
func (s *TickStore) GetByTimeRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Tick
	for _, t := range s.data {
		if t.Symbol == symbol && inWindow(t.Datetime, start, end) {
			tickCopy := *t
			result = append(result, &tickCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Datetime.Before(result[j].Datetime)
	})

	return result, nil
}

// GetTimeRange returns the first and last datetime stored for a symbol.
func (s *TickStore) GetTimeRange(_ context.Context, symbol string) (first, last time.Time, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	for _, t := range s.data {
		if t.Symbol != symbol {
			continue
		}
		if !found || t.Datetime.Before(first) {
			first = t.Datetime
		}
		if !found || t.Datetime.After(last) {
			last = t.Datetime
		}
		found = true
	}
	if !found {
		return time.Time{}, time.Time{}, storage.ErrNotFound
	}
	return first, last, nil
}

var _ storage.TickStore = (*TickStore)(nil)
