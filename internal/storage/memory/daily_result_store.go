package memory

import (
	"context"
	"sort"
	"sync"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// DailyResultStore is an in-memory implementation of storage.DailyResultStore.
type DailyResultStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.DailyResult // keyed by run_id, then date
}

// NewDailyResultStore creates a new in-memory daily result store.
func NewDailyResultStore() *DailyResultStore {
	return &DailyResultStore{
		data: make(map[string]map[int64]*domain.DailyResult),
	}
}

// InsertBulk adds a run's daily results atomically. Fails entire batch on any duplicate.
func (s *DailyResultStore) InsertBulk(_ context.Context, runID string, results []*domain.DailyResult) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run := s.data[runID]
	batchKeys := make(map[int64]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := domain.DateOf(r.Date).Unix()
		if _, exists := run[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	if run == nil {
		run = make(map[int64]*domain.DailyResult, len(results))
		s.data[runID] = run
	}
	for _, r := range results {
		resultCopy := *r
		resultCopy.Trades = nil
		run[domain.DateOf(r.Date).Unix()] = &resultCopy
	}

	return nil
}

// GetByRunID retrieves a run's daily results ordered by date ASC.
func (s *DailyResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.DailyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DailyResult, 0, len(s.data[runID]))
	for _, r := range s.data[runID] {
		resultCopy := *r
		result = append(result, &resultCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

var _ storage.DailyResultStore = (*DailyResultStore)(nil)
