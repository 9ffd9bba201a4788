package memory

import (
	"context"
	"sync"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Trade // keyed by run_id, ledger order
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string][]*domain.Trade),
	}
}

// InsertBulk adds a run's trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, runID string, trades []*domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{}, len(s.data[runID])+len(trades))
	for _, t := range s.data[runID] {
		existing[t.TradeID] = struct{}{}
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := existing[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		existing[t.TradeID] = struct{}{}
	}

	for _, t := range trades {
		tradeCopy := *t
		s.data[runID] = append(s.data[runID], &tradeCopy)
	}

	return nil
}

// GetByRunID retrieves a run's trades in ledger order.
func (s *TradeStore) GetByRunID(_ context.Context, runID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, len(s.data[runID]))
	for _, t := range s.data[runID] {
		tradeCopy := *t
		result = append(result, &tradeCopy)
	}

	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
