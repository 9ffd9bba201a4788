package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

func testTick(symbol string, second int, last string) *domain.Tick {
	p := decimal.RequireFromString(last)
	return &domain.Tick{
		Symbol:    symbol,
		Datetime:  t0.Add(time.Duration(second) * time.Second),
		LastPrice: p,
		AskPrice1: p.Add(decimal.NewFromInt(1)),
		BidPrice1: p.Sub(decimal.NewFromInt(1)),
	}
}

func TestTickStore_InsertBulkAndGet(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	ticks := []*domain.Tick{testTick("IF", 3, "103"), testTick("IF", 1, "101"), testTick("IF", 2, "102")}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "IF", t0, t0.Add(3*time.Second))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(result))
	}
	if !result[0].LastPrice.Equal(decimal.NewFromInt(101)) {
		t.Errorf("Expected ticks ordered by time, got %s first", result[0].LastPrice)
	}
}

func TestTickStore_IntraBatchDuplicate(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Tick{testTick("IF", 1, "101"), testTick("IF", 1, "102")})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	result, _ := store.GetByTimeRange(ctx, "IF", time.Time{}, time.Time{})
	if len(result) != 0 {
		t.Errorf("Expected 0 ticks (rollback), got %d", len(result))
	}
}
