package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

func testTrade(id string, dir domain.Direction) *domain.Trade {
	return &domain.Trade{
		TradeID:   id,
		OrderID:   id,
		Symbol:    "IF",
		Direction: dir,
		Offset:    domain.OffsetOpen,
		Price:     decimal.NewFromInt(100),
		Volume:    decimal.NewFromInt(1),
		Time:      t0,
	}
}

func TestTradeStore_LedgerOrderPerRun(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "r1", []*domain.Trade{testTrade("2", domain.DirectionLong), testTrade("10", domain.DirectionShort)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "r2", []*domain.Trade{testTrade("2", domain.DirectionLong)}); err != nil {
		t.Fatalf("Same trade ID in another run should be accepted: %v", err)
	}

	trades, err := store.GetByRunID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(trades) != 2 || trades[0].TradeID != "2" || trades[1].TradeID != "10" {
		t.Errorf("Expected ledger order [2 10], got %v", trades)
	}
}

func TestTradeStore_DuplicateInRun(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, "r1", []*domain.Trade{testTrade("1", domain.DirectionLong)})
	err := store.InsertBulk(ctx, "r1", []*domain.Trade{testTrade("2", domain.DirectionLong), testTrade("1", domain.DirectionLong)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	trades, _ := store.GetByRunID(ctx, "r1")
	if len(trades) != 1 {
		t.Errorf("Expected 1 trade after rejected batch, got %d", len(trades))
	}
}

func TestDailyResultStore_OrderedByDate(t *testing.T) {
	store := NewDailyResultStore()
	ctx := context.Background()

	day := func(n int) *domain.DailyResult {
		return &domain.DailyResult{
			Date:   t0.AddDate(0, 0, n),
			NetPnl: decimal.NewFromInt(int64(n)),
			Trades: []*domain.Trade{testTrade("x", domain.DirectionLong)},
		}
	}

	if err := store.InsertBulk(ctx, "r1", []*domain.DailyResult{day(2), day(0), day(1)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "r1", []*domain.DailyResult{day(1)}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	results, err := store.GetByRunID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if !r.NetPnl.Equal(decimal.NewFromInt(int64(i))) {
			t.Errorf("result %d out of order: %s", i, r.NetPnl)
		}
		if r.Trades != nil {
			t.Errorf("result %d: trades should not be stored", i)
		}
	}
}
