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

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func testBar(symbol string, minute int, close string) *domain.Bar {
	c := decimal.RequireFromString(close)
	return &domain.Bar{
		Symbol:  symbol,
		Open:    c,
		High:    c,
		Low:     c,
		Close:   c,
		EndTime: t0.Add(time.Duration(minute) * time.Minute),
	}
}

func TestBarStore_InsertBulkAndGet(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		testBar("IF", 2, "102"),
		testBar("IF", 0, "100"),
		testBar("IF", 1, "101"),
		testBar("IH", 0, "50"),
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "IF", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 bars, got %d", len(result))
	}
	for i, want := range []string{"100", "101", "102"} {
		if !result[i].Close.Equal(decimal.RequireFromString(want)) {
			t.Errorf("bar %d: expected close %s, got %s", i, want, result[i].Close)
		}
	}
}

func TestBarStore_HalfOpenRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	var bars []*domain.Bar
	for i := 0; i < 5; i++ {
		bars = append(bars, testBar("IF", i, "100"))
	}
	_ = store.InsertBulk(ctx, bars)

	result, err := store.GetByTimeRange(ctx, "IF", t0.Add(time.Minute), t0.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 bars in [1m, 3m), got %d", len(result))
	}
	if !result[0].EndTime.Equal(t0.Add(time.Minute)) {
		t.Errorf("Expected first bar at start bound, got %s", result[0].EndTime)
	}
}

func TestBarStore_DuplicateKey(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.Bar{testBar("IF", 0, "100")}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.Bar{testBar("IF", 1, "101"), testBar("IF", 0, "100")})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify the batch was rejected as a whole
	result, _ := store.GetByTimeRange(ctx, "IF", time.Time{}, time.Time{})
	if len(result) != 1 {
		t.Errorf("Expected 1 bar after rejected batch, got %d", len(result))
	}
}

func TestBarStore_InvalidInput(t *testing.T) {
	store := NewBarStore()
	err := store.InsertBulk(context.Background(), []*domain.Bar{{Symbol: "IF"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestBarStore_GetTimeRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	if _, _, err := store.GetTimeRange(ctx, "IF"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty store, got %v", err)
	}

	_ = store.InsertBulk(ctx, []*domain.Bar{testBar("IF", 5, "1"), testBar("IF", 1, "1"), testBar("IF", 3, "1")})
	first, last, err := store.GetTimeRange(ctx, "IF")
	if err != nil {
		t.Fatalf("GetTimeRange failed: %v", err)
	}
	if !first.Equal(t0.Add(time.Minute)) || !last.Equal(t0.Add(5*time.Minute)) {
		t.Errorf("Unexpected range %s - %s", first, last)
	}
}

func TestBarStore_ReturnsCopies(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	b := testBar("IF", 0, "100")
	_ = store.InsertBulk(ctx, []*domain.Bar{b})
	b.Close = decimal.NewFromInt(1)

	result, _ := store.GetByTimeRange(ctx, "IF", time.Time{}, time.Time{})
	result[0].Close = decimal.NewFromInt(2)

	again, _ := store.GetByTimeRange(ctx, "IF", time.Time{}, time.Time{})
	if !again[0].Close.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Store data was mutated through a caller pointer: %s", again[0].Close)
	}
}
