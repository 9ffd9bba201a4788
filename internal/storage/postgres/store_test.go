package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

var created = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createTestRun(runID string, at time.Time) *domain.Run {
	return &domain.Run{
		RunID:     runID,
		Strategy:  "DUAL_MA",
		Params:    map[string]float64{"fast_window": 5, "slow_window": 20},
		Symbol:    "IF",
		Mode:      domain.ModeBar,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		InitDays:  10,
		Capital:   d("1000000"),
		Slippage:  d("0.2"),
		Rate:      d("0.0001"),
		Size:      d("300"),
		PriceTick: d("0.2"),
		Status:    domain.RunStatusPending,
		CreatedAt: at,
	}
}

func TestRunStore_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := createTestRun("run-1", created)
	require.NoError(t, store.Insert(ctx, run))
	assert.ErrorIs(t, store.Insert(ctx, run), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "DUAL_MA", got.Strategy)
	assert.Equal(t, 20.0, got.Params["slow_window"])
	assert.True(t, got.Size.Equal(d("300")))
	assert.True(t, got.EndDate.IsZero())
	assert.True(t, got.FinishedAt.IsZero())
	assert.Equal(t, created, got.CreatedAt)

	run.Status = domain.RunStatusCompleted
	run.FinishedAt = created.Add(time.Minute)
	run.TradeCount = 4
	run.NetPnl = d("1234.5")
	run.SharpeRatio = 1.25
	run.Fingerprint = "abc"
	require.NoError(t, store.Update(ctx, run))

	got, err = store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, 4, got.TradeCount)
	assert.True(t, got.NetPnl.Equal(d("1234.5")))
	assert.Equal(t, 1.25, got.SharpeRatio)
	assert.Equal(t, created.Add(time.Minute), got.FinishedAt)

	assert.ErrorIs(t, store.Update(ctx, createTestRun("missing", created)), storage.ErrNotFound)
	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, createTestRun(id, created.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)

	runs, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestTradeStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewRunStore(pool).Insert(ctx, createTestRun("run-1", created)))
	store := NewTradeStore(pool)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{
		{TradeID: "2", OrderID: "1", Symbol: "IF", Direction: domain.DirectionLong, Offset: domain.OffsetOpen,
			Price: d("101"), Volume: d("1"), Time: day.Add(15 * time.Hour)},
		{TradeID: "1", OrderID: "2", Symbol: "IF", Direction: domain.DirectionShort, Offset: domain.OffsetClose,
			Price: d("107.5"), Volume: d("1"), Time: day.Add(39 * time.Hour), TradingDay: day.AddDate(0, 0, 1)},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", trades))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ledger order, not trade_id order.
	assert.Equal(t, "2", got[0].TradeID)
	assert.Equal(t, domain.DirectionShort, got[1].Direction)
	assert.True(t, got[1].Price.Equal(d("107.5")))
	assert.Equal(t, day, got[0].TradingDay)
	assert.Equal(t, day.AddDate(0, 0, 1), got[1].TradingDay)

	err = store.InsertBulk(ctx, "run-1", trades[:1])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	empty, err := store.GetByRunID(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDailyResultStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewRunStore(pool).Insert(ctx, createTestRun("run-1", created)))
	store := NewDailyResultStore(pool)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	results := []*domain.DailyResult{
		{Date: day.AddDate(0, 0, 1), ClosePrice: d("108"), PreviousClose: d("100"), TradeCount: 1,
			OpenPosition: d("0"), ClosePosition: d("1"), TradingPnl: d("7"), TotalPnl: d("7"), NetPnl: d("7")},
		{Date: day, ClosePrice: d("100"), NetPnl: d("0")},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", results))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day, got[0].Date)
	assert.True(t, got[1].NetPnl.Equal(d("7")))
	assert.Equal(t, 1, got[1].TradeCount)
	assert.Nil(t, got[1].Trades)

	assert.ErrorIs(t, store.InsertBulk(ctx, "run-1", results[1:]), storage.ErrDuplicateKey)
}
