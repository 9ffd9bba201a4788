package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/storage"
)

func TestRunStore_Lifecycle(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.Run{
		RunID:     "r1",
		Strategy:  "DUAL_MA",
		Params:    map[string]float64{"fast_window": 5},
		Symbol:    "IF",
		Mode:      domain.ModeBar,
		Capital:   decimal.NewFromInt(1_000_000),
		Status:    domain.RunStatusPending,
		CreatedAt: t0,
	}
	require.NoError(t, store.Insert(ctx, run))
	assert.ErrorIs(t, store.Insert(ctx, run), storage.ErrDuplicateKey)

	// Caller mutation must not leak into the store.
	run.Params["fast_window"] = 99

	got, err := store.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Params["fast_window"])

	got.Status = domain.RunStatusCompleted
	got.NetPnl = decimal.NewFromInt(42)
	got.CreatedAt = time.Time{}
	require.NoError(t, store.Update(ctx, got))

	updated, err := store.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, updated.Status)
	assert.True(t, updated.NetPnl.Equal(decimal.NewFromInt(42)))
	assert.Equal(t, t0, updated.CreatedAt, "CreatedAt is immutable")
}

func TestRunStore_UpdateMissing(t *testing.T) {
	store := NewRunStore()
	err := store.Update(context.Background(), &domain.Run{RunID: "nope"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = store.GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, &domain.Run{RunID: id, CreatedAt: t0.Add(time.Duration(i) * time.Hour)}))
	}

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "a", runs[2].RunID)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
