package clickhouse

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

var t0 = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func testBar(symbol string, minute int, close string) *domain.Bar {
	c := decimal.RequireFromString(close)
	return &domain.Bar{
		Symbol:  symbol,
		Open:    c,
		High:    c.Add(decimal.NewFromInt(1)),
		Low:     c.Sub(decimal.NewFromInt(1)),
		Close:   c,
		Volume:  decimal.NewFromInt(10),
		EndTime: t0.Add(time.Duration(minute) * time.Minute),
	}
}

func testTick(symbol string, ms int, last string) *domain.Tick {
	p := decimal.RequireFromString(last)
	return &domain.Tick{
		Symbol:    symbol,
		Datetime:  t0.Add(time.Duration(ms) * time.Millisecond),
		LastPrice: p,
		AskPrice1: p.Add(decimal.RequireFromString("0.5")),
		BidPrice1: p.Sub(decimal.RequireFromString("0.5")),
		Volume:    decimal.NewFromInt(1),
	}
}

func TestBarStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	bars := []*domain.Bar{
		testBar("IF", 2, "102.25"),
		testBar("IF", 0, "100"),
		testBar("IF", 1, "101.5"),
		testBar("IH", 0, "50"),
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetByTimeRange(ctx, "IF", t0, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Close.Equal(decimal.NewFromInt(100)))
	assert.True(t, got[1].Close.Equal(decimal.RequireFromString("101.5")))
	assert.Equal(t, domain.DateOf(t0), got[0].TradingDay)

	all, err := store.GetByTimeRange(ctx, "IF", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	first, last, err := store.GetTimeRange(ctx, "IF")
	require.NoError(t, err)
	assert.Equal(t, t0, first)
	assert.Equal(t, t0.Add(2*time.Minute), last)
}

func TestBarStore_Duplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBarStore(conn)

	err := store.InsertBulk(ctx, []*domain.Bar{testBar("IF", 0, "1"), testBar("IF", 0, "2")})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "intra-batch duplicate: %v", err)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Bar{testBar("IF", 0, "1")}))
	err = store.InsertBulk(ctx, []*domain.Bar{testBar("IF", 1, "1"), testBar("IF", 0, "2")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, _, err = store.GetTimeRange(ctx, "IH")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTickStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTickStore(conn)

	ticks := []*domain.Tick{
		testTick("rb", 500, "3501"),
		testTick("rb", 0, "3500"),
	}
	require.NoError(t, store.InsertBulk(ctx, ticks))

	got, err := store.GetByTimeRange(ctx, "rb", t0, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].LastPrice.Equal(decimal.NewFromInt(3500)))
	assert.True(t, got[1].AskPrice1.Equal(decimal.RequireFromString("3501.5")))
	assert.Equal(t, 500*time.Millisecond, got[1].Datetime.Sub(got[0].Datetime))

	err = store.InsertBulk(ctx, []*domain.Tick{testTick("rb", 500, "1")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://user:pw@localhost/history")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9000"}, opts.Addr)
	assert.Equal(t, "user", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "history", opts.Auth.Database)

	_, err = parseDSN("postgres://localhost/x")
	assert.Error(t, err)
}
