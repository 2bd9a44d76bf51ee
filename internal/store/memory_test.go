package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/stockquest/internal/model"
)

func tx(id string, side model.Side, at time.Time) model.Transaction {
	return model.Transaction{
		ID:        id,
		Side:      side,
		Symbol:    "AAPL",
		Quantity:  2,
		Price:     decimal.RequireFromString("178.5"),
		Total:     decimal.RequireFromString("357"),
		Timestamp: at,
	}
}

// testJournal exercises the Journal contract against any implementation.
func testJournal(t *testing.T, j Journal, session string) {
	t.Helper()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	empty, err := j.List(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, j.Append(ctx, session, tx("11111111-1111-1111-1111-111111111111", model.SideBuy, t0)))
	require.NoError(t, j.Append(ctx, session, tx("22222222-2222-2222-2222-222222222222", model.SideSell, t0.Add(time.Second))))

	got, err := j.List(ctx, session)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.SideSell, got[0].Side, "newest first")
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", got[1].ID)
	assert.True(t, got[1].Total.Equal(decimal.RequireFromString("357")))
	assert.True(t, got[1].Timestamp.Equal(t0))

	// Same timestamp: insertion order wins, not id order.
	require.NoError(t, j.Append(ctx, session, tx("00000000-0000-0000-0000-000000000000", model.SideBuy, t0.Add(time.Second))))
	got, err = j.List(ctx, session)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", got[0].ID)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", got[1].ID)
}

func TestMemoryStore_Journal(t *testing.T) {
	testJournal(t, NewMemoryStore(), "session-a")
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, ms.Append(ctx, "a", tx("1", model.SideBuy, time.Now())))

	other, err := ms.List(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, other)
}
