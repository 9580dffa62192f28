package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

func newTestStore(t *testing.T) *LedgerStore {
	t.Helper()
	store, err := NewLedgerStore(filepath.Join(t.TempDir(), "investors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	registry, err := store.LoadRegistry(ctx)
	require.NoError(t, err)
	assert.Empty(t, registry)

	alice := domain.Investor{
		Name:          "alice",
		CreationDate:  time.Date(2026, 1, 15, 0, 0, 0, 0, domain.NYLocation()),
		FeePercent:    0.20,
		HighWatermark: 10000,
		Status:        domain.InvestorActive,
	}
	require.NoError(t, store.SaveInvestor(ctx, alice))
	require.NoError(t, store.SaveInvestor(ctx, domain.Investor{
		Name: "bob", IsFeeReceiver: true, Status: domain.InvestorActive,
	}))

	registry, err = store.LoadRegistry(ctx)
	require.NoError(t, err)
	require.Len(t, registry, 2)
	assert.Equal(t, "alice", registry[0].Name)
	assert.Equal(t, 0.20, registry[0].FeePercent)
	assert.Equal(t, alice.CreationDate, registry[0].CreationDate)
	assert.True(t, registry[0].LastFeeDate.IsZero())
	assert.True(t, registry[1].IsFeeReceiver)

	// Upsert: el HWM actualizado sobrevive al reload.
	alice.HighWatermark = 12000
	require.NoError(t, store.SaveInvestor(ctx, alice))
	registry, err = store.LoadRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, registry[0].HighWatermark)
}

func TestOperationsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := domain.NowNY()

	op := domain.Operation{
		ID:        uuid.New().String(),
		Investor:  "alice",
		Date:      domain.DateNY(now),
		Timestamp: now,
		Kind:      domain.OpDeposit,
		Bucket:    domain.BucketLow,
		Amount:    4500,
		Status:    domain.OpPending,
	}
	require.NoError(t, store.AppendOperation(ctx, op))

	ops, err := store.Operations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OpPending, ops[0].Status)
	assert.Equal(t, 4500.0, ops[0].Amount)
	assert.Equal(t, domain.DateNY(now), ops[0].Date)

	require.NoError(t, store.CompleteOperation(ctx, op.ID, 4500))

	ops, err = store.Operations(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.OpCompleted, ops[0].Status)
	assert.Equal(t, 4500.0, ops[0].BalanceAfter)

	// pending → completed es one-way: una segunda completion falla.
	err = store.CompleteOperation(ctx, op.ID, 9999)
	assert.Error(t, err)

	err = store.CompleteOperation(ctx, "no-such-id", 0)
	assert.Error(t, err)
}

func TestTradesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := domain.NowNY()

	for i, ticker := range []string{"AAA", "BBB", "AAA"} {
		require.NoError(t, store.AppendTrade(ctx, domain.TradeLot{
			Investor:         "alice",
			Date:             domain.DateNY(now),
			Timestamp:        now,
			Bucket:           domain.BucketLow,
			Side:             domain.SideBuy,
			Ticker:           ticker,
			Shares:           float64(i + 1),
			Price:            100,
			Amount:           float64(i+1) * 100,
			CumulativeShares: float64(i + 1),
		}))
	}

	lots, err := store.Trades(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, lots, 3)
	assert.Equal(t, []string{"AAA", "BBB", "AAA"},
		[]string{lots[0].Ticker, lots[1].Ticker, lots[2].Ticker})
	assert.Equal(t, 3.0, lots[2].CumulativeShares)

	lots, err = store.Trades(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestAppendSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	snap := domain.BalanceSnapshot{
		Investor:       "alice",
		Date:           domain.DateNY(domain.NowNY()),
		Bucket:         domain.BucketHigh,
		Cash:           1000,
		PositionsValue: 2000,
		RealizedPnL:    50,
		UnrealizedPnL:  -25,
	}
	require.NoError(t, store.AppendSnapshot(ctx, snap))
	// Mismo día otra vez: append-only, no upsert.
	require.NoError(t, store.AppendSnapshot(ctx, snap))
}
