package strategy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/application/ledger"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// liveCloses cubre un ticker alcanzable por cada bucket del universo real.
var liveCloses = map[string][2]float64{
	"AAPL": {100, 120}, // low, +20%
	"MSFT": {200, 220}, // low, +10%
	"SPY":  {400, 420}, // medium, +5%
	"PLTR": {50, 62.5}, // high, +25%
}

func setupLive(t *testing.T, broker *fakeBroker, topN int) (*Live, *ledger.Ledger, *storage.LedgerStore) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewLedgerStore(filepath.Join(t.TempDir(), "investors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveInvestor(ctx, domain.Investor{
		Name: "alice", CreationDate: domain.DateNY(domain.NowNY()), Status: domain.InvestorActive,
	}))

	book, err := ledger.New(ctx, store)
	require.NoError(t, err)

	loader := testLoader(t, testHistory(liveCloses), []string{"AAPL", "MSFT", "SPY", "PLTR"})
	live := NewLive("live", broker, loader, book, nil, topN)
	live.exec = newTestExecutor(broker)
	return live, book, store
}

func TestLiveRebalanceDeploysPerBucket(t *testing.T) {
	ctx := context.Background()
	// Fill nunca observado: las compras se atribuyen por el price hint, con lo
	// que el valor total del ledger queda exactamente en los depósitos.
	broker := &fakeBroker{fillAfter: 1 << 30, account: ports.Account{Equity: 10000}}
	live, book, store := setupLive(t, broker, 2)
	live.exec.pollAttempts = 1

	_, err := book.Deposit(ctx, "alice", 10000, nil)
	require.NoError(t, err)

	require.NoError(t, live.Rebalance(ctx))

	// low abre AAPL y MSFT (2250 cada uno), medium SPY (3500), high PLTR (2000).
	bought := make(map[string]float64)
	for _, buy := range broker.buys {
		bought[buy.Symbol] = buy.Notional
	}
	assert.InDelta(t, 2250, bought["AAPL"], 1e-9)
	assert.InDelta(t, 2250, bought["MSFT"], 1e-9)
	assert.InDelta(t, 3500, bought["SPY"], 1e-9)
	assert.InDelta(t, 2000, bought["PLTR"], 1e-9)

	// Cada compra quedó atribuida en el ledger de alice.
	lots, err := store.Trades(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, lots, 4)

	// Los depósitos pending se completaron al inicio del ciclo.
	ops, err := store.Operations(ctx, "alice")
	require.NoError(t, err)
	for _, op := range ops {
		assert.Equal(t, domain.OpCompleted, op.Status)
	}

	// Y el snapshot de cierre existe para los tres buckets.
	rows, err := book.Report(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestLiveRebalanceClosesDroppedTickers(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{
		fillAfter: 1 << 30,
		account:   ports.Account{Equity: 2000},
		positions: []ports.Position{{Symbol: "MARA", Qty: 10}},
	}
	live, book, store := setupLive(t, broker, 1)
	live.exec.pollAttempts = 1

	high := domain.BucketHigh
	_, err := book.Deposit(ctx, "alice", 2000, &high)
	require.NoError(t, err)
	require.NoError(t, book.ProcessPending(ctx))

	// La cuenta mantiene MARA, que ya no está en el basket (PLTR).
	require.NoError(t, book.Distribute(ctx, high, domain.SideBuy, "MARA", 10, 100))

	require.NoError(t, live.Rebalance(ctx))

	assert.Contains(t, broker.closed, "MARA")

	lots, err := store.Trades(ctx, "alice")
	require.NoError(t, err)

	var sold bool
	for _, lot := range lots {
		if lot.Side == domain.SideSell && lot.Ticker == "MARA" {
			sold = true
			assert.InDelta(t, 0, lot.CumulativeShares, 1e-9)
		}
	}
	// MARA no cotiza en la matriz de test: la venta no se atribuye pero el
	// cierre sí se ejecuta. Con precio disponible sí habría lot SELL.
	assert.False(t, sold)
}

func TestLiveCloseDiffFollowsBrokerPositions(t *testing.T) {
	ctx := context.Background()
	// La cuenta mantiene MARA y SOFI; el ledger registra SOFI y PLTR. El diff
	// de ejecución sale de la cuenta: se cierra MARA, se mantiene SOFI y la
	// PLTR solo-ledger no provoca ningún cierre.
	broker := &fakeBroker{
		fillAfter: 1 << 30,
		account:   ports.Account{Equity: 2550},
		positions: []ports.Position{
			{Symbol: "MARA", Qty: 10},
			{Symbol: "SOFI", Qty: 5},
		},
	}

	store, err := storage.NewLedgerStore(filepath.Join(t.TempDir(), "investors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveInvestor(ctx, domain.Investor{
		Name: "alice", CreationDate: domain.DateNY(domain.NowNY()), Status: domain.InvestorActive,
	}))
	book, err := ledger.New(ctx, store)
	require.NoError(t, err)

	closes := map[string][2]float64{
		"AAPL": {100, 120}, "MSFT": {200, 220}, "SPY": {400, 420},
		"PLTR": {50, 62.5}, // +25%
		"SOFI": {100, 110}, // +10%
	}
	loader := testLoader(t, testHistory(closes), []string{"AAPL", "MSFT", "SPY", "PLTR", "SOFI"})
	live := NewLive("live", broker, loader, book, nil, 2)
	live.exec = newTestExecutor(broker)
	live.exec.pollAttempts = 1

	high := domain.BucketHigh
	_, err = book.Deposit(ctx, "alice", 2000, &high)
	require.NoError(t, err)
	require.NoError(t, book.ProcessPending(ctx))
	require.NoError(t, book.Distribute(ctx, high, domain.SideBuy, "SOFI", 5, 10))
	require.NoError(t, book.Distribute(ctx, high, domain.SideBuy, "PLTR", 4, 50))

	require.NoError(t, live.Rebalance(ctx))

	// Solo MARA se cierra; SOFI sigue en cuenta y PLTR no estaba para cerrar.
	assert.Equal(t, []string{"MARA"}, broker.closed)

	// La única apertura es PLTR, con todo el cash del bucket.
	require.Len(t, broker.buys, 1)
	assert.Equal(t, "PLTR", broker.buys[0].Symbol)
	assert.InDelta(t, 1750, broker.buys[0].Notional, 1e-9)

	// MARA no está registrada en el ledger: el cierre no genera lot SELL.
	lots, err := store.Trades(ctx, "alice")
	require.NoError(t, err)
	for _, lot := range lots {
		assert.Equal(t, domain.SideBuy, lot.Side)
	}
}

func TestLiveRebalanceSkipsWithoutInvestorCapital(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{account: ports.Account{Equity: 0}}
	live, _, store := setupLive(t, broker, 2)

	// Sin depósitos: los tres buckets quedan en cero y no se opera nada.
	require.NoError(t, live.Rebalance(ctx))
	assert.Empty(t, broker.buys)
	assert.Empty(t, broker.closed)

	lots, err := store.Trades(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestLiveReconciliationFailure(t *testing.T) {
	ctx := context.Background()
	// El broker reporta 500 más de lo que el ledger puede explicar.
	broker := &fakeBroker{fillAfter: 1 << 30, account: ports.Account{Equity: 10500}}
	live, book, _ := setupLive(t, broker, 2)
	live.exec.pollAttempts = 1

	_, err := book.Deposit(ctx, "alice", 10000, nil)
	require.NoError(t, err)

	err = live.Rebalance(ctx)
	assert.ErrorIs(t, err, domain.ErrReconciliationFailed)
}

func TestLivePreviewCoversAllBuckets(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	live, _, _ := setupLive(t, broker, 1)

	preview, err := live.Preview(ctx)
	require.NoError(t, err)

	symbols := domain.Symbols(preview.Basket)
	assert.Contains(t, symbols, "AAPL") // low, top-1
	assert.Contains(t, symbols, "SPY")  // medium
	assert.Contains(t, symbols, "PLTR") // high
	assert.Equal(t, symbols, preview.ToOpen)
	assert.Empty(t, preview.ToClose)
}
