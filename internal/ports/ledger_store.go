package ports

import (
	"context"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// LedgerStore persists the investor registry and the per-investor logs.
//
// Contrato de concurrencia: single-writer (el thread del scheduler). Los logs
// son append-only en semántica; la única mutación permitida sobre filas
// existentes es la transición pending → completed de una operación.
type LedgerStore interface {
	// LoadRegistry returns every investor row. Empty slice if none.
	LoadRegistry(ctx context.Context) ([]domain.Investor, error)

	// SaveInvestor upserts a registry row (HWM / last-fee-date updates).
	SaveInvestor(ctx context.Context, inv domain.Investor) error

	// AppendOperation appends one operations-log entry.
	AppendOperation(ctx context.Context, op domain.Operation) error

	// Operations returns the investor's operations log in insertion order.
	Operations(ctx context.Context, investor string) ([]domain.Operation, error)

	// CompleteOperation marks a pending entry completed and records the
	// cash balance reflecting its completion.
	CompleteOperation(ctx context.Context, id string, balanceAfter float64) error

	// AppendTrade appends one trade-lot entry.
	AppendTrade(ctx context.Context, lot domain.TradeLot) error

	// Trades returns the investor's trade log in insertion order.
	Trades(ctx context.Context, investor string) ([]domain.TradeLot, error)

	// AppendSnapshot appends one daily per-bucket balances row.
	AppendSnapshot(ctx context.Context, snap domain.BalanceSnapshot) error

	Close() error
}
