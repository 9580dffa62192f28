package storage

// ledger.go — persistencia SQLite del registry y de los logs por investor.
//
// Estrategia:
//   - `investors`: una fila por investor (el registry). El ledger solo muta
//     high_watermark y last_fee_date; status/fee_percent se editan out-of-band.
//   - `operations` y `trades`: append-only; rowid = orden de inserción.
//     La única mutación sobre filas existentes es pending → completed.
//   - `balance_snapshots`: una fila por (investor, fecha, bucket).
//   - Fechas civiles NY como TEXT YYYY-MM-DD, nunca convertidas a UTC.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS investors (
    name            TEXT PRIMARY KEY,
    creation_date   TEXT NOT NULL,
    fee_percent     REAL NOT NULL DEFAULT 0,
    is_fee_receiver INTEGER NOT NULL DEFAULT 0,
    high_watermark  REAL NOT NULL DEFAULT 0,
    last_fee_date   TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS operations (
    id            TEXT PRIMARY KEY,
    investor      TEXT NOT NULL,
    date          TEXT NOT NULL,
    ts            DATETIME NOT NULL,
    kind          TEXT NOT NULL,
    bucket        TEXT NOT NULL,
    amount        REAL NOT NULL,
    status        TEXT NOT NULL,
    balance_after REAL NOT NULL DEFAULT 0,
    note          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS trades (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    investor   TEXT NOT NULL,
    date       TEXT NOT NULL,
    ts         DATETIME NOT NULL,
    bucket     TEXT NOT NULL,
    side       TEXT NOT NULL,
    ticker     TEXT NOT NULL,
    shares     REAL NOT NULL,
    price      REAL NOT NULL,
    amount     REAL NOT NULL,
    cum_shares REAL NOT NULL,
    note       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS balance_snapshots (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    investor        TEXT NOT NULL,
    date            TEXT NOT NULL,
    bucket          TEXT NOT NULL,
    cash            REAL NOT NULL,
    positions_value REAL NOT NULL,
    realized_pnl    REAL NOT NULL,
    unrealized_pnl  REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ops_investor    ON operations(investor);
CREATE INDEX IF NOT EXISTS idx_trades_investor ON trades(investor);
CREATE INDEX IF NOT EXISTS idx_snaps_investor  ON balance_snapshots(investor, date);
`

const civilDateLayout = "2006-01-02"

// LedgerStore implementa ports.LedgerStore usando SQLite (pure Go, sin CGo).
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewLedgerStore(path string) (*LedgerStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewLedgerStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewLedgerStore: apply schema: %w", err)
	}
	return &LedgerStore{db: db}, nil
}

// Close cierra la conexión limpiamente.
func (s *LedgerStore) Close() error { return s.db.Close() }

// LoadRegistry returns every investor row, name-ascending.
func (s *LedgerStore) LoadRegistry(ctx context.Context) ([]domain.Investor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, creation_date, fee_percent, is_fee_receiver,
		       high_watermark, last_fee_date, status
		FROM investors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadRegistry: query: %w", err)
	}
	defer rows.Close()

	var investors []domain.Investor
	for rows.Next() {
		var inv domain.Investor
		var created, lastFee, status string
		if err := rows.Scan(&inv.Name, &created, &inv.FeePercent, &inv.IsFeeReceiver,
			&inv.HighWatermark, &lastFee, &status); err != nil {
			return nil, fmt.Errorf("storage.LoadRegistry: scan: %w", err)
		}
		inv.CreationDate = parseCivilDate(created)
		inv.LastFeeDate = parseCivilDate(lastFee)
		inv.Status = domain.InvestorStatus(status)
		investors = append(investors, inv)
	}
	return investors, rows.Err()
}

// SaveInvestor upserts a registry row.
func (s *LedgerStore) SaveInvestor(ctx context.Context, inv domain.Investor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investors
			(name, creation_date, fee_percent, is_fee_receiver, high_watermark, last_fee_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			fee_percent     = excluded.fee_percent,
			is_fee_receiver = excluded.is_fee_receiver,
			high_watermark  = excluded.high_watermark,
			last_fee_date   = excluded.last_fee_date,
			status          = excluded.status`,
		inv.Name, formatCivilDate(inv.CreationDate), inv.FeePercent, inv.IsFeeReceiver,
		inv.HighWatermark, formatCivilDate(inv.LastFeeDate), string(inv.Status))
	if err != nil {
		return fmt.Errorf("storage.SaveInvestor: %q: %w", inv.Name, err)
	}
	return nil
}

// AppendOperation appends one operations-log entry.
func (s *LedgerStore) AppendOperation(ctx context.Context, op domain.Operation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (id, investor, date, ts, kind, bucket, amount, status, balance_after, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.Investor, formatCivilDate(op.Date), op.Timestamp.UTC(),
		string(op.Kind), string(op.Bucket), op.Amount, string(op.Status),
		op.BalanceAfter, op.Note)
	if err != nil {
		return fmt.Errorf("storage.AppendOperation: %s/%s: %w", op.Investor, op.Kind, err)
	}
	return nil
}

// Operations returns the investor's log in insertion order (rowid).
func (s *LedgerStore) Operations(ctx context.Context, investor string) ([]domain.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, investor, date, ts, kind, bucket, amount, status, balance_after, note
		FROM operations WHERE investor = ? ORDER BY rowid`, investor)
	if err != nil {
		return nil, fmt.Errorf("storage.Operations: query: %w", err)
	}
	defer rows.Close()

	var ops []domain.Operation
	for rows.Next() {
		var op domain.Operation
		var date, kind, bucket, status string
		if err := rows.Scan(&op.ID, &op.Investor, &date, &op.Timestamp, &kind,
			&bucket, &op.Amount, &status, &op.BalanceAfter, &op.Note); err != nil {
			return nil, fmt.Errorf("storage.Operations: scan: %w", err)
		}
		op.Date = parseCivilDate(date)
		op.Kind = domain.OperationKind(kind)
		op.Bucket = domain.Bucket(bucket)
		op.Status = domain.OperationStatus(status)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// CompleteOperation marca una entrada pending como completed. Solo status y
// balance_after mutan, y solo en esa dirección (WHERE status = 'pending').
func (s *LedgerStore) CompleteOperation(ctx context.Context, id string, balanceAfter float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE operations SET status = ?, balance_after = ?
		WHERE id = ? AND status = ?`,
		string(domain.OpCompleted), balanceAfter, id, string(domain.OpPending))
	if err != nil {
		return fmt.Errorf("storage.CompleteOperation: %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.CompleteOperation: %s: no pending row", id)
	}
	return nil
}

// AppendTrade appends one trade-lot entry.
func (s *LedgerStore) AppendTrade(ctx context.Context, lot domain.TradeLot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (investor, date, ts, bucket, side, ticker, shares, price, amount, cum_shares, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.Investor, formatCivilDate(lot.Date), lot.Timestamp.UTC(),
		string(lot.Bucket), string(lot.Side), lot.Ticker,
		lot.Shares, lot.Price, lot.Amount, lot.CumulativeShares, lot.Note)
	if err != nil {
		return fmt.Errorf("storage.AppendTrade: %s/%s %s: %w", lot.Investor, lot.Side, lot.Ticker, err)
	}
	return nil
}

// Trades returns the investor's trade log in insertion order.
func (s *LedgerStore) Trades(ctx context.Context, investor string) ([]domain.TradeLot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT investor, date, ts, bucket, side, ticker, shares, price, amount, cum_shares, note
		FROM trades WHERE investor = ? ORDER BY rowid`, investor)
	if err != nil {
		return nil, fmt.Errorf("storage.Trades: query: %w", err)
	}
	defer rows.Close()

	var lots []domain.TradeLot
	for rows.Next() {
		var lot domain.TradeLot
		var date, bucket, side string
		if err := rows.Scan(&lot.Investor, &date, &lot.Timestamp, &bucket, &side,
			&lot.Ticker, &lot.Shares, &lot.Price, &lot.Amount,
			&lot.CumulativeShares, &lot.Note); err != nil {
			return nil, fmt.Errorf("storage.Trades: scan: %w", err)
		}
		lot.Date = parseCivilDate(date)
		lot.Bucket = domain.Bucket(bucket)
		lot.Side = domain.TradeSide(side)
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// AppendSnapshot appends one daily per-bucket balances row.
func (s *LedgerStore) AppendSnapshot(ctx context.Context, snap domain.BalanceSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balance_snapshots (investor, date, bucket, cash, positions_value, realized_pnl, unrealized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Investor, formatCivilDate(snap.Date), string(snap.Bucket),
		snap.Cash, snap.PositionsValue, snap.RealizedPnL, snap.UnrealizedPnL)
	if err != nil {
		return fmt.Errorf("storage.AppendSnapshot: %s: %w", snap.Investor, err)
	}
	return nil
}

func formatCivilDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(civilDateLayout)
}

func parseCivilDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(civilDateLayout, s, domain.NYLocation())
	if err != nil {
		return time.Time{}
	}
	return t
}
