package ledger

// ledger.go — el registro de investors y sus operaciones.
//
// Contrato de concurrencia: todas las mutaciones se serializan en el thread
// del scheduler (single-writer); no hay locks porque el supervisor garantiza
// la propiedad. El registry en memoria es la copia runtime autoritativa;
// el disco solo se relee en el arranque.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// AllocationTotalKey is the reserved per-bucket key holding the bucket sum.
const AllocationTotalKey = "total"

// reconcileTolerance: diferencia máxima tolerada contra el equity del broker.
const reconcileTolerance = 1.0

// Ledger mantiene el registry y deriva balances desde los logs.
type Ledger struct {
	store     ports.LedgerStore
	investors map[string]*domain.Investor
	names     []string // orden del registry
}

// New loads the registry from the store. Registry ausente o vacío → ledger
// vacío con warning; las operaciones por-bucket se saltarán limpiamente.
func New(ctx context.Context, store ports.LedgerStore) (*Ledger, error) {
	l := &Ledger{store: store, investors: make(map[string]*domain.Investor)}

	registry, err := store.LoadRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger.New: load registry: %w", err)
	}
	if len(registry) == 0 {
		slog.Warn("ledger: empty investor registry, running with empty ledger")
		return l, nil
	}

	for i := range registry {
		inv := registry[i]
		l.investors[inv.Name] = &inv
		l.names = append(l.names, inv.Name)
	}
	slog.Info("ledger: registry loaded", "investors", len(l.names))
	return l, nil
}

// Active returns the active investors in registry order.
func (l *Ledger) Active() []domain.Investor {
	var out []domain.Investor
	for _, name := range l.names {
		if inv := l.investors[name]; inv.Active() {
			out = append(out, *inv)
		}
	}
	return out
}

// HasActive reports whether any active investor exists.
func (l *Ledger) HasActive() bool { return len(l.Active()) > 0 }

// balances derives all three bucket balances for one investor.
func (l *Ledger) balances(ctx context.Context, name string, prices map[string]float64) (map[domain.Bucket]domain.BucketBalance, error) {
	ops, err := l.store.Operations(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ledger.balances: %s: %w", name, err)
	}
	lots, err := l.store.Trades(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ledger.balances: %s: %w", name, err)
	}

	out := make(map[domain.Bucket]domain.BucketBalance, len(domain.Buckets))
	for _, bucket := range domain.Buckets {
		out[bucket] = deriveBucket(ops, lots, bucket, prices)
	}
	return out, nil
}

// TotalValue devuelve Σ_bucket (cash + positions_value) del investor.
func (l *Ledger) TotalValue(ctx context.Context, name string, prices map[string]float64) (float64, error) {
	balances, err := l.balances(ctx, name, prices)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, b := range balances {
		total += b.Total()
	}
	return total, nil
}

// Deposit registra un depósito pending. Sin bucket, reparte por los pesos
// por defecto (45/35/20) emitiendo tres entradas. Devuelve los ids opacos.
func (l *Ledger) Deposit(ctx context.Context, name string, amount float64, bucket *domain.Bucket) ([]string, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("ledger.Deposit: %s: amount must be positive", name)
	}
	if _, ok := l.investors[name]; !ok {
		return nil, fmt.Errorf("ledger.Deposit: unknown investor %q", name)
	}
	return l.appendCashOps(ctx, name, domain.OpDeposit, amount, bucket, "")
}

// Withdraw registra un retiro pending, previa comprobación de balance:
// con bucket, contra el total_value de ese bucket; sin bucket, contra el
// total entre buckets. Excedido → ErrInsufficientBalance.
func (l *Ledger) Withdraw(ctx context.Context, name string, amount float64, bucket *domain.Bucket) ([]string, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("ledger.Withdraw: %s: amount must be positive", name)
	}
	if _, ok := l.investors[name]; !ok {
		return nil, fmt.Errorf("ledger.Withdraw: unknown investor %q", name)
	}

	balances, err := l.balances(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	if bucket != nil {
		if amount > balances[*bucket].Total() {
			return nil, fmt.Errorf("ledger.Withdraw: %s: %.2f > %s balance %.2f: %w",
				name, amount, *bucket, balances[*bucket].Total(), domain.ErrInsufficientBalance)
		}
	} else {
		total := 0.0
		for _, b := range balances {
			total += b.Total()
		}
		if amount > total {
			return nil, fmt.Errorf("ledger.Withdraw: %s: %.2f > total balance %.2f: %w",
				name, amount, total, domain.ErrInsufficientBalance)
		}
	}

	return l.appendCashOps(ctx, name, domain.OpWithdraw, amount, bucket, "")
}

// appendCashOps emite una entrada por bucket (o una sola) con status pending.
func (l *Ledger) appendCashOps(ctx context.Context, name string, kind domain.OperationKind, amount float64, bucket *domain.Bucket, note string) ([]string, error) {
	now := domain.NowNY()

	amounts := make(map[domain.Bucket]float64)
	if bucket != nil {
		amounts[*bucket] = amount
	} else {
		amounts = splitByWeights(amount)
	}

	var ids []string
	for _, b := range domain.Buckets {
		share, ok := amounts[b]
		if !ok || share <= 0 {
			continue
		}
		op := domain.Operation{
			ID:        uuid.New().String(),
			Investor:  name,
			Date:      domain.DateNY(now),
			Timestamp: now,
			Kind:      kind,
			Bucket:    b,
			Amount:    share,
			Status:    domain.OpPending,
			Note:      note,
		}
		if err := l.store.AppendOperation(ctx, op); err != nil {
			return ids, fmt.Errorf("ledger.appendCashOps: %w", err)
		}
		ids = append(ids, op.ID)
	}
	return ids, nil
}

// ProcessPending completa todas las operaciones pending de los investors
// activos, escribiendo balance_after = cash(investor, bucket) tras cada
// completion. Se llama al inicio de cada rebalance live.
func (l *Ledger) ProcessPending(ctx context.Context) error {
	for _, inv := range l.Active() {
		ops, err := l.store.Operations(ctx, inv.Name)
		if err != nil {
			return fmt.Errorf("ledger.ProcessPending: %w", err)
		}
		lots, err := l.store.Trades(ctx, inv.Name)
		if err != nil {
			return fmt.Errorf("ledger.ProcessPending: %w", err)
		}

		cash := make(map[domain.Bucket]float64, len(domain.Buckets))
		for _, b := range domain.Buckets {
			cash[b] = deriveBucket(ops, lots, b, nil).Cash
		}

		for _, op := range ops {
			if op.Status != domain.OpPending {
				continue
			}
			switch op.Kind {
			case domain.OpDeposit:
				cash[op.Bucket] += op.Amount
			case domain.OpWithdraw, domain.OpFee:
				cash[op.Bucket] -= op.Amount
			}
			if err := l.store.CompleteOperation(ctx, op.ID, cash[op.Bucket]); err != nil {
				return fmt.Errorf("ledger.ProcessPending: %w", err)
			}
			slog.Info("ledger: operation completed",
				"investor", op.Investor, "kind", op.Kind, "bucket", op.Bucket,
				"amount", op.Amount, "balance_after", cash[op.Bucket])
		}
	}
	return nil
}

// Allocations devuelve, por bucket, {investor → total_value_in_bucket} más la
// clave "total", restringido a investors activos. Es la clave pro-rata de la
// atribución de trades.
func (l *Ledger) Allocations(ctx context.Context, prices map[string]float64) (map[domain.Bucket]map[string]float64, error) {
	out := make(map[domain.Bucket]map[string]float64, len(domain.Buckets))
	for _, b := range domain.Buckets {
		out[b] = map[string]float64{AllocationTotalKey: 0}
	}

	for _, inv := range l.Active() {
		balances, err := l.balances(ctx, inv.Name, prices)
		if err != nil {
			return nil, err
		}
		for _, b := range domain.Buckets {
			value := balances[b].Total()
			out[b][inv.Name] = value
			out[b][AllocationTotalKey] += value
		}
	}
	return out, nil
}

// Distribute atribuye una ejecución pro-rata al bucket: cada investor activo
// recibe shares proporcionales a su capital en el bucket. En SELL, la parte
// asignada se recorta a las shares que el investor realmente mantiene para
// que cumulative_shares_after nunca sea negativo. Bucket sin capital →
// warning y no-op.
func (l *Ledger) Distribute(ctx context.Context, bucket domain.Bucket, side domain.TradeSide, ticker string, totalShares, price float64) error {
	if totalShares <= 0 || price <= 0 {
		return fmt.Errorf("ledger.Distribute: %s %s: shares and price must be positive", side, ticker)
	}

	allocations, err := l.Allocations(ctx, nil)
	if err != nil {
		return err
	}
	bucketTotal := allocations[bucket][AllocationTotalKey]
	if bucketTotal <= 0 {
		slog.Warn("ledger: distribute skipped, bucket has no capital",
			"bucket", bucket, "side", side, "ticker", ticker)
		return nil
	}

	now := domain.NowNY()
	for _, inv := range l.Active() {
		fraction := allocations[bucket][inv.Name] / bucketTotal
		if fraction <= 0 {
			continue
		}
		shares := totalShares * fraction

		lots, err := l.store.Trades(ctx, inv.Name)
		if err != nil {
			return fmt.Errorf("ledger.Distribute: %w", err)
		}
		held := positionShares(lots, bucket, ticker)

		var cumulative float64
		switch side {
		case domain.SideBuy:
			cumulative = held + shares
		case domain.SideSell:
			shares = math.Min(shares, held)
			if shares <= 0 {
				continue
			}
			cumulative = held - shares
		default:
			return fmt.Errorf("ledger.Distribute: unknown side %q", side)
		}

		lot := domain.TradeLot{
			Investor:         inv.Name,
			Date:             domain.DateNY(now),
			Timestamp:        now,
			Bucket:           bucket,
			Side:             side,
			Ticker:           ticker,
			Shares:           shares,
			Price:            price,
			Amount:           shares * price,
			CumulativeShares: cumulative,
		}
		if err := l.store.AppendTrade(ctx, lot); err != nil {
			return fmt.Errorf("ledger.Distribute: %w", err)
		}
	}
	return nil
}

// Fees evalúa el high-watermark fee. atRebalance exige ≥ 1 mes desde el
// último fee y actualiza last_fee_date; en withdrawals (atRebalance=false)
// siempre evalúa y deja last_fee_date intacto. only restringe a un investor.
// Devuelve {investor → fee}.
func (l *Ledger) Fees(ctx context.Context, atRebalance bool, only string, prices map[string]float64) (map[string]float64, error) {
	now := domain.NowNY()
	fees := make(map[string]float64)

	receivers := l.feeReceivers()

	for _, inv := range l.Active() {
		if inv.IsFeeReceiver {
			continue
		}
		if only != "" && inv.Name != only {
			continue
		}
		if atRebalance && !inv.LastFeeDate.IsZero() && domain.MonthsBetween(inv.LastFeeDate, now) < 1 {
			continue
		}

		current, err := l.TotalValue(ctx, inv.Name, prices)
		if err != nil {
			return nil, err
		}
		if current <= inv.HighWatermark {
			continue
		}
		fee := round2((current - inv.HighWatermark) * inv.FeePercent)
		if fee <= 0 {
			continue
		}

		fees[inv.Name] = fee

		// El cargo se emite solo si hay receiver: sin contraparte el dinero
		// no sale de la cuenta y la reconciliación contra el broker rompería.
		if len(receivers) > 0 {
			if _, err := l.appendCashOps(ctx, inv.Name, domain.OpFee, fee, nil, "hwm fee"); err != nil {
				return nil, err
			}
			credit := round2(fee / float64(len(receivers)))
			for _, receiver := range receivers {
				note := fmt.Sprintf("fee from %s", inv.Name)
				if _, err := l.appendCashOps(ctx, receiver, domain.OpDeposit, credit, nil, note); err != nil {
					return nil, err
				}
			}
		} else {
			slog.Warn("ledger: no fee receiver configured, fee not charged", "investor", inv.Name, "fee", fee)
		}

		stored := l.investors[inv.Name]
		stored.HighWatermark = current
		if atRebalance {
			stored.LastFeeDate = domain.DateNY(now)
		}
		if err := l.store.SaveInvestor(ctx, *stored); err != nil {
			return nil, fmt.Errorf("ledger.Fees: persist %s: %w", inv.Name, err)
		}
		slog.Info("ledger: hwm fee assessed",
			"investor", inv.Name, "fee", fee, "hwm", current, "at_rebalance", atRebalance)
	}
	return fees, nil
}

func (l *Ledger) feeReceivers() []string {
	var out []string
	for _, inv := range l.Active() {
		if inv.IsFeeReceiver {
			out = append(out, inv.Name)
		}
	}
	return out
}

// VerifyIntegrity compara Σ total_value(activos) contra el equity del broker.
// Pasa si |diff| ≤ $1; el mensaje siempre incluye el diff observado.
func (l *Ledger) VerifyIntegrity(ctx context.Context, broker ports.Broker, prices map[string]float64) (bool, string, error) {
	if !l.HasActive() {
		return true, "no active investors", nil
	}

	total := 0.0
	for _, inv := range l.Active() {
		value, err := l.TotalValue(ctx, inv.Name, prices)
		if err != nil {
			return false, "", err
		}
		total += value
	}

	account, err := broker.GetAccount(ctx)
	if err != nil {
		return false, "", fmt.Errorf("ledger.VerifyIntegrity: %w", err)
	}

	diff := total - account.Equity
	msg := fmt.Sprintf("ledger total %.2f vs broker equity %.2f (diff %+.2f)",
		total, account.Equity, diff)
	return math.Abs(diff) <= reconcileTolerance, msg, nil
}

// Snapshot appends one per-bucket balances row per active investor at date.
func (l *Ledger) Snapshot(ctx context.Context, date time.Time, prices map[string]float64) error {
	civil := domain.DateNY(date)
	for _, inv := range l.Active() {
		balances, err := l.balances(ctx, inv.Name, prices)
		if err != nil {
			return err
		}
		for _, b := range domain.Buckets {
			snap := domain.BalanceSnapshot{
				Investor:       inv.Name,
				Date:           civil,
				Bucket:         b,
				Cash:           balances[b].Cash,
				PositionsValue: balances[b].PositionsValue,
				RealizedPnL:    balances[b].RealizedPnL,
				UnrealizedPnL:  balances[b].UnrealizedPnL,
			}
			if err := l.store.AppendSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("ledger.Snapshot: %w", err)
			}
		}
	}
	return nil
}

// BucketPositions devuelve, por ticker, las shares totales que el bucket
// mantiene según el ledger (unión de los investors activos).
func (l *Ledger) BucketPositions(ctx context.Context, bucket domain.Bucket) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, inv := range l.Active() {
		balances, err := l.balances(ctx, inv.Name, nil)
		if err != nil {
			return nil, err
		}
		for ticker, shares := range balances[bucket].Shares {
			out[ticker] += shares
		}
	}
	return out, nil
}

// BucketCash devuelve el cash total del bucket entre los investors activos.
// Es el capital desplegable del bucket tras los cierres de un rebalance.
func (l *Ledger) BucketCash(ctx context.Context, bucket domain.Bucket) (float64, error) {
	total := 0.0
	for _, inv := range l.Active() {
		balances, err := l.balances(ctx, inv.Name, nil)
		if err != nil {
			return 0, err
		}
		total += balances[bucket].Cash
	}
	return total, nil
}

// InvestorReport es una fila del balance_check por investor y bucket.
type InvestorReport struct {
	Investor       string
	Bucket         domain.Bucket
	Cash           float64
	PositionsValue float64
	RealizedPnL    float64
	UnrealizedPnL  float64
}

// Report returns per-investor per-bucket derived balances for display.
func (l *Ledger) Report(ctx context.Context, prices map[string]float64) ([]InvestorReport, error) {
	var rows []InvestorReport
	for _, inv := range l.Active() {
		balances, err := l.balances(ctx, inv.Name, prices)
		if err != nil {
			return nil, err
		}
		for _, b := range domain.Buckets {
			rows = append(rows, InvestorReport{
				Investor:       inv.Name,
				Bucket:         b,
				Cash:           balances[b].Cash,
				PositionsValue: balances[b].PositionsValue,
				RealizedPnL:    balances[b].RealizedPnL,
				UnrealizedPnL:  balances[b].UnrealizedPnL,
			})
		}
	}
	return rows, nil
}
