package strategy

// live.go — la cuenta live multi-bucket: tres sleeves de riesgo sobre una
// sola cuenta de broker, con el capital por bucket dictado por el ledger de
// investors y cada ejecución atribuida pro-rata.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alejandrodnm/rotabot/internal/application/ledger"
	"github.com/alejandrodnm/rotabot/internal/application/marketdata"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Live implementa ports.Strategy para la cuenta con ledger de investors.
type Live struct {
	name      string
	broker    ports.Broker
	loader    *marketdata.Loader
	ledger    *ledger.Ledger
	exec      *Executor
	additions []string
	topN      int
}

// NewLive creates the live multi-bucket strategy.
func NewLive(name string, broker ports.Broker, loader *marketdata.Loader, book *ledger.Ledger, additions []string, topN int) *Live {
	return &Live{
		name:      name,
		broker:    broker,
		loader:    loader,
		ledger:    book,
		exec:      NewExecutor(broker),
		additions: additions,
		topN:      topN,
	}
}

// Name returns the configured strategy name.
func (s *Live) Name() string { return s.name }

func (s *Live) bucketUniverse(bucket domain.Bucket) []string {
	switch bucket {
	case domain.BucketLow:
		return domain.LiveLowUniverse(s.additions)
	case domain.BucketMedium:
		return domain.MediumRiskUniverse()
	default:
		return domain.HighRiskUniverse()
	}
}

// bucketPlan es el diff de un sleeve contra su basket objetivo.
type bucketPlan struct {
	bucket       domain.Bucket
	basket       []domain.MomentumRank
	fractionable map[string]bool
	brokerQty    map[string]float64 // posiciones del broker dentro del universo
	ledgerShares map[string]float64 // shares registradas, para la atribución
	toClose      []string
	toOpen       []string
}

func (s *Live) planBucket(ctx context.Context, bucket domain.Bucket, history *domain.BarHistory, positions []ports.Position) (*bucketPlan, error) {
	basket := domain.TopMomentum(history, s.bucketUniverse(bucket), s.topN)
	if len(basket) == 0 {
		return nil, fmt.Errorf("live %s: bucket %s: empty basket: %w", s.name, bucket, domain.ErrDataUnavailable)
	}
	basket, fractionable := filterTradable(ctx, s.broker, basket)
	if len(basket) == 0 {
		return nil, fmt.Errorf("live %s: bucket %s: no tradable candidates: %w", s.name, bucket, domain.ErrDataUnavailable)
	}

	// El diff de ejecución es broker-truth: lo que la cuenta realmente
	// mantiene decide cierres y aperturas. Como la cuenta es compartida entre
	// buckets, solo cuentan las posiciones dentro del universo del sleeve.
	// El ledger no influye en el diff; entra después para atribuir la venta.
	inUniverse := make(map[string]bool)
	for _, ticker := range s.bucketUniverse(bucket) {
		inUniverse[ticker] = true
	}
	brokerQty := make(map[string]float64)
	for _, p := range positions {
		if p.Qty > 0 && inUniverse[p.Symbol] {
			brokerQty[p.Symbol] = p.Qty
		}
	}

	ledgerShares, err := s.ledger.BucketPositions(ctx, bucket)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(basket))
	for _, r := range basket {
		want[r.Ticker] = true
	}

	plan := &bucketPlan{
		bucket:       bucket,
		basket:       basket,
		fractionable: fractionable,
		brokerQty:    brokerQty,
		ledgerShares: ledgerShares,
	}
	for ticker := range brokerQty {
		if !want[ticker] {
			plan.toClose = append(plan.toClose, ticker)
		}
	}
	for _, r := range basket {
		if brokerQty[r.Ticker] <= 0 {
			plan.toOpen = append(plan.toOpen, r.Ticker)
		}
	}
	sort.Strings(plan.toClose)
	sort.Strings(plan.toOpen)
	return plan, nil
}

// Preview computes the merged would-be rebalance across the three buckets.
func (s *Live) Preview(ctx context.Context) (ports.RebalancePreview, error) {
	history, err := s.loader.Load(ctx)
	if err != nil {
		return ports.RebalancePreview{}, fmt.Errorf("live %s: %w", s.name, err)
	}
	positions, err := s.broker.GetPositions(ctx)
	if err != nil {
		return ports.RebalancePreview{}, fmt.Errorf("live %s: %w", s.name, err)
	}

	preview := ports.RebalancePreview{Strategy: s.name}
	for _, bucket := range domain.Buckets {
		plan, err := s.planBucket(ctx, bucket, history, positions)
		if err != nil {
			return ports.RebalancePreview{}, err
		}
		preview.Basket = append(preview.Basket, plan.basket...)
		preview.ToClose = append(preview.ToClose, plan.toClose...)
		preview.ToOpen = append(preview.ToOpen, plan.toOpen...)
	}
	return preview, nil
}

// Rebalance ejecuta el ciclo live completo: completar operaciones pending,
// evaluar fees, rotar cada bucket, verificar contra el broker y snapshot.
func (s *Live) Rebalance(ctx context.Context) error {
	if err := s.ledger.ProcessPending(ctx); err != nil {
		return fmt.Errorf("live %s: %w", s.name, err)
	}

	history, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("live %s: %w", s.name, err)
	}
	prices := history.LastCloses()

	if !s.ledger.HasActive() {
		slog.Warn("live: no active investors, skipping bucket rotation", "strategy", s.name)
		return nil
	}

	if _, err := s.ledger.Fees(ctx, true, "", prices); err != nil {
		return fmt.Errorf("live %s: fees: %w", s.name, err)
	}

	allocations, err := s.ledger.Allocations(ctx, prices)
	if err != nil {
		return fmt.Errorf("live %s: %w", s.name, err)
	}
	positions, err := s.broker.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("live %s: %w", s.name, err)
	}

	var bucketErrs []error
	for _, bucket := range domain.Buckets {
		if allocations[bucket][ledger.AllocationTotalKey] <= 0 {
			slog.Warn("live: bucket without capital, skipped", "strategy", s.name, "bucket", bucket)
			continue
		}
		if err := s.rebalanceBucket(ctx, bucket, history, prices, positions); err != nil {
			slog.Error("live: bucket rebalance failed", "strategy", s.name, "bucket", bucket, "err", err)
			bucketErrs = append(bucketErrs, err)
		}
	}
	if len(bucketErrs) > 0 {
		return fmt.Errorf("live %s: %v: %w", s.name, errors.Join(bucketErrs...), domain.ErrRebalanceFailed)
	}

	ok, msg, err := s.ledger.VerifyIntegrity(ctx, s.broker, prices)
	if err != nil {
		return fmt.Errorf("live %s: %w", s.name, err)
	}
	if !ok {
		return fmt.Errorf("live %s: %s: %w", s.name, msg, domain.ErrReconciliationFailed)
	}
	slog.Info("live: reconciliation passed", "strategy", s.name, "detail", msg)

	if err := s.ledger.Snapshot(ctx, domain.NowNY(), prices); err != nil {
		return fmt.Errorf("live %s: %w", s.name, err)
	}
	return nil
}

func (s *Live) rebalanceBucket(ctx context.Context, bucket domain.Bucket, history *domain.BarHistory, prices map[string]float64, positions []ports.Position) error {
	plan, err := s.planBucket(ctx, bucket, history, positions)
	if err != nil {
		return err
	}
	slog.Info("live: bucket plan",
		"bucket", bucket, "basket", domain.Symbols(plan.basket),
		"close", plan.toClose, "open", plan.toOpen)

	// Los fallos de orden individuales no abortan el sleeve: se loguean y el
	// ciclo sigue con el resto del plan.
	for _, ticker := range plan.toClose {
		if err := s.broker.ClosePosition(ctx, ticker); err != nil {
			slog.Error("live: close failed, position kept",
				"bucket", bucket, "ticker", ticker, "err", err)
			continue
		}
		shares := plan.ledgerShares[ticker]
		if shares <= 0 {
			slog.Warn("live: closed ticker not tracked in ledger, sale not attributed",
				"bucket", bucket, "ticker", ticker)
			continue
		}
		price := prices[ticker]
		if price <= 0 {
			slog.Warn("live: no price for closed ticker, sale not attributed",
				"bucket", bucket, "ticker", ticker)
			continue
		}
		if err := s.ledger.Distribute(ctx, bucket, domain.SideSell, ticker, shares, price); err != nil {
			return fmt.Errorf("bucket %s: %w", bucket, err)
		}
	}
	if len(plan.toClose) > 0 {
		if err := s.exec.Settle(ctx); err != nil {
			return err
		}
	}

	if len(plan.toOpen) == 0 {
		return nil
	}

	// Las aperturas se dimensionan sobre el cash derivado del ledger, no sobre
	// allocations[bucket].total / |opens|: el total incluye posiciones que se
	// mantienen, y gastarlo entero sobre-invertiría el sleeve cuando el diff
	// conserva tickers.
	cash, err := s.ledger.BucketCash(ctx, bucket)
	if err != nil {
		return err
	}
	if cash <= 0 {
		slog.Warn("live: bucket without investable cash, opens skipped",
			"bucket", bucket, "cash", cash)
		return nil
	}
	perPos := cash / float64(len(plan.toOpen))
	if perPos < 1 {
		slog.Warn("live: bucket cash below $1 per position, opens skipped",
			"bucket", bucket, "cash", cash, "targets", len(plan.toOpen))
		return nil
	}

	for _, ticker := range plan.toOpen {
		hint := prices[ticker]
		execution, err := s.exec.Open(ctx, OpenTarget{
			Ticker:       ticker,
			Notional:     perPos,
			Fractionable: plan.fractionable[ticker],
			PriceHint:    hint,
		})
		if err != nil {
			slog.Error("live: open failed, ticker skipped",
				"bucket", bucket, "ticker", ticker, "err", err)
			continue
		}
		if execution.Shares <= 0 {
			continue
		}
		if err := s.ledger.Distribute(ctx, bucket, domain.SideBuy, ticker, execution.Shares, execution.Price); err != nil {
			return fmt.Errorf("bucket %s: %w", bucket, err)
		}
	}
	return nil
}
