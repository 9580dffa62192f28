package strategy

// momentum.go — la strategy de rotación simple: una sub-cuenta, un universo,
// basket top-N por momentum y reconciliación contra las posiciones del broker.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alejandrodnm/rotabot/internal/application/marketdata"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Momentum implementa ports.Strategy sobre una sub-cuenta dedicada.
type Momentum struct {
	name     string
	broker   ports.Broker
	loader   *marketdata.Loader
	exec     *Executor
	universe []string
	topN     int
}

// NewMomentum creates one fleet strategy instance.
func NewMomentum(name string, broker ports.Broker, loader *marketdata.Loader, universe []string, topN int) *Momentum {
	return &Momentum{
		name:     name,
		broker:   broker,
		loader:   loader,
		exec:     NewExecutor(broker),
		universe: universe,
		topN:     topN,
	}
}

// Name returns the configured strategy name.
func (s *Momentum) Name() string { return s.name }

// plan computes the basket and the close/open diff without side effects.
func (s *Momentum) plan(ctx context.Context) (basket []domain.MomentumRank, fractionable map[string]bool, toClose, toOpen []string, history *domain.BarHistory, err error) {
	history, err = s.loader.Load(ctx)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("strategy %s: %w", s.name, err)
	}

	basket = domain.TopMomentum(history, s.universe, s.topN)
	if len(basket) == 0 {
		return nil, nil, nil, nil, nil, fmt.Errorf("strategy %s: empty basket: %w", s.name, domain.ErrDataUnavailable)
	}
	basket, fractionable = filterTradable(ctx, s.broker, basket)
	if len(basket) == 0 {
		return nil, nil, nil, nil, nil, fmt.Errorf("strategy %s: no tradable candidates: %w", s.name, domain.ErrDataUnavailable)
	}

	positions, err := s.broker.GetPositions(ctx)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("strategy %s: positions: %w", s.name, err)
	}

	// Diff broker-truth: lo que la cuenta realmente mantiene decide los
	// cierres, no el último basket recordado.
	held := make(map[string]bool, len(positions))
	for _, p := range positions {
		held[p.Symbol] = true
	}
	want := make(map[string]bool, len(basket))
	for _, r := range basket {
		want[r.Ticker] = true
	}

	for _, p := range positions {
		if !want[p.Symbol] {
			toClose = append(toClose, p.Symbol)
		}
	}
	for _, r := range basket {
		if !held[r.Ticker] {
			toOpen = append(toOpen, r.Ticker)
		}
	}
	sort.Strings(toClose)
	sort.Strings(toOpen)
	return basket, fractionable, toClose, toOpen, history, nil
}

// Preview computes the would-be rebalance without executing.
func (s *Momentum) Preview(ctx context.Context) (ports.RebalancePreview, error) {
	basket, _, toClose, toOpen, _, err := s.plan(ctx)
	if err != nil {
		return ports.RebalancePreview{}, err
	}
	return ports.RebalancePreview{
		Strategy: s.name,
		Basket:   basket,
		ToClose:  toClose,
		ToOpen:   toOpen,
	}, nil
}

// Rebalance reconciles the sub-account to the current top-N basket: cierra lo
// que sobra, espera el settlement y reparte el cash disponible a partes
// iguales entre las aperturas.
func (s *Momentum) Rebalance(ctx context.Context) error {
	basket, fractionable, toClose, toOpen, history, err := s.plan(ctx)
	if err != nil {
		return err
	}
	slog.Info("strategy: rebalance plan",
		"strategy", s.name, "basket", domain.Symbols(basket), "close", toClose, "open", toOpen)

	if len(toClose) == 0 && len(toOpen) == 0 {
		slog.Info("strategy: account already on target", "strategy", s.name)
		return nil
	}

	// Los fallos de orden individuales se loguean y se acumulan, pero no
	// abortan la strategy: el ciclo cuenta como completado igualmente.
	var failed []string
	if len(toClose) > 0 {
		if err := s.exec.CloseAll(ctx, toClose); err != nil {
			slog.Error("strategy: some closes failed", "strategy", s.name, "err", err)
			failed = append(failed, "closes")
		}
		if err := s.exec.Settle(ctx); err != nil {
			return fmt.Errorf("strategy %s: %w", s.name, err)
		}
	}

	if len(toOpen) == 0 {
		return nil
	}

	account, err := s.broker.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("strategy %s: account: %v: %w", s.name, err, domain.ErrRebalanceFailed)
	}
	if account.Cash <= 0 {
		slog.Warn("strategy: no cash available, opens skipped",
			"strategy", s.name, "cash", account.Cash)
		return nil
	}
	perPos := account.Cash / float64(len(toOpen))
	if perPos < 1 {
		slog.Warn("strategy: cash below $1 per position, opens skipped",
			"strategy", s.name, "cash", account.Cash, "targets", len(toOpen))
		return nil
	}

	opened := 0
	for _, ticker := range toOpen {
		hint, _ := history.LastClose(ticker)
		execution, err := s.exec.Open(ctx, OpenTarget{
			Ticker:       ticker,
			Notional:     perPos,
			Fractionable: fractionable[ticker],
			PriceHint:    hint,
		})
		if err != nil {
			slog.Error("strategy: open failed", "strategy", s.name, "ticker", ticker, "err", err)
			failed = append(failed, ticker)
			continue
		}
		if execution.Shares == 0 {
			continue // saltado por sizing, ya logueado
		}
		opened++
	}
	if len(failed) > 0 {
		slog.Warn("strategy: rebalance finished with order failures",
			"strategy", s.name, "failed", failed, "opened", opened)
		return nil
	}

	slog.Info("strategy: rebalance done", "strategy", s.name, "opened", opened)
	return nil
}
