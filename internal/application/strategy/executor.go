package strategy

// executor.go — la capa de ejecución de órdenes compartida por la flota y la
// cuenta live: cierres bulk con recolección de errores, pausa de settlement y
// aperturas market DAY con polling del fill.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

const (
	// settleDelay: pausa entre cerrar posiciones y abrir las nuevas, para que
	// el cash de los cierres aparezca en la cuenta.
	settleDelay = 3 * time.Second

	fillPollAttempts = 10
	fillPollInterval = 500 * time.Millisecond
)

// Execution is the observed outcome of one opened position.
type Execution struct {
	Ticker string
	Shares float64
	Price  float64
}

// OpenTarget es una apertura pendiente: Notional es el capital por posición
// y PriceHint el último close conocido (fallback si el fill no llega).
type OpenTarget struct {
	Ticker       string
	Notional     float64
	Fractionable bool
	PriceHint    float64
}

// Executor submits orders against one broker account.
type Executor struct {
	broker ports.Broker

	settle       time.Duration
	pollAttempts int
	pollInterval time.Duration
}

// NewExecutor creates an executor with the default timing knobs.
func NewExecutor(broker ports.Broker) *Executor {
	return &Executor{
		broker:       broker,
		settle:       settleDelay,
		pollAttempts: fillPollAttempts,
		pollInterval: fillPollInterval,
	}
}

// CloseAll liquida cada símbolo, siguiendo ante fallos individuales y
// devolviendo el error compuesto al final. Un símbolo que no cierra no debe
// impedir liquidar el resto.
func (e *Executor) CloseAll(ctx context.Context, symbols []string) error {
	var errs []error
	for _, symbol := range symbols {
		if err := e.broker.ClosePosition(ctx, symbol); err != nil {
			slog.Error("executor: close failed", "ticker", symbol, "err", err)
			errs = append(errs, fmt.Errorf("close %s: %w", symbol, err))
			continue
		}
		slog.Info("executor: position closed", "ticker", symbol)
	}
	return errors.Join(errs...)
}

// Settle waits for sale proceeds to land in the account.
func (e *Executor) Settle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.settle):
		return nil
	}
}

// Open submits one market buy and polls until filled. Devuelve la ejecución
// observada; si el fill no llega dentro de la ventana de polling, cae al
// price hint. Shares == 0 sin error significa target saltado (no fraccionable
// y sin capital para una share entera).
func (e *Executor) Open(ctx context.Context, target OpenTarget) (Execution, error) {
	if target.Notional < 1 {
		return Execution{}, fmt.Errorf("executor.Open: %s: per-position capital %.2f below $1: %w",
			target.Ticker, target.Notional, domain.ErrInsufficientFunds)
	}

	req := ports.MarketBuy{
		Symbol:        target.Ticker,
		ClientOrderID: uuid.New().String(),
	}
	var estShares float64
	if target.Fractionable {
		req.Notional = roundCents(target.Notional)
		if target.PriceHint > 0 {
			estShares = req.Notional / target.PriceHint
		}
	} else {
		if target.PriceHint <= 0 {
			return Execution{}, fmt.Errorf("executor.Open: %s: no price for whole-share sizing", target.Ticker)
		}
		qty := math.Floor(target.Notional / target.PriceHint)
		if qty < 1 {
			slog.Warn("executor: skipping non-fractionable target, capital below one share",
				"ticker", target.Ticker, "per_pos", target.Notional, "price", target.PriceHint)
			return Execution{}, nil
		}
		req.Qty = qty
		estShares = qty
	}

	orderID, err := e.broker.SubmitMarketBuy(ctx, req)
	if err != nil {
		return Execution{}, fmt.Errorf("executor.Open: %s: %v: %w", target.Ticker, err, domain.ErrOrderFailed)
	}
	slog.Info("executor: buy submitted",
		"ticker", target.Ticker, "notional", req.Notional, "qty", req.Qty, "order_id", orderID)

	for attempt := 0; attempt < e.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Execution{}, ctx.Err()
		case <-time.After(e.pollInterval):
		}

		fill, err := e.broker.GetOrder(ctx, orderID)
		if err != nil {
			slog.Warn("executor: order poll failed", "ticker", target.Ticker, "err", err)
			continue
		}
		if fill.Filled {
			return Execution{Ticker: target.Ticker, Shares: fill.FilledQty, Price: fill.FilledAvgPrice}, nil
		}
	}

	// Market DAY en sesión abierta casi siempre llena en segundos; si el poll
	// expira, registramos la estimación para no dejar el trade sin atribuir.
	slog.Warn("executor: fill not observed, falling back to price hint",
		"ticker", target.Ticker, "order_id", orderID, "price_hint", target.PriceHint)
	return Execution{Ticker: target.Ticker, Shares: estShares, Price: target.PriceHint}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
