package domain

import "errors"

// Errores centinela del core. Se envuelven con fmt.Errorf("...: %w", err)
// en los call sites y se comprueban con errors.Is.
var (
	// ErrDataUnavailable indica que el loader no pudo obtener ningún bar usable.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientFunds: cash <= 0 o per-position < $1 al abrir posiciones.
	ErrInsufficientFunds = errors.New("insufficient funds to open positions")

	// ErrInsufficientBalance: un withdrawal excede el balance derivado del investor.
	ErrInsufficientBalance = errors.New("withdrawal exceeds investor balance")

	// ErrRebalanceFailed is the composite raised when any strategy fails at the
	// top level. Per-order failures do NOT trigger it.
	ErrRebalanceFailed = errors.New("rebalance failed")

	// ErrReconciliationFailed: ledger total vs broker equity difieren en más de $1.
	ErrReconciliationFailed = errors.New("ledger reconciliation failed")

	// ErrConfigMissing: configuración de arranque inválida (sin estrategias, sin credenciales).
	ErrConfigMissing = errors.New("required configuration missing")

	// ErrOrderFailed marks a single broker order error, collected per strategy.
	ErrOrderFailed = errors.New("order failed")
)
