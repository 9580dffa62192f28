package ports

import "context"

// Strategy es la capability que el supervisor ejecuta por cada sub-cuenta.
type Strategy interface {
	Name() string

	// Rebalance reconciles the broker account to the current target basket.
	Rebalance(ctx context.Context) error

	// Preview computes the basket and close/open diff without executing.
	Preview(ctx context.Context) (RebalancePreview, error)
}
