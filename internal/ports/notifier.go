package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// RebalancePreview is the would-be outcome of one strategy's rebalance.
type RebalancePreview struct {
	Strategy string
	Basket   []domain.MomentumRank
	ToClose  []string
	ToOpen   []string
}

// Notifier es el puerto push-only hacia el chat front-end.
//
// Delivery best-effort: un fallo aquí nunca aborta un rebalance. SendError,
// usado desde el error path del scheduler, suprime sus propios fallos para
// no re-entrar en el ciclo logging → notificación.
type Notifier interface {
	SendStartup(ctx context.Context, summary string) error
	SendCountdown(ctx context.Context, days int, nextDate time.Time) error
	SendRebalancePreview(ctx context.Context, previews []RebalancePreview) error
	SendError(ctx context.Context, title, detail string, warning bool)

	// SendConfirmationRequest pide aprobación para ejecutar los previews.
	// La respuesta llega fuera de banda (el supervisor espera en su canal).
	SendConfirmationRequest(ctx context.Context, previews []RebalancePreview) error
}
