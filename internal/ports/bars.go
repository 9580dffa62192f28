package ports

import (
	"context"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// BarProvider descarga cierres diarios ajustados para un conjunto de tickers.
type BarProvider interface {
	// Download devuelve la matriz de closes del periodo (p.ej. "3mo").
	// Tickers sin datos son columnas ausentes; fechas parciales, celdas NaN.
	Download(ctx context.Context, tickers []string, period string) (*domain.BarHistory, error)
}
