package strategy

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// filterTradable drops basket entries the broker reports as not tradable or
// not active. Si el lookup del asset falla, el candidato se mantiene (un
// metadata endpoint caído no debe vaciar el basket) pero se asume NO
// fraccionable: ante la duda la orden va por qty entera. Devuelve también el
// mapa de fraccionabilidad, que decide notional vs qty al abrir.
func filterTradable(ctx context.Context, broker ports.Broker, ranks []domain.MomentumRank) ([]domain.MomentumRank, map[string]bool) {
	kept := make([]domain.MomentumRank, 0, len(ranks))
	fractionable := make(map[string]bool, len(ranks))

	for _, r := range ranks {
		asset, err := broker.GetAsset(ctx, r.Ticker)
		if err != nil {
			slog.Warn("strategy: asset lookup failed, keeping candidate",
				"ticker", r.Ticker, "err", err)
			kept = append(kept, r)
			fractionable[r.Ticker] = false
			continue
		}
		if asset.Status != "active" || !asset.Tradable {
			slog.Info("strategy: dropping untradable candidate",
				"ticker", r.Ticker, "status", asset.Status, "tradable", asset.Tradable)
			continue
		}
		kept = append(kept, r)
		fractionable[r.Ticker] = asset.Fractionable
	}
	return kept, fractionable
}
