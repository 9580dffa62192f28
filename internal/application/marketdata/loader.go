package marketdata

// loader.go — la descarga única del universo de unión, con residual retry
// y snapshot on-disk con TTL.
//
// El retry es residual-aware: cada intento descarga solo los tickers que
// siguen sin datos, y los resultados se concatenan column-wise. Distinto del
// retry genérico de los HTTP clients (N intentos sobre la misma petición).

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Config are the loader knobs, wired from the top-level config.
type Config struct {
	Universe     []string
	Period       string
	MaxRetries   int
	RetryDelay   time.Duration
	RetryEnabled bool
}

// Loader implements the cached bulk download of the full union universe.
type Loader struct {
	provider ports.BarProvider
	cache    *storage.BarCache
	cfg      Config
}

// New creates a loader over the provider and the on-disk snapshot.
func New(provider ports.BarProvider, cache *storage.BarCache, cfg Config) *Loader {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &Loader{provider: provider, cache: cache, cfg: cfg}
}

// Load returns adjusted daily closes for the union universe. Cache hit
// dentro del TTL → snapshot byte-igual sin tocar al provider; miss →
// descarga fresca y overwrite atómico del snapshot.
func (l *Loader) Load(ctx context.Context) (*domain.BarHistory, error) {
	if cached, ok, err := l.cache.Load(); err != nil {
		slog.Warn("marketdata: cache read failed, downloading", "err", err)
	} else if ok {
		slog.Debug("marketdata: cache hit", "tickers", len(cached.Closes))
		return cached, nil
	}

	history, err := l.download(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.cache.Save(history); err != nil {
		slog.Warn("marketdata: snapshot write failed", "err", err)
	}
	return history, nil
}

// download runs the residual-retry loop over the provider.
func (l *Loader) download(ctx context.Context) (*domain.BarHistory, error) {
	attempts := l.cfg.MaxRetries
	if !l.cfg.RetryEnabled {
		attempts = 1
	}

	accumulated := domain.NewBarHistory(nil)
	residual := l.cfg.Universe

	for attempt := 1; attempt <= attempts; attempt++ {
		batch, err := l.provider.Download(ctx, residual, l.cfg.Period)
		if err != nil {
			slog.Warn("marketdata: download attempt failed",
				"attempt", attempt, "tickers", len(residual), "err", err)
		} else {
			accumulated.Merge(batch)
		}

		residual = accumulated.MissingFrom(l.cfg.Universe)
		if len(residual) == 0 {
			break
		}
		if attempt == attempts {
			break
		}

		slog.Info("marketdata: retrying missing tickers",
			"attempt", attempt, "missing", len(residual), "delay", l.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("marketdata.Load: %w", ctx.Err())
		case <-time.After(l.cfg.RetryDelay):
		}
	}

	if len(residual) > 0 {
		slog.Warn("marketdata: tickers still missing after final attempt",
			"count", len(residual), "tickers", residual)
	}

	if len(accumulated.Closes) == 0 {
		return nil, fmt.Errorf("marketdata.Load: no usable bars for %d tickers: %w",
			len(l.cfg.Universe), domain.ErrDataUnavailable)
	}
	return accumulated, nil
}
