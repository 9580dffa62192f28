package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alejandrodnm/rotabot/config"
	"github.com/alejandrodnm/rotabot/internal/adapters/alpaca"
	"github.com/alejandrodnm/rotabot/internal/adapters/notify"
	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/adapters/yahoo"
	"github.com/alejandrodnm/rotabot/internal/application/ledger"
	"github.com/alejandrodnm/rotabot/internal/application/marketdata"
	"github.com/alejandrodnm/rotabot/internal/application/strategy"
	"github.com/alejandrodnm/rotabot/internal/application/supervisor"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config.yaml", "ruta del archivo de configuración")
	once := flag.Bool("once", false, "ejecutar un rebalance inmediato y salir")
	preview := flag.Bool("preview", false, "imprimir los previews sin ejecutar y salir")
	verbose := flag.Bool("verbose", false, "forzar nivel debug")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rotabot: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg, *verbose)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once, *preview); err != nil {
		slog.Error("rotabot exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, once, preview bool) error {
	client := yahoo.NewClient("", cfg.Data.DownloadWorkers)
	cache := storage.NewBarCache(filepath.Join(cfg.Data.Dir, "bars.msgpack"), cfg.CacheTTL())
	loader := marketdata.New(client, cache, marketdata.Config{
		Universe:     domain.UnionUniverse(cfg.Universe.Additions),
		Period:       cfg.Data.Period,
		MaxRetries:   cfg.Data.MaxRetries,
		RetryDelay:   cfg.RetryDelay(),
		RetryEnabled: cfg.RetryEnabled(),
	})

	var (
		strategies []ports.Strategy
		clock      ports.Broker
	)

	for _, sc := range cfg.Strategies {
		if !sc.Enabled {
			continue
		}
		key, secret := sc.Credentials()
		broker := alpaca.NewBroker(key, secret, sc.Paper)
		if clock == nil {
			clock = broker
		}
		universe, err := universeFor(sc.Universe, cfg.Universe.Additions)
		if err != nil {
			return err
		}
		strategies = append(strategies, strategy.NewMomentum(sc.Name, broker, loader, universe, sc.TopN))
		slog.Info("strategy configured",
			"name", sc.Name, "universe", sc.Universe, "top_n", sc.TopN, "paper", sc.Paper)
	}

	var (
		snapshotFn  func(ctx context.Context) error
		integrityFn func(ctx context.Context) (bool, string, error)
	)

	if cfg.Live.Enabled {
		key, secret := cfg.Live.Credentials()
		liveBroker := alpaca.NewBroker(key, secret, cfg.Live.Paper)
		clock = liveBroker // la cuenta live manda sobre el clock

		store, err := storage.NewLedgerStore(cfg.Live.LedgerDSN)
		if err != nil {
			return err
		}
		defer store.Close()

		book, err := ledger.New(ctx, store)
		if err != nil {
			return err
		}

		strategies = append(strategies,
			strategy.NewLive("live", liveBroker, loader, book, cfg.Universe.Additions, cfg.Live.TopN))

		snapshotFn = func(ctx context.Context) error {
			history, err := loader.Load(ctx)
			if err != nil {
				return err
			}
			return book.Snapshot(ctx, domain.NowNY(), history.LastCloses())
		}
		integrityFn = func(ctx context.Context) (bool, string, error) {
			history, err := loader.Load(ctx)
			if err != nil {
				return false, "", err
			}
			return book.VerifyIntegrity(ctx, liveBroker, history.LastCloses())
		}
		slog.Info("live account configured", "top_n", cfg.Live.TopN, "ledger", cfg.Live.LedgerDSN)
	}

	notifier := buildNotifier(cfg)

	if preview {
		return runPreview(ctx, strategies, notifier)
	}
	if once {
		return runOnce(ctx, strategies, storage.NewFlagStore(flagPath(cfg)))
	}

	sup := supervisor.New(
		supervisor.Config{
			Environment:      cfg.Schedule.Environment,
			ConfirmationWait: cfg.ConfirmationWait(),
		},
		strategies, clock, storage.NewFlagStore(flagPath(cfg)),
		loader, notifier, snapshotFn, integrityFn,
	)
	return sup.Start(ctx)
}

func flagPath(cfg *config.Config) string {
	return filepath.Join(cfg.Data.Dir, "last_rebalance")
}

func universeFor(name string, additions []string) ([]string, error) {
	switch name {
	case "low":
		return domain.LowRiskUniverse(additions), nil
	case "medium":
		return domain.MediumRiskUniverse(), nil
	case "high":
		return domain.HighRiskUniverse(), nil
	case "union":
		return domain.UnionUniverse(additions), nil
	}
	return nil, fmt.Errorf("unknown universe %q: %w", name, domain.ErrConfigMissing)
}

func buildNotifier(cfg *config.Config) ports.Notifier {
	console := notify.NewConsole()
	token, chatID := cfg.Notify.TelegramCredentials()
	if token == "" || chatID == "" {
		slog.Info("telegram not configured, console notifications only")
		return console
	}
	return notify.NewMulti(console, notify.NewTelegram("", token, chatID))
}

// runPreview imprime el plan de cada strategy sin tocar las cuentas.
func runPreview(ctx context.Context, strategies []ports.Strategy, notifier ports.Notifier) error {
	var previews []ports.RebalancePreview
	for _, s := range strategies {
		p, err := s.Preview(ctx)
		if err != nil {
			slog.Warn("preview failed", "strategy", s.Name(), "err", err)
			continue
		}
		previews = append(previews, p)
	}
	if len(previews) == 0 {
		return errors.New("no strategy produced a preview")
	}
	return notifier.SendRebalancePreview(ctx, previews)
}

// runOnce salta el scheduler y rota la flota una vez.
func runOnce(ctx context.Context, strategies []ports.Strategy, flag *storage.FlagStore) error {
	var failures []error
	for _, s := range strategies {
		slog.Info("rebalancing", "strategy", s.Name())
		if err := s.Rebalance(ctx); err != nil {
			slog.Error("strategy failed", "strategy", s.Name(), "err", err)
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	return flag.WriteToday()
}

func setupLogger(cfg *config.Config, verbose bool) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
