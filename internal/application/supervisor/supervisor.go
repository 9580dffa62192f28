package supervisor

// supervisor.go — el scheduler del bot: trigger diario a las 10:00 NY con
// cadena de preconditions (flag del día, fin de semana, clock del broker,
// countdown), confirmación opcional en modo local, snapshot de cierre y
// watchdog horario de integridad.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/application/marketdata"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

const (
	rebalanceSpec = "0 10 * * MON-FRI"
	snapshotSpec  = "30 16 * * MON-FRI"
	watchdogSpec  = "0 * * * *"

	sessionOpenHour  = 9
	sessionOpenMin   = 30
	sessionCloseHour = 16
)

// Config son los knobs del supervisor.
type Config struct {
	Environment      string // local exige confirmación; prod ejecuta directo
	ConfirmationWait time.Duration
}

// Supervisor orquesta la flota completa bajo un solo reloj.
type Supervisor struct {
	cfg        Config
	strategies []ports.Strategy
	clock      ports.Broker // fuente del market clock (cualquier cuenta sirve)
	flag       *storage.FlagStore
	loader     *marketdata.Loader
	notifier   ports.Notifier

	// snapshot e integrity son opcionales: solo la cuenta live los aporta.
	snapshot  func(ctx context.Context) error
	integrity func(ctx context.Context) (bool, string, error)

	cron      *cron.Cron
	approveCh chan bool
	ctx       context.Context
}

// New crea el supervisor. snapshot/integrity pueden ser nil.
func New(cfg Config, strategies []ports.Strategy, clock ports.Broker, flag *storage.FlagStore,
	loader *marketdata.Loader, notifier ports.Notifier,
	snapshot func(ctx context.Context) error,
	integrity func(ctx context.Context) (bool, string, error)) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		strategies: strategies,
		clock:      clock,
		flag:       flag,
		loader:     loader,
		notifier:   notifier,
		snapshot:   snapshot,
		integrity:  integrity,
		cron:       cron.New(cron.WithLocation(domain.NYLocation())),
		approveCh:  make(chan bool, 1),
	}
}

// Approve desbloquea la confirmación pendiente en modo local.
func (s *Supervisor) Approve() { s.signal(true) }

// Reject cancela la confirmación pendiente en modo local.
func (s *Supervisor) Reject() { s.signal(false) }

func (s *Supervisor) signal(approved bool) {
	select {
	case s.approveCh <- approved:
	default: // sin confirmación pendiente
	}
}

// Start registra los jobs, precalienta la cache de market data, anuncia el
// arranque y evalúa el trigger una vez (por si el proceso arranca después de
// las 10:00 de un día due). Bloquea hasta que ctx se cancele.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx = ctx

	if _, err := s.cron.AddFunc(rebalanceSpec, func() { s.tick(s.ctx) }); err != nil {
		return fmt.Errorf("supervisor.Start: rebalance job: %w", err)
	}
	if s.snapshot != nil {
		if _, err := s.cron.AddFunc(snapshotSpec, func() { s.runSnapshot(s.ctx) }); err != nil {
			return fmt.Errorf("supervisor.Start: snapshot job: %w", err)
		}
	}
	if s.integrity != nil {
		if _, err := s.cron.AddFunc(watchdogSpec, func() { s.runWatchdog(s.ctx) }); err != nil {
			return fmt.Errorf("supervisor.Start: watchdog job: %w", err)
		}
	}

	// Pre-warm: una descarga fallida aquí no es fatal, el trigger reintenta.
	if _, err := s.loader.Load(ctx); err != nil {
		slog.Warn("supervisor: market data pre-warm failed", "err", err)
	}

	summary := fmt.Sprintf("%d strategies, env=%s", len(s.strategies), s.cfg.Environment)
	if err := s.notifier.SendStartup(ctx, summary); err != nil {
		slog.Warn("supervisor: startup notification failed", "err", err)
	}

	s.tick(ctx)

	s.cron.Start()
	slog.Info("supervisor: scheduler running",
		"rebalance", rebalanceSpec, "strategies", len(s.strategies))

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done() // drenar jobs en vuelo
	slog.Info("supervisor: stopped")
	return nil
}

// tick es la cadena de preconditions del trigger diario.
func (s *Supervisor) tick(ctx context.Context) {
	now := domain.NowNY()

	if s.flag.RebalancedToday() {
		slog.Debug("supervisor: already rebalanced today")
		return
	}
	if !domain.IsWeekday(now) {
		slog.Debug("supervisor: weekend, skipping")
		return
	}

	clock, err := s.clock.GetClock(ctx)
	if err != nil {
		slog.Warn("supervisor: broker clock unavailable, skipping tick", "err", err)
		s.notifier.SendError(ctx, "clock unavailable", err.Error(), true)
		return
	}
	if !clock.IsOpen {
		// Weekday dentro de la ventana de sesión con mercado cerrado = holiday.
		if withinSession(now) {
			slog.Info("supervisor: market holiday, skipping", "date", domain.DateNY(now).Format("2006-01-02"))
		} else {
			slog.Debug("supervisor: market closed", "next_open", clock.NextOpen)
		}
		return
	}

	if last, ok := s.flag.LastDate(); ok {
		days := domain.DaysUntilRebalance(last, now)
		if days > 0 {
			slog.Info("supervisor: not due yet", "days_remaining", days)
			if err := s.notifier.SendCountdown(ctx, days, addTradingDays(now, days)); err != nil {
				slog.Warn("supervisor: countdown notification failed", "err", err)
			}
			return
		}
	} else {
		slog.Info("supervisor: no previous rebalance on record, due now")
	}

	s.execute(ctx)
}

// execute corre los previews, pide confirmación si aplica y lanza la flota.
func (s *Supervisor) execute(ctx context.Context) {
	previews := s.collectPreviews(ctx)

	if s.cfg.Environment == "local" {
		if !s.confirm(ctx, previews) {
			slog.Info("supervisor: rebalance rejected by operator")
			return
		}
	} else if len(previews) > 0 {
		if err := s.notifier.SendRebalancePreview(ctx, previews); err != nil {
			slog.Warn("supervisor: preview notification failed", "err", err)
		}
	}

	var failures []error
	for _, strat := range s.strategies {
		slog.Info("supervisor: rebalancing", "strategy", strat.Name())
		if err := strat.Rebalance(ctx); err != nil {
			slog.Error("supervisor: strategy failed", "strategy", strat.Name(), "err", err)
			failures = append(failures, fmt.Errorf("%s: %w", strat.Name(), err))
		}
	}

	if len(failures) > 0 {
		composite := fmt.Errorf("%v: %w", errors.Join(failures...), domain.ErrRebalanceFailed)
		s.notifier.SendError(ctx, "rebalance failed", composite.Error(), false)
		// Sin flag: el trigger de mañana reintenta la flota entera.
		return
	}

	if err := s.flag.WriteToday(); err != nil {
		slog.Error("supervisor: flag write failed", "err", err)
		s.notifier.SendError(ctx, "flag write failed", err.Error(), true)
		return
	}
	slog.Info("supervisor: fleet rebalance complete", "strategies", len(s.strategies))
}

// collectPreviews ejecuta Preview por strategy; fallos individuales se
// loguean y la strategy sale del mensaje, no del rebalance.
func (s *Supervisor) collectPreviews(ctx context.Context) []ports.RebalancePreview {
	var previews []ports.RebalancePreview
	for _, strat := range s.strategies {
		p, err := strat.Preview(ctx)
		if err != nil {
			slog.Warn("supervisor: preview failed", "strategy", strat.Name(), "err", err)
			continue
		}
		previews = append(previews, p)
	}
	return previews
}

// confirm pide aprobación y espera la respuesta. Timeout = aprobar: el bot es
// autónomo y un operador ausente no debe parar la rotación.
func (s *Supervisor) confirm(ctx context.Context, previews []ports.RebalancePreview) bool {
	if err := s.notifier.SendConfirmationRequest(ctx, previews); err != nil {
		slog.Warn("supervisor: confirmation request failed, executing", "err", err)
		return true
	}

	select {
	case approved := <-s.approveCh:
		return approved
	case <-time.After(s.cfg.ConfirmationWait):
		slog.Info("supervisor: confirmation timed out, executing", "wait", s.cfg.ConfirmationWait)
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Supervisor) runSnapshot(ctx context.Context) {
	if err := s.snapshot(ctx); err != nil {
		slog.Error("supervisor: snapshot failed", "err", err)
		s.notifier.SendError(ctx, "snapshot failed", err.Error(), true)
		return
	}
	slog.Info("supervisor: daily snapshot written")
}

func (s *Supervisor) runWatchdog(ctx context.Context) {
	ok, msg, err := s.integrity(ctx)
	if err != nil {
		slog.Warn("supervisor: integrity check errored", "err", err)
		return
	}
	if !ok {
		slog.Error("supervisor: ledger out of sync with broker", "detail", msg)
		s.notifier.SendError(ctx, "ledger reconciliation failed", msg, false)
		return
	}
	slog.Debug("supervisor: integrity ok", "detail", msg)
}

// withinSession reports whether t falls inside regular trading hours NY.
func withinSession(t time.Time) bool {
	h, m := t.Hour(), t.Minute()
	afterOpen := h > sessionOpenHour || (h == sessionOpenHour && m >= sessionOpenMin)
	beforeClose := h < sessionCloseHour
	return afterOpen && beforeClose
}

// addTradingDays avanza n weekdays desde t (estimación del próximo rebalance;
// no descuenta holidays).
func addTradingDays(t time.Time, n int) time.Time {
	d := domain.DateNY(t)
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if domain.IsWeekday(d) {
			n--
		}
	}
	return d
}
