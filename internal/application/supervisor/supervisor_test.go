package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/internal/adapters/storage"
	"github.com/alejandrodnm/rotabot/internal/application/marketdata"
	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

type fakeStrategy struct {
	name       string
	rebalances int
	err        error
}

func (s *fakeStrategy) Name() string { return s.name }
func (s *fakeStrategy) Rebalance(context.Context) error {
	s.rebalances++
	return s.err
}
func (s *fakeStrategy) Preview(context.Context) (ports.RebalancePreview, error) {
	return ports.RebalancePreview{Strategy: s.name}, nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	countdowns    []int
	previews      int
	confirmations int
	errorTitles   []string
	warnings      []bool
}

func (n *fakeNotifier) SendStartup(context.Context, string) error { return nil }
func (n *fakeNotifier) SendCountdown(_ context.Context, days int, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.countdowns = append(n.countdowns, days)
	return nil
}
func (n *fakeNotifier) SendRebalancePreview(context.Context, []ports.RebalancePreview) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.previews++
	return nil
}
func (n *fakeNotifier) SendError(_ context.Context, title, _ string, warning bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errorTitles = append(n.errorTitles, title)
	n.warnings = append(n.warnings, warning)
}
func (n *fakeNotifier) SendConfirmationRequest(context.Context, []ports.RebalancePreview) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations++
	return nil
}

type fakeClock struct {
	ports.Broker
	clock ports.Clock
}

func (c *fakeClock) GetClock(context.Context) (ports.Clock, error) { return c.clock, nil }

type nullProvider struct{}

func (nullProvider) Download(context.Context, []string, string) (*domain.BarHistory, error) {
	h := domain.NewBarHistory(nil)
	h.Closes["AAA"] = []float64{100}
	return h, nil
}

func newTestSupervisor(t *testing.T, env string, strategies ...ports.Strategy) (*Supervisor, *storage.FlagStore, *fakeNotifier) {
	t.Helper()
	dir := t.TempDir()
	flag := storage.NewFlagStore(filepath.Join(dir, "last_rebalance"))
	cache := storage.NewBarCache(filepath.Join(dir, "bars.msgpack"), time.Hour)
	loader := marketdata.New(nullProvider{}, cache, marketdata.Config{
		Universe: []string{"AAA"}, MaxRetries: 1, RetryDelay: time.Millisecond,
	})
	notifier := &fakeNotifier{}

	sup := New(
		Config{Environment: env, ConfirmationWait: 25 * time.Millisecond},
		strategies, &fakeClock{clock: ports.Clock{IsOpen: true}}, flag,
		loader, notifier, nil, nil,
	)
	return sup, flag, notifier
}

func TestConfirmApprove(t *testing.T) {
	sup, _, notifier := newTestSupervisor(t, "local")

	sup.Approve()
	assert.True(t, sup.confirm(context.Background(), nil))
	assert.Equal(t, 1, notifier.confirmations)
}

func TestConfirmReject(t *testing.T) {
	sup, _, _ := newTestSupervisor(t, "local")

	sup.Reject()
	assert.False(t, sup.confirm(context.Background(), nil))
}

func TestConfirmTimeoutExecutes(t *testing.T) {
	sup, _, _ := newTestSupervisor(t, "local")

	// Nadie responde: al expirar la espera se ejecuta igual.
	assert.True(t, sup.confirm(context.Background(), nil))
}

func TestExecuteWritesFlagOnSuccess(t *testing.T) {
	a := &fakeStrategy{name: "a"}
	b := &fakeStrategy{name: "b"}
	sup, flag, notifier := newTestSupervisor(t, "prod", a, b)

	sup.execute(context.Background())

	assert.Equal(t, 1, a.rebalances)
	assert.Equal(t, 1, b.rebalances)
	assert.True(t, flag.RebalancedToday())
	assert.Equal(t, 1, notifier.previews)
}

func TestExecutePartialFailureSkipsFlag(t *testing.T) {
	ok := &fakeStrategy{name: "ok"}
	bad := &fakeStrategy{name: "bad", err: errors.New("boom")}
	sup, flag, notifier := newTestSupervisor(t, "prod", ok, bad)

	sup.execute(context.Background())

	// Ambas corrieron, pero el día no se marca: mañana reintenta la flota.
	assert.Equal(t, 1, ok.rebalances)
	assert.Equal(t, 1, bad.rebalances)
	assert.False(t, flag.RebalancedToday())
	require.NotEmpty(t, notifier.errorTitles)
	assert.False(t, notifier.warnings[0]) // escalado como error, no warning
}

func TestExecuteRejectedRunsNothing(t *testing.T) {
	s := &fakeStrategy{name: "a"}
	sup, flag, _ := newTestSupervisor(t, "local", s)

	sup.Reject()
	sup.execute(context.Background())

	assert.Zero(t, s.rebalances)
	assert.False(t, flag.RebalancedToday())
}

func TestTickSkipsWhenAlreadyRebalanced(t *testing.T) {
	s := &fakeStrategy{name: "a"}
	sup, flag, _ := newTestSupervisor(t, "prod", s)

	require.NoError(t, flag.WriteToday())
	sup.tick(context.Background())

	assert.Zero(t, s.rebalances)
}

func TestAddTradingDays(t *testing.T) {
	// Viernes 2026-08-07 + 1 trading day = lunes 10.
	friday := time.Date(2026, 8, 7, 0, 0, 0, 0, domain.NYLocation())
	got := addTradingDays(friday, 1)
	assert.Equal(t, time.Date(2026, 8, 10, 0, 0, 0, 0, domain.NYLocation()), got)

	got = addTradingDays(friday, 5)
	assert.Equal(t, time.Date(2026, 8, 14, 0, 0, 0, 0, domain.NYLocation()), got)
}

func TestWithinSession(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 8, 5, h, m, 0, 0, domain.NYLocation())
	}
	assert.False(t, withinSession(at(9, 29)))
	assert.True(t, withinSession(at(9, 30)))
	assert.True(t, withinSession(at(15, 59)))
	assert.False(t, withinSession(at(16, 0)))
}
