package notify

import (
	"context"
	"errors"
	"time"

	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Multi fans every notification out to all targets (típicamente console +
// Telegram). Los errores se acumulan; un target caído no silencia al resto.
type Multi struct {
	targets []ports.Notifier
}

// NewMulti creates a fan-out notifier.
func NewMulti(targets ...ports.Notifier) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) SendStartup(ctx context.Context, summary string) error {
	var errs []error
	for _, t := range m.targets {
		errs = append(errs, t.SendStartup(ctx, summary))
	}
	return errors.Join(errs...)
}

func (m *Multi) SendCountdown(ctx context.Context, days int, nextDate time.Time) error {
	var errs []error
	for _, t := range m.targets {
		errs = append(errs, t.SendCountdown(ctx, days, nextDate))
	}
	return errors.Join(errs...)
}

func (m *Multi) SendRebalancePreview(ctx context.Context, previews []ports.RebalancePreview) error {
	var errs []error
	for _, t := range m.targets {
		errs = append(errs, t.SendRebalancePreview(ctx, previews))
	}
	return errors.Join(errs...)
}

func (m *Multi) SendError(ctx context.Context, title, detail string, warning bool) {
	for _, t := range m.targets {
		t.SendError(ctx, title, detail, warning)
	}
}

func (m *Multi) SendConfirmationRequest(ctx context.Context, previews []ports.RebalancePreview) error {
	var errs []error
	for _, t := range m.targets {
		errs = append(errs, t.SendConfirmationRequest(ctx, previews))
	}
	return errors.Join(errs...)
}
