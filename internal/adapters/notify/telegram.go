package notify

// telegram.go — notifier outbound contra el Bot API de Telegram.
//
// Best-effort: los métodos devuelven error para que el caller lo loguee,
// pero SendError lo suprime internamente — el error path del scheduler no
// puede re-entrar en el ciclo logging → notificación.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/rotabot/internal/ports"
)

const (
	telegramBase   = "https://api.telegram.org"
	requestTimeout = 30 * time.Second

	// Bot API: 30 msg/s globales; 1/s con burst 5 es más que suficiente.
	messagesPerSec = 1
	messageBurst   = 5
)

// Telegram implements ports.Notifier over the Bot API sendMessage endpoint.
type Telegram struct {
	http    *http.Client
	base    string
	token   string
	chatID  string
	limiter *rate.Limiter
}

// NewTelegram creates a notifier for the given bot token and chat.
// Si base está vacío usa el endpoint público.
func NewTelegram(base, token, chatID string) *Telegram {
	if base == "" {
		base = telegramBase
	}
	return &Telegram{
		http:    &http.Client{Timeout: requestTimeout},
		base:    base,
		token:   token,
		chatID:  chatID,
		limiter: rate.NewLimiter(messagesPerSec, messageBurst),
	}
}

// SendStartup notifies that the bot came up, with the fleet summary.
func (t *Telegram) SendStartup(ctx context.Context, summary string) error {
	return t.send(ctx, "🚀 rotabot started\n\n"+summary)
}

// SendCountdown notifies how many trading days remain until the next rebalance.
func (t *Telegram) SendCountdown(ctx context.Context, days int, nextDate time.Time) error {
	return t.send(ctx, fmt.Sprintf("⏳ %d trading days until next rebalance (~%s)",
		days, nextDate.Format("2006-01-02")))
}

// SendRebalancePreview sends the per-strategy basket and diff.
func (t *Telegram) SendRebalancePreview(ctx context.Context, previews []ports.RebalancePreview) error {
	return t.send(ctx, formatPreviews(previews))
}

// SendError escalates an error. Sus propios fallos se tragan con un log local.
func (t *Telegram) SendError(ctx context.Context, title, detail string, warning bool) {
	icon := "🚨"
	if warning {
		icon = "⚠️"
	}
	if err := t.send(ctx, fmt.Sprintf("%s %s\n\n%s", icon, title, detail)); err != nil {
		slog.Warn("notify: error delivery failed", "title", title, "err", err)
	}
}

// SendConfirmationRequest asks for approval before executing the previews.
func (t *Telegram) SendConfirmationRequest(ctx context.Context, previews []ports.RebalancePreview) error {
	msg := "❓ Rebalance due — approve?\n\n" + formatPreviews(previews) +
		"\nReply: /rebalance approve | /rebalance reject"
	return t.send(ctx, msg)
}

func formatPreviews(previews []ports.RebalancePreview) string {
	var sb strings.Builder
	for _, p := range previews {
		fmt.Fprintf(&sb, "— %s —\n", p.Strategy)
		for i, r := range p.Basket {
			fmt.Fprintf(&sb, "%2d. %-6s %+.2f%%\n", i+1, r.Ticker, r.Return*100)
		}
		if len(p.ToClose) > 0 {
			fmt.Fprintf(&sb, "close: %s\n", strings.Join(p.ToClose, ", "))
		}
		if len(p.ToOpen) > 0 {
			fmt.Fprintf(&sb, "open:  %s\n", strings.Join(p.ToOpen, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// send posts one sendMessage call with rate limiting.
func (t *Telegram) send(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("notify.send: telegram not configured")
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify.send: rate limiter: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("notify.send: marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify.send: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify.send: %w", err)
	}
	defer resp.Body.Close()

	var parsed sendMessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&parsed); err != nil {
		return fmt.Errorf("notify.send: decode: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("notify.send: telegram: %s", parsed.Description)
	}
	return nil
}
