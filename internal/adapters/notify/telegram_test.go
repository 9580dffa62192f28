package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/internal/domain"
	"github.com/alejandrodnm/rotabot/internal/ports"
)

func telegramServer(t *testing.T, ok bool) (*httptest.Server, *[]sendMessageRequest) {
	t.Helper()
	var got []sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))
		require.Contains(t, r.URL.Path, "bottoken-123")

		var req sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)

		fmt.Fprintf(w, `{"ok": %t, "description": "test"}`, ok)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestTelegramSendCountdown(t *testing.T) {
	server, got := telegramServer(t, true)
	tg := NewTelegram(server.URL, "token-123", "chat-9")

	next := time.Date(2026, 9, 1, 0, 0, 0, 0, domain.NYLocation())
	require.NoError(t, tg.SendCountdown(context.Background(), 7, next))

	require.Len(t, *got, 1)
	assert.Equal(t, "chat-9", (*got)[0].ChatID)
	assert.Contains(t, (*got)[0].Text, "7 trading days")
	assert.Contains(t, (*got)[0].Text, "2026-09-01")
}

func TestTelegramSendRebalancePreview(t *testing.T) {
	server, got := telegramServer(t, true)
	tg := NewTelegram(server.URL, "token-123", "chat-9")

	previews := []ports.RebalancePreview{{
		Strategy: "momentum-low",
		Basket:   []domain.MomentumRank{{Ticker: "AAPL", Return: 0.123}},
		ToClose:  []string{"OLD1"},
		ToOpen:   []string{"AAPL"},
	}}
	require.NoError(t, tg.SendRebalancePreview(context.Background(), previews))

	require.Len(t, *got, 1)
	text := (*got)[0].Text
	assert.Contains(t, text, "momentum-low")
	assert.Contains(t, text, "AAPL")
	assert.Contains(t, text, "+12.30%")
	assert.Contains(t, text, "close: OLD1")
}

func TestTelegramAPIRejection(t *testing.T) {
	server, _ := telegramServer(t, false)
	tg := NewTelegram(server.URL, "token-123", "chat-9")

	err := tg.SendStartup(context.Background(), "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test")
}

func TestTelegramUnconfigured(t *testing.T) {
	tg := NewTelegram("", "", "")
	assert.Error(t, tg.SendStartup(context.Background(), "x"))
}

func TestTelegramSendErrorSwallowsFailure(t *testing.T) {
	tg := NewTelegram("http://127.0.0.1:0", "token", "chat")
	// No panic ni error propagado aunque el endpoint no exista.
	tg.SendError(context.Background(), "title", "detail", false)
}

func TestConsolePreviewTable(t *testing.T) {
	var buf strings.Builder
	console := NewConsoleWriter(&buf)

	previews := []ports.RebalancePreview{{
		Strategy: "momentum-low",
		Basket: []domain.MomentumRank{
			{Ticker: "AAPL", Return: 0.20},
			{Ticker: "MSFT", Return: 0.10},
		},
		ToClose: []string{"OLD1"},
		ToOpen:  []string{"AAPL"},
	}}
	require.NoError(t, console.SendRebalancePreview(context.Background(), previews))

	out := buf.String()
	assert.Contains(t, out, "momentum-low")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "+20.00%")
	assert.Contains(t, out, "close: OLD1")
}

func TestMultiFansOut(t *testing.T) {
	var a, b strings.Builder
	multi := NewMulti(NewConsoleWriter(&a), NewConsoleWriter(&b))

	require.NoError(t, multi.SendStartup(context.Background(), "hello"))
	assert.Contains(t, a.String(), "hello")
	assert.Contains(t, b.String(), "hello")

	multi.SendError(context.Background(), "boom", "detail", true)
	assert.Contains(t, a.String(), "boom")
	assert.Contains(t, b.String(), "boom")
}
