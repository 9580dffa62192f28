package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/rotabot/internal/ports"
)

// Console implementa ports.Notifier escribiendo tablas a stdout.
// Se usa en modo local / dry-run en lugar de (o además de) Telegram.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// SendStartup prints the fleet summary.
func (c *Console) SendStartup(_ context.Context, summary string) error {
	fmt.Fprintf(c.out, "[%s] rotabot started\n%s\n", time.Now().Format("15:04:05"), summary)
	return nil
}

// SendCountdown prints the days remaining until the next rebalance.
func (c *Console) SendCountdown(_ context.Context, days int, nextDate time.Time) error {
	fmt.Fprintf(c.out, "[%s] %d trading days until next rebalance (~%s)\n",
		time.Now().Format("15:04:05"), days, nextDate.Format("2006-01-02"))
	return nil
}

// SendRebalancePreview prints one table per strategy.
func (c *Console) SendRebalancePreview(_ context.Context, previews []ports.RebalancePreview) error {
	for _, p := range previews {
		fmt.Fprintf(c.out, "\n── %s ──\n", p.Strategy)

		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Ticker", "Return")
		for i, r := range p.Basket {
			table.Append(
				fmt.Sprintf("%d", i+1),
				r.Ticker,
				fmt.Sprintf("%+.2f%%", r.Return*100),
			)
		}
		table.Render()

		if len(p.ToClose) > 0 {
			fmt.Fprintf(c.out, "close: %s\n", strings.Join(p.ToClose, ", "))
		}
		if len(p.ToOpen) > 0 {
			fmt.Fprintf(c.out, "open:  %s\n", strings.Join(p.ToOpen, ", "))
		}
	}
	return nil
}

// SendError prints the error; nunca falla.
func (c *Console) SendError(_ context.Context, title, detail string, warning bool) {
	tag := "ERROR"
	if warning {
		tag = "WARN"
	}
	fmt.Fprintf(c.out, "[%s] %s: %s — %s\n", time.Now().Format("15:04:05"), tag, title, detail)
}

// SendConfirmationRequest prints the previews and the approval hint.
func (c *Console) SendConfirmationRequest(ctx context.Context, previews []ports.RebalancePreview) error {
	if err := c.SendRebalancePreview(ctx, previews); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "rebalance due — approve via chat, executing after timeout")
	return nil
}
