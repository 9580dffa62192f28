package yahoo

// client.go — descarga bulk de cierres diarios ajustados vía el chart API v8.
//
// Un request por ticker, ejecutados por un worker pool con rate limiting
// compartido. Tickers que fallan quedan como columnas ausentes: el residual
// retry vive en el loader, no aquí.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

const (
	defaultBase = "https://query1.finance.yahoo.com"

	// Yahoo tolera ~2000 req/h por IP; 5/s con burst corto queda muy por debajo.
	requestsPerSec = 5
	burst          = 10

	maxRetries    = 2
	baseRetryWait = 500 * time.Millisecond
)

// Client implementa ports.BarProvider contra el chart API de Yahoo Finance.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	workers int
}

// NewClient crea un Client. Si base está vacío usa el endpoint público.
func NewClient(base string, workers int) *Client {
	if base == "" {
		base = defaultBase
	}
	if workers <= 0 {
		workers = 8
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(requestsPerSec, burst),
		workers: workers,
	}
}

// Download fetches adjusted daily closes for every ticker over the period
// (e.g. "3mo") and assembles them into one shared-date matrix.
func (c *Client) Download(ctx context.Context, tickers []string, period string) (*domain.BarHistory, error) {
	if len(tickers) == 0 {
		return domain.NewBarHistory(nil), nil
	}

	workCh := make(chan string, len(tickers))
	resultCh := make(chan *domain.BarHistory, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range workCh {
				col, err := c.fetchColumn(ctx, ticker, period)
				if err != nil {
					slog.Debug("yahoo: fetch failed", "ticker", ticker, "err", err)
					continue
				}
				resultCh <- col
			}
		}()
	}

	for _, t := range tickers {
		workCh <- t
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	history := domain.NewBarHistory(nil)
	for col := range resultCh {
		history.Merge(col)
	}

	slog.Debug("yahoo: download complete",
		"requested", len(tickers),
		"received", len(history.Closes),
		"rows", len(history.Dates),
	)
	return history, nil
}

// chartResponse es el subset del envelope v8 que consumimos.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Adjclose []adjcloseBlock `json:"adjclose"`
		Quote    []quoteBlock    `json:"quote"`
	} `json:"indicators"`
}

type adjcloseBlock struct {
	Adjclose []*float64 `json:"adjclose"`
}

type quoteBlock struct {
	Close []*float64 `json:"close"`
}

// fetchColumn downloads one ticker as a single-column history.
func (c *Client) fetchColumn(ctx context.Context, ticker, period string) (*domain.BarHistory, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d&events=div%%2Csplit",
		c.base, url.PathEscape(ticker), url.QueryEscape(period))

	var parsed chartResponse
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo.fetchColumn: %s: %s", ticker, parsed.Chart.Error.Code)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo.fetchColumn: %s: empty result", ticker)
	}

	result := parsed.Chart.Result[0]
	closes := adjCloses(result.Indicators.Adjclose, result.Indicators.Quote)
	if len(closes) == 0 || len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo.fetchColumn: %s: no close column", ticker)
	}

	dates := make([]time.Time, 0, len(result.Timestamp))
	col := make([]float64, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		dates = append(dates, domain.DateNY(time.Unix(ts, 0)))
		if i < len(closes) && closes[i] != nil {
			col = append(col, *closes[i])
		} else {
			col = append(col, math.NaN())
		}
	}

	history := domain.NewBarHistory(dates)
	history.Closes[ticker] = col
	return history, nil
}

// adjCloses prefiere adjclose (auto-adjust); cae a quote.close si no viene.
func adjCloses(adj []adjcloseBlock, quote []quoteBlock) []*float64 {
	if len(adj) > 0 && len(adj[0].Adjclose) > 0 {
		return adj[0].Adjclose
	}
	if len(quote) > 0 {
		return quote[0].Close
	}
	return nil
}

// getJSON hace un GET con rate limiting y retries sobre 429/5xx.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "rotabot/1.0")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			resp.Body.Close()
			return fmt.Errorf("status %d: %s", resp.StatusCode, body)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		return nil
	}
	return nil
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := baseRetryWait * time.Duration(1<<attempt)
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
