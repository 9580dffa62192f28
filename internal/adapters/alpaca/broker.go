package alpaca

// broker.go — adapter de ports.Broker sobre el SDK v3 de Alpaca.
//
// El core trabaja en float64; los decimals del SDK se convierten solo en
// este borde. Dos credenciales por strategy → sub-cuentas separadas; el
// flag paper selecciona el endpoint.

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/rotabot/internal/ports"
)

const (
	liveBaseURL  = "https://api.alpaca.markets"
	paperBaseURL = "https://paper-api.alpaca.markets"
)

// Broker implements ports.Broker for one Alpaca (sub-)account.
type Broker struct {
	client *alpaca.Client
}

// NewBroker creates a broker client for the given credential pair.
func NewBroker(apiKey, apiSecret string, paper bool) *Broker {
	base := liveBaseURL
	if paper {
		base = paperBaseURL
	}
	return &Broker{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   base,
		}),
	}
}

// GetClock returns the broker's market session view.
func (b *Broker) GetClock(_ context.Context) (ports.Clock, error) {
	clock, err := b.client.GetClock()
	if err != nil {
		return ports.Clock{}, fmt.Errorf("alpaca.GetClock: %w", err)
	}
	return ports.Clock{
		IsOpen:    clock.IsOpen,
		Timestamp: clock.Timestamp,
		NextOpen:  clock.NextOpen,
	}, nil
}

// GetAccount returns cash, equity and portfolio value.
func (b *Broker) GetAccount(_ context.Context) (ports.Account, error) {
	account, err := b.client.GetAccount()
	if err != nil {
		return ports.Account{}, fmt.Errorf("alpaca.GetAccount: %w", err)
	}
	return ports.Account{
		Cash:           account.Cash.InexactFloat64(),
		Equity:         account.Equity.InexactFloat64(),
		PortfolioValue: account.PortfolioValue.InexactFloat64(),
	}, nil
}

// GetPositions returns every open position.
func (b *Broker) GetPositions(_ context.Context) ([]ports.Position, error) {
	positions, err := b.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca.GetPositions: %w", err)
	}
	out := make([]ports.Position, 0, len(positions))
	for _, p := range positions {
		pos := ports.Position{
			Symbol: p.Symbol,
			Qty:    p.Qty.InexactFloat64(),
		}
		if p.MarketValue != nil {
			pos.MarketValue = p.MarketValue.InexactFloat64()
		}
		if p.UnrealizedPL != nil {
			pos.UnrealizedPL = p.UnrealizedPL.InexactFloat64()
		}
		out = append(out, pos)
	}
	return out, nil
}

// GetAsset returns the broker metadata for one symbol.
func (b *Broker) GetAsset(_ context.Context, symbol string) (ports.Asset, error) {
	asset, err := b.client.GetAsset(symbol)
	if err != nil {
		return ports.Asset{}, fmt.Errorf("alpaca.GetAsset: %s: %w", symbol, err)
	}
	return ports.Asset{
		Symbol:       asset.Symbol,
		Status:       string(asset.Status),
		Tradable:     asset.Tradable,
		Fractionable: asset.Fractionable,
	}, nil
}

// SubmitMarketBuy submits a DAY market buy, by notional or integer qty.
func (b *Broker) SubmitMarketBuy(_ context.Context, req ports.MarketBuy) (string, error) {
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Side:          alpaca.Buy,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: req.ClientOrderID,
	}
	switch {
	case req.Notional > 0:
		notional := decimal.NewFromFloat(req.Notional)
		orderReq.Notional = &notional
	case req.Qty > 0:
		qty := decimal.NewFromFloat(req.Qty)
		orderReq.Qty = &qty
	default:
		return "", fmt.Errorf("alpaca.SubmitMarketBuy: %s: neither qty nor notional", req.Symbol)
	}

	order, err := b.client.PlaceOrder(orderReq)
	if err != nil {
		return "", fmt.Errorf("alpaca.SubmitMarketBuy: %s: %w", req.Symbol, err)
	}
	return order.ID, nil
}

// GetOrder returns the current fill state of the order.
func (b *Broker) GetOrder(_ context.Context, orderID string) (ports.OrderFill, error) {
	order, err := b.client.GetOrder(orderID)
	if err != nil {
		return ports.OrderFill{}, fmt.Errorf("alpaca.GetOrder: %s: %w", orderID, err)
	}
	fill := ports.OrderFill{FilledQty: order.FilledQty.InexactFloat64()}
	if order.FilledAvgPrice != nil {
		fill.FilledAvgPrice = order.FilledAvgPrice.InexactFloat64()
	}
	fill.Filled = fill.FilledQty > 0 && fill.FilledAvgPrice > 0
	return fill, nil
}

// ClosePosition liquidates the full position in the symbol.
func (b *Broker) ClosePosition(_ context.Context, symbol string) error {
	if _, err := b.client.ClosePosition(symbol, alpaca.ClosePositionRequest{}); err != nil {
		return fmt.Errorf("alpaca.ClosePosition: %s: %w", symbol, err)
	}
	return nil
}
