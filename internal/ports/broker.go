package ports

import (
	"context"
	"time"
)

// Clock is the broker's view of the market session.
type Clock struct {
	IsOpen    bool
	Timestamp time.Time
	NextOpen  time.Time
}

// Account is the brokerage account snapshot the core consumes.
type Account struct {
	Cash           float64
	Equity         float64
	PortfolioValue float64
}

// Position is one open broker position.
type Position struct {
	Symbol       string
	Qty          float64
	MarketValue  float64
	UnrealizedPL float64
}

// Asset is the broker's metadata for one symbol.
type Asset struct {
	Symbol       string
	Status       string // "active" cuando es operable
	Tradable     bool
	Fractionable bool
}

// MarketBuy is a market BUY request. Exactamente uno de Qty/Notional es > 0:
// Qty para assets no fraccionables (entero), Notional para fraccionables.
type MarketBuy struct {
	Symbol        string
	Qty           float64
	Notional      float64
	ClientOrderID string
}

// OrderFill is the observed execution state of a submitted order.
type OrderFill struct {
	FilledQty      float64
	FilledAvgPrice float64
	Filled         bool
}

// Broker es el contrato mínimo que el core necesita del brokerage API.
// Cada strategy instance posee su propio cliente (sub-cuenta separada);
// el flag paper/live selecciona el endpoint en el adapter.
type Broker interface {
	GetClock(ctx context.Context) (Clock, error)
	GetAccount(ctx context.Context) (Account, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetAsset(ctx context.Context, symbol string) (Asset, error)

	// SubmitMarketBuy submits a DAY market buy and returns the broker order id.
	SubmitMarketBuy(ctx context.Context, req MarketBuy) (string, error)

	// GetOrder returns the current fill state of the order.
	GetOrder(ctx context.Context, orderID string) (OrderFill, error)

	// ClosePosition liquidates the full position in the symbol.
	ClosePosition(ctx context.Context, symbol string) error
}
