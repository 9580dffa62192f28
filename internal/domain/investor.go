package domain

import "time"

// Bucket is one of the three virtual sub-accounts of the live strategy.
type Bucket string

const (
	BucketLow    Bucket = "low"
	BucketMedium Bucket = "medium"
	BucketHigh   Bucket = "high"
)

// Buckets is the fixed iteration order for every per-bucket pass.
var Buckets = []Bucket{BucketLow, BucketMedium, BucketHigh}

// DefaultAllocation son los pesos por defecto al repartir depósitos y
// withdrawals sin bucket explícito. Suman exactamente 1.
var DefaultAllocation = map[Bucket]float64{
	BucketLow:    0.45,
	BucketMedium: 0.35,
	BucketHigh:   0.20,
}

// InvestorStatus marks whether an investor participates in allocations.
type InvestorStatus string

const (
	InvestorActive   InvestorStatus = "active"
	InvestorInactive InvestorStatus = "inactive"
)

// Investor is one row of the registry. Creado out-of-band; el ledger solo
// muta HighWatermark y LastFeeDate. Nunca se destruye: se desactiva.
type Investor struct {
	Name          string
	CreationDate  time.Time
	FeePercent    float64 // ∈ [0,1], sobre el exceso por encima del HWM
	IsFeeReceiver bool    // receives fees, never charged one
	HighWatermark float64 // ≥ 0
	LastFeeDate   time.Time
	Status        InvestorStatus
}

// Active reports whether the investor participates in allocations and fees.
func (i Investor) Active() bool { return i.Status == InvestorActive }

// OperationKind clasifica una entrada del operations log.
type OperationKind string

const (
	OpDeposit  OperationKind = "deposit"
	OpWithdraw OperationKind = "withdraw"
	OpFee      OperationKind = "fee"
)

// OperationStatus: pending → completed, nunca al revés.
type OperationStatus string

const (
	OpPending   OperationStatus = "pending"
	OpCompleted OperationStatus = "completed"
)

// Operation is one append-only entry of an investor's operations log.
// Amount es inmutable tras la creación; solo status y BalanceAfter mutan,
// y únicamente en la transición pending → completed.
type Operation struct {
	ID           string // opaque, uuid
	Investor     string
	Date         time.Time // NY civil date
	Timestamp    time.Time
	Kind         OperationKind
	Bucket       Bucket
	Amount       float64 // > 0
	Status       OperationStatus
	BalanceAfter float64
	Note         string
}

// TradeSide of a trade-lot entry.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// TradeLot is one append-only entry of an investor's trades log.
// CumulativeShares es la columna monótona por (investor, bucket, ticker):
// BUY la sube en Shares, SELL la baja en Shares, y nunca es negativa.
type TradeLot struct {
	Investor         string
	Date             time.Time // NY civil date
	Timestamp        time.Time
	Bucket           Bucket
	Side             TradeSide
	Ticker           string
	Shares           float64 // > 0
	Price            float64 // > 0
	Amount           float64 // Shares · Price
	CumulativeShares float64 // ≥ 0, after this lot
	Note             string
}

// BalanceSnapshot is one daily per-bucket row of the snapshot log.
type BalanceSnapshot struct {
	Investor       string
	Date           time.Time // NY civil date
	Bucket         Bucket
	Cash           float64
	PositionsValue float64
	RealizedPnL    float64
	UnrealizedPnL  float64
}

// BucketBalance agrupa los balances derivados de un investor en un bucket.
type BucketBalance struct {
	Cash           float64
	PositionsValue float64
	RealizedPnL    float64
	UnrealizedPnL  float64
	Shares         map[string]float64 // ticker → current shares
}

// Total devuelve cash + valor de posiciones del bucket.
func (b BucketBalance) Total() float64 { return b.Cash + b.PositionsValue }
