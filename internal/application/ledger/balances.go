package ledger

// balances.go — reconstrucción de balances virtuales desde los logs.
//
// Los logs son la fuente de verdad; nada de esto se persiste como estado.
// P&L con average-cost basis: cada SELL realiza (price − avg_cost) · shares
// y reduce el cost basis proporcionalmente (no FIFO estricto).

import (
	"github.com/alejandrodnm/rotabot/internal/domain"
)

// tickerPosition acumula el estado avg-cost de un (bucket, ticker).
type tickerPosition struct {
	shares    float64
	cost      float64 // running cost basis
	lastPrice float64 // último precio operado, fallback de current_price
}

// deriveBucket reconstructs one investor's balances in one bucket.
// prices: precios live por ticker; celdas ausentes caen al último precio
// operado para ese ticker.
func deriveBucket(ops []domain.Operation, lots []domain.TradeLot, bucket domain.Bucket, prices map[string]float64) domain.BucketBalance {
	balance := domain.BucketBalance{Shares: make(map[string]float64)}

	// Cash: solo operaciones completadas del bucket.
	for _, op := range ops {
		if op.Bucket != bucket || op.Status != domain.OpCompleted {
			continue
		}
		switch op.Kind {
		case domain.OpDeposit:
			balance.Cash += op.Amount
		case domain.OpWithdraw, domain.OpFee:
			balance.Cash -= op.Amount
		}
	}

	// Trades: avg-cost por ticker, en orden de inserción.
	positions := make(map[string]*tickerPosition)
	for _, lot := range lots {
		if lot.Bucket != bucket {
			continue
		}
		pos := positions[lot.Ticker]
		if pos == nil {
			pos = &tickerPosition{}
			positions[lot.Ticker] = pos
		}
		pos.lastPrice = lot.Price

		switch lot.Side {
		case domain.SideBuy:
			balance.Cash -= lot.Amount
			pos.shares += lot.Shares
			pos.cost += lot.Amount
		case domain.SideSell:
			balance.Cash += lot.Amount
			if pos.shares > 0 {
				avg := pos.cost / pos.shares
				balance.RealizedPnL += (lot.Price - avg) * lot.Shares
				pos.cost -= lot.Shares * avg
			}
			pos.shares -= lot.Shares
			if pos.shares < 0 {
				pos.shares = 0
			}
			if pos.cost < 0 {
				pos.cost = 0
			}
		}
	}

	for ticker, pos := range positions {
		if pos.shares <= 0 {
			continue
		}
		price := pos.lastPrice
		if live, ok := prices[ticker]; ok && live > 0 {
			price = live
		}
		balance.Shares[ticker] = pos.shares
		balance.PositionsValue += pos.shares * price
		avg := pos.cost / pos.shares
		balance.UnrealizedPnL += (price - avg) * pos.shares
	}

	return balance
}

// positionShares devuelve las shares actuales de un (bucket, ticker):
// la última cumulative_shares_after del triple, o 0.
func positionShares(lots []domain.TradeLot, bucket domain.Bucket, ticker string) float64 {
	shares := 0.0
	for _, lot := range lots {
		if lot.Bucket == bucket && lot.Ticker == ticker {
			shares = lot.CumulativeShares
		}
	}
	return shares
}

// splitByWeights reparte amount por los pesos por defecto, en centavos
// exactos: low y medium se redondean y high absorbe el resto para que la
// suma sea exactamente amount.
func splitByWeights(amount float64) map[domain.Bucket]float64 {
	low := round2(amount * domain.DefaultAllocation[domain.BucketLow])
	medium := round2(amount * domain.DefaultAllocation[domain.BucketMedium])
	high := round2(amount - low - medium)
	return map[domain.Bucket]float64{
		domain.BucketLow:    low,
		domain.BucketMedium: medium,
		domain.BucketHigh:   high,
	}
}

func round2(v float64) float64 {
	const cents = 100
	if v >= 0 {
		return float64(int64(v*cents+0.5)) / cents
	}
	return -float64(int64(-v*cents+0.5)) / cents
}
