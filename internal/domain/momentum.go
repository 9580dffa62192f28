package domain

import "sort"

// MomentumRank is one ranked entry of the selector output.
type MomentumRank struct {
	Ticker string
	Return float64 // last/first − 1 over the retained window
}

// TopMomentum ranks every ticker present in both universe and history by
// trailing total return and returns the top n, descending.
//
// Determinista: empates se rompen por ticker ascendente. Tickers sin close
// presente en la primera o última fila de la ventana se descartan.
func TopMomentum(h *BarHistory, universe []string, n int) []MomentumRank {
	if h == nil || n <= 0 {
		return nil
	}

	ranks := make([]MomentumRank, 0, len(universe))
	for _, ticker := range universe {
		ret, ok := h.TotalReturn(ticker)
		if !ok {
			continue
		}
		ranks = append(ranks, MomentumRank{Ticker: ticker, Return: ret})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Return != ranks[j].Return {
			return ranks[i].Return > ranks[j].Return
		}
		return ranks[i].Ticker < ranks[j].Ticker
	})

	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

// Symbols proyecta una lista de ranks a sus tickers, preservando el orden.
func Symbols(ranks []MomentumRank) []string {
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Ticker
	}
	return out
}
