package domain

// bars.go — matriz densa de cierres ajustados: filas = fechas, columnas = tickers.
//
// Orientación única (ver DESIGN.md): ticker → serie de closes alineada con Dates.
// Las celdas ausentes se representan con NaN; un ticker sin ninguna celda válida
// se considera missing y es candidato al residual retry del loader.

import (
	"math"
	"sort"
	"time"
)

// BarHistory holds adjusted daily closes for a set of tickers over a shared
// date index. Exported fields so the cache can msgpack it as-is.
type BarHistory struct {
	Dates  []time.Time          `msgpack:"dates"`
	Closes map[string][]float64 `msgpack:"closes"`
}

// NewBarHistory creates an empty history over the given date index.
func NewBarHistory(dates []time.Time) *BarHistory {
	return &BarHistory{Dates: dates, Closes: make(map[string][]float64)}
}

// Tickers returns the column names in ascending order.
func (h *BarHistory) Tickers() []string {
	out := make([]string, 0, len(h.Closes))
	for t := range h.Closes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasData reports whether the ticker column has at least one non-absent cell.
func (h *BarHistory) HasData(ticker string) bool {
	for _, v := range h.Closes[ticker] {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// FirstLastClose returns the first and last non-absent closes of the column.
// ok es false si el ticker no existe o la primera/última fila está ausente:
// el contrato del selector exige valores presentes en ambos extremos.
func (h *BarHistory) FirstLastClose(ticker string) (first, last float64, ok bool) {
	col, exists := h.Closes[ticker]
	if !exists || len(col) == 0 {
		return 0, 0, false
	}
	first = col[0]
	last = col[len(col)-1]
	if math.IsNaN(first) || math.IsNaN(last) || first == 0 {
		return 0, 0, false
	}
	return first, last, true
}

// LastClose returns the most recent non-absent close for the ticker.
func (h *BarHistory) LastClose(ticker string) (float64, bool) {
	col := h.Closes[ticker]
	for i := len(col) - 1; i >= 0; i-- {
		if !math.IsNaN(col[i]) {
			return col[i], true
		}
	}
	return 0, false
}

// LastCloses projects the matrix to {ticker → most recent close}, dropping
// tickers with no usable cells. Es el mapa de precios del flujo live.
func (h *BarHistory) LastCloses() map[string]float64 {
	prices := make(map[string]float64, len(h.Closes))
	for ticker := range h.Closes {
		if close, ok := h.LastClose(ticker); ok {
			prices[ticker] = close
		}
	}
	return prices
}

// TotalReturn computes last/first − 1 over the full retained window.
func (h *BarHistory) TotalReturn(ticker string) (float64, bool) {
	first, last, ok := h.FirstLastClose(ticker)
	if !ok {
		return 0, false
	}
	return last/first - 1, true
}

// Merge concatenates other's columns into h, aligning by date. Column-wise:
// tickers de other se añaden (o reemplazan) en h; el índice de fechas se
// extiende con las fechas nuevas y las columnas existentes se rellenan con NaN.
func (h *BarHistory) Merge(other *BarHistory) {
	if other == nil || len(other.Closes) == 0 {
		return
	}
	if len(h.Dates) == 0 {
		h.Dates = append(h.Dates, other.Dates...)
		for t, col := range other.Closes {
			h.Closes[t] = append([]float64(nil), col...)
		}
		return
	}

	index := make(map[int64]int, len(h.Dates))
	for i, d := range h.Dates {
		index[DateNY(d).Unix()] = i
	}

	// Fechas nuevas: extender índice y rellenar columnas existentes.
	for _, d := range other.Dates {
		key := DateNY(d).Unix()
		if _, seen := index[key]; seen {
			continue
		}
		index[key] = len(h.Dates)
		h.Dates = append(h.Dates, d)
		for t := range h.Closes {
			h.Closes[t] = append(h.Closes[t], math.NaN())
		}
	}

	for t, col := range other.Closes {
		dst, exists := h.Closes[t]
		if !exists {
			dst = make([]float64, len(h.Dates))
			for i := range dst {
				dst[i] = math.NaN()
			}
		}
		for i, d := range other.Dates {
			if i >= len(col) {
				break
			}
			if pos, seen := index[DateNY(d).Unix()]; seen {
				dst[pos] = col[i]
			}
		}
		h.Closes[t] = dst
	}
}

// MissingFrom returns the subset of universe with no usable data in h.
func (h *BarHistory) MissingFrom(universe []string) []string {
	var missing []string
	for _, t := range universe {
		if !h.HasData(t) {
			missing = append(missing, t)
		}
	}
	return missing
}
