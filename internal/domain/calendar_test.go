package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func nyDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, NYLocation())
}

func TestTradingDaysBetween(t *testing.T) {
	// Lunes 2026-08-03 a viernes 2026-08-07: (a, b] = mar..vie.
	assert.Equal(t, 4, TradingDaysBetween(nyDate(2026, 8, 3), nyDate(2026, 8, 7)))

	// Viernes a lunes: solo el lunes cuenta.
	assert.Equal(t, 1, TradingDaysBetween(nyDate(2026, 8, 7), nyDate(2026, 8, 10)))

	// Semana completa, extremos en sábado.
	assert.Equal(t, 5, TradingDaysBetween(nyDate(2026, 8, 1), nyDate(2026, 8, 8)))

	assert.Equal(t, 0, TradingDaysBetween(nyDate(2026, 8, 7), nyDate(2026, 8, 7)))
	assert.Equal(t, 0, TradingDaysBetween(nyDate(2026, 8, 10), nyDate(2026, 8, 7)))
}

func TestDaysUntilRebalance(t *testing.T) {
	last := nyDate(2026, 6, 1) // lunes

	// Mismo día: quedan los 22 completos.
	assert.Equal(t, RebalanceIntervalDays, DaysUntilRebalance(last, last))

	// 22 trading days después de un lunes: 2026-07-01.
	assert.Equal(t, 0, DaysUntilRebalance(last, nyDate(2026, 7, 1)))
	assert.Equal(t, 1, DaysUntilRebalance(last, nyDate(2026, 6, 30)))

	// Pasado el intervalo satura en cero, nunca negativo.
	assert.Equal(t, 0, DaysUntilRebalance(last, nyDate(2026, 9, 1)))
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 1, MonthsBetween(nyDate(2026, 1, 15), nyDate(2026, 2, 15)))
	// El día del mes aún no llegó: el mes no se cuenta.
	assert.Equal(t, 0, MonthsBetween(nyDate(2026, 1, 15), nyDate(2026, 2, 14)))
	assert.Equal(t, 12, MonthsBetween(nyDate(2025, 3, 1), nyDate(2026, 3, 1)))
	assert.Equal(t, -1, MonthsBetween(nyDate(2026, 3, 1), nyDate(2026, 2, 1)))
}

func TestDateNYNormalizes(t *testing.T) {
	// 01:00 UTC del 2 de agosto = 21:00 NY del 1 de agosto (EDT).
	utc := time.Date(2026, 8, 2, 1, 0, 0, 0, time.UTC)
	got := DateNY(utc)
	assert.Equal(t, nyDate(2026, 8, 1), got)
}

func TestIsWeekday(t *testing.T) {
	assert.True(t, IsWeekday(nyDate(2026, 8, 3)))   // lunes
	assert.False(t, IsWeekday(nyDate(2026, 8, 8)))  // sábado
	assert.False(t, IsWeekday(nyDate(2026, 8, 9)))  // domingo
}
