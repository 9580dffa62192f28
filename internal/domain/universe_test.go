package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowRiskUniverseDedup(t *testing.T) {
	base := LowRiskUniverse(nil)
	require.NotEmpty(t, base)

	// Additions duplicadas no crecen la lista; las nuevas sí.
	withDup := LowRiskUniverse([]string{base[0]})
	assert.Len(t, withDup, len(base))

	withNew := LowRiskUniverse([]string{"XXXX"})
	assert.Len(t, withNew, len(base)+1)
	assert.Contains(t, withNew, "XXXX")

	seen := make(map[string]bool)
	for _, ticker := range withNew {
		assert.False(t, seen[ticker], "duplicate %s", ticker)
		seen[ticker] = true
	}
}

func TestBlueChipTop(t *testing.T) {
	top := BlueChipTop(BlueChipSlice)
	assert.Len(t, top, BlueChipSlice)

	// Pedir más de lo que hay devuelve la lista completa.
	all := BlueChipTop(1 << 20)
	assert.GreaterOrEqual(t, len(all), BlueChipSlice)
}

func TestUnionUniverseCoversAllTiers(t *testing.T) {
	union := UnionUniverse([]string{"XXXX"})

	assert.Contains(t, union, "XXXX")
	for _, ticker := range MediumRiskUniverse() {
		assert.Contains(t, union, ticker)
	}

	seen := make(map[string]bool)
	for _, ticker := range union {
		require.False(t, seen[ticker], "duplicate %s", ticker)
		seen[ticker] = true
	}
}
