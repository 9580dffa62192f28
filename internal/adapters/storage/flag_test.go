package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

func TestFlagStoreAbsent(t *testing.T) {
	s := NewFlagStore(filepath.Join(t.TempDir(), "last_rebalance"))

	_, ok := s.LastDate()
	assert.False(t, ok)
	assert.False(t, s.RebalancedToday())
}

func TestFlagStoreWriteToday(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "last_rebalance")
	s := NewFlagStore(path)

	require.NoError(t, s.WriteToday())
	assert.True(t, s.RebalancedToday())

	last, ok := s.LastDate()
	require.True(t, ok)
	assert.Equal(t, domain.DateNY(domain.NowNY()), last)

	// Reescribir dentro del mismo día es idempotente.
	require.NoError(t, s.WriteToday())
	assert.True(t, s.RebalancedToday())
}

func TestFlagStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_rebalance")
	require.NoError(t, os.WriteFile(path, []byte("not-a-date\n"), 0o644))

	s := NewFlagStore(path)
	_, ok := s.LastDate()
	assert.False(t, ok)
	assert.False(t, s.RebalancedToday())
}
