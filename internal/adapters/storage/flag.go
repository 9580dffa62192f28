package storage

// flag.go — el registro de "último rebalance" como archivo de una línea
// YYYY-MM-DD en calendario civil NY. Reemplazo whole-file (temp + rename).

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

const flagDateLayout = "2006-01-02"

// FlagStore persists the single last-rebalance date record.
type FlagStore struct {
	path string
}

// NewFlagStore creates a store over the given file path.
func NewFlagStore(path string) *FlagStore {
	return &FlagStore{path: path}
}

// LastDate returns the stored NY civil date. ok es false si no hay registro;
// un contenido malformado se trata como ausente (error recuperable, WARN).
func (s *FlagStore) LastDate() (time.Time, bool) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("flag: read failed, treating as absent", "path", s.path, "err", err)
		}
		return time.Time{}, false
	}

	text := strings.TrimSpace(string(raw))
	date, err := time.ParseInLocation(flagDateLayout, text, domain.NYLocation())
	if err != nil {
		slog.Warn("flag: malformed date, treating as absent", "path", s.path, "raw", text)
		return time.Time{}, false
	}
	return date, true
}

// RebalancedToday reports whether the record equals today's NY date.
func (s *FlagStore) RebalancedToday() bool {
	last, ok := s.LastDate()
	if !ok {
		return false
	}
	return last.Equal(domain.DateNY(domain.NowNY()))
}

// WriteToday atomically replaces the record with today's NY date,
// creating parent directories as needed. Idempotente dentro del día civil.
func (s *FlagStore) WriteToday() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("storage.WriteToday: mkdir: %w", err)
	}

	today := domain.DateNY(domain.NowNY()).Format(flagDateLayout)
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(today+"\n"), 0o644); err != nil {
		return fmt.Errorf("storage.WriteToday: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("storage.WriteToday: rename: %w", err)
	}
	return nil
}
