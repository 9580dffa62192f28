package storage

// cache.go — snapshot on-disk del BarHistory, serializado con msgpack.
//
// Frescura por mtime: dentro del TTL (default 24h) las lecturas devuelven el
// snapshot byte-igual sin tocar al provider. La escritura es temp + rename.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// BarCache is the time-bounded on-disk snapshot of the download universe.
type BarCache struct {
	path string
	ttl  time.Duration
}

// NewBarCache creates a cache at path with the given TTL window.
func NewBarCache(path string, ttl time.Duration) *BarCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BarCache{path: path, ttl: ttl}
}

// Load returns the deserialized snapshot if it exists and its modification
// time is within the TTL window. ok es false en miss (ausente o caducado).
func (c *BarCache) Load() (*domain.BarHistory, bool, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage.BarCache.Load: stat: %w", err)
	}
	if time.Since(info.ModTime()) > c.ttl {
		return nil, false, nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false, fmt.Errorf("storage.BarCache.Load: read: %w", err)
	}

	var history domain.BarHistory
	if err := msgpack.Unmarshal(raw, &history); err != nil {
		// Snapshot corrupto: tratar como miss para forzar una descarga fresca.
		return nil, false, nil
	}
	return &history, true, nil
}

// Save atomically overwrites the snapshot (write temp + rename).
func (c *BarCache) Save(history *domain.BarHistory) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("storage.BarCache.Save: mkdir: %w", err)
	}

	raw, err := msgpack.Marshal(history)
	if err != nil {
		return fmt.Errorf("storage.BarCache.Save: marshal: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("storage.BarCache.Save: write temp: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("storage.BarCache.Save: rename: %w", err)
	}
	return nil
}
