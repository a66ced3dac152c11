// Package cache holds short-lived read models for the HTML pages.
package cache

import (
	"context"
	"time"

	applog "saldos/internal/log"
)

// Cache is a keyed store whose entries may vanish at any time.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry.
	Purge()
	Size() int
}

// Cleaner is implemented by caches that expire entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically expires entries of the registered caches.
type Manager struct {
	caches   []Cleaner
	interval time.Duration
	logger   *applog.Logger
}

func NewManager(interval time.Duration, logger *applog.Logger) *Manager {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Manager{
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentCache),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// Clean expires entries in every registered cache once.
func (m *Manager) Clean() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run cleans on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Clean(); n > 0 {
				m.logger.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
