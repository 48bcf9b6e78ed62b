// Package cache holds recently fetched backend lists in memory with a TTL
// and a size bound.
package cache

import (
	"sync"
	"time"

	applog "finanquest/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear removes every key
	Clear()

	// Size returns the current number of items in the cache
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically drops expired entries from registered caches.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	logger  *applog.Logger
	stop    chan struct{}
	done    chan struct{}
	stopped bool
}

// NewManager creates a new cache manager
func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{logger: logger.WithComponent(applog.ComponentCache)}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches. Calling it
// again while running is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil || m.stopped || interval <= 0 {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.cleanup(interval, m.stop, m.done)
}

func (m *Manager) cleanup(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Removed expired cache entries", applog.FieldCount, n)
			}
		case <-stop:
			return
		}
	}
}

// CleanNow runs one cleanup pass and returns how many entries were removed.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine and waits for it. It is safe to call more
// than once and without a prior StartCleanup.
func (m *Manager) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.stopped = true
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
