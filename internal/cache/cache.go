// Package cache provides a small TTL+LRU result cache used to keep
// repeated breakdown requests from re-walking the whole transaction
// stream. Entries are invalidated by scope when a refresh event lands.
package cache

import "time"

// Cache is a generic keyed cache.
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// DeletePrefix removes every key with the given prefix and returns
	// how many were removed. Keys are structured as "<account>/<rest>",
	// so a scoped refresh can drop one account's entries.
	DeletePrefix(prefix string) int

	// Size returns the current number of items in the cache
	Size() int
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, cache := range m.caches {
				cache.CleanExpired()
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
