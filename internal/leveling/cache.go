package leveling

import "sync"

// guildCache is a read-through cache keyed by guild snowflake. Write paths
// must call Put (full-row refresh) or Invalidate before returning; readers
// repopulate from storage on a miss.
type guildCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

func newGuildCache[T any]() *guildCache[T] {
	return &guildCache[T]{entries: make(map[string]T)}
}

func (c *guildCache[T]) Get(guildID string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[guildID]
	return v, ok
}

func (c *guildCache[T]) Put(guildID string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[guildID] = v
}

func (c *guildCache[T]) Invalidate(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, guildID)
}
