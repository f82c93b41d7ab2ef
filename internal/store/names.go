package store

import "sync"

// NameCache remembers the display names written by the name sync.
type NameCache struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewNameCache() *NameCache {
	return &NameCache{names: make(map[string]string)}
}

func (c *NameCache) SetName(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[id] = name
}

func (c *NameCache) Name(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[id]
	return name, ok
}
