package conversation

import "sync"

// Cache is the in-process map from conversation ID to the authoritative
// loaded copy. It is a non-authoritative accelerator: empty on process
// start, repopulated from the store on first access.
type Cache struct {
	mu sync.RWMutex
	m  map[string]*Conversation
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]*Conversation)}
}

// Get returns the cached conversation for id, if any.
func (c *Cache) Get(id string) (*Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.m[id]
	return conv, ok
}

// Put stores conv under its ID, replacing any previous entry.
func (c *Cache) Put(conv *Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[conv.ID] = conv
}

// Delete evicts id. Evicting an absent entry is a no-op.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, id)
}

// Len returns the number of cached conversations.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
