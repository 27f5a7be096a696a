package conversation

import "sync"

// KeyedMutex provides one mutex per string key. The manager uses it to
// serialize load→mutate→persist sequences on a single conversation, and the
// chat orchestrator holds a key's lock for the duration of a whole turn.
// Entries are never reclaimed; the key space is bounded by the number of
// conversations in a single-process store.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
