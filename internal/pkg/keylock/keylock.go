package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock provides mutual exclusion per string key. Operations on different
// keys never block each other. Entries are reference-counted and removed
// once no goroutine holds or waits on the key, so the map does not grow
// with the number of distinct keys ever seen.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

// Lock acquires the lock for key and returns the matching unlock function.
func (k *KeyLock) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
