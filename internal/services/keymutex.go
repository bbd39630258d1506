package services

import "sync"

// keyMutex serializes workflows per design identifier. Entries are reference
// counted and removed once the last holder releases, so the map does not grow
// with the number of designs ever seen.
type keyMutex struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{entries: map[string]*keyEntry{}}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	e := k.entries[key]
	if e == nil {
		e = &keyEntry{}
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
