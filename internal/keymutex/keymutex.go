// Package keymutex provides a mutex that locks on a per-key basis. The durable
// stores use it to enforce single-writer-per-key discipline: concurrent writes
// to different keys proceed in parallel, writes to the same key serialize.
package keymutex

import "sync"

// KeyMutex is a collection of lazily created mutexes, one per string key.
// The zero value is not usable; construct with New.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty KeyMutex.
func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given key, creating it on first use.
func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for the given key. It panics if the key was
// never locked, mirroring sync.Mutex semantics.
func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()

	if !ok {
		panic("keymutex: unlock of unknown key " + key)
	}
	m.Unlock()
}
