// Package keyedmutex provides per-key mutual exclusion.
//
// Mutating operations on the same aggregate must not interleave between the
// snapshot load and the snapshot write, or the last writer silently discards
// the other's transition. Locking per key keeps unrelated aggregates fully
// concurrent while serializing writers of the same one.
package keyedmutex

import "sync"

// KeyedMutex serializes callers per string key.
// The zero value is not usable; call New.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (m *KeyedMutex) Lock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. The entry is dropped once no caller
// holds or waits on it, so the map does not grow with the keyspace.
func (m *KeyedMutex) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		panic("keyedmutex: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()

	e.mu.Unlock()
}

// WithLock runs fn while holding the mutex for key.
func (m *KeyedMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}
