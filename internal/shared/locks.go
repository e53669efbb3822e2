package shared

import "sync"

// KeyedMutex serializes critical sections by an int64 key, such as the ledger
// sections scoped to a budget row.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex constructs a KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*entry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (km *KeyedMutex) Lock(key int64) {
	km.mu.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = &entry{}
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()
	e.mu.Lock()
}

// Unlock releases the mutex for key.
func (km *KeyedMutex) Unlock(key int64) {
	km.mu.Lock()
	e, ok := km.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(km.locks, key)
		}
	}
	km.mu.Unlock()
	if ok {
		e.mu.Unlock()
	}
}
