// Package keylock provides named mutexes. Booking paths lock on a
// doctor+date key so capacity checks and writes for the same doctor-day
// are serialized without blocking unrelated doctors.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out mutexes by key. Idle entries are removed once the
// last holder unlocks.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Registry {
	return &Registry{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (r *Registry) Lock(key string) {
	r.mu.Lock()
	e, ok := r.locks[key]
	if !ok {
		e = &entry{}
		r.locks[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. It must pair with a prior Lock.
func (r *Registry) Unlock(key string) {
	r.mu.Lock()
	e, ok := r.locks[key]
	if !ok {
		r.mu.Unlock()
		panic("keylock: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(r.locks, key)
	}
	r.mu.Unlock()

	e.mu.Unlock()
}
