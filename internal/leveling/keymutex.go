package leveling

import "sync"

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyMutex hands out one mutex per ledger key so that read-modify-write
// sequences on the same engagement row never interleave. Entries are
// reference counted and dropped once the last holder unlocks.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key and returns the matching unlock func.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
