package workflow

import "sync"

// KeyedMutex serializes work per booking id. Transitions, field edits and
// the archival sweep all take the same per-id lock so a conflict check and
// its state write cannot interleave with another writer on the same
// booking. Entries are never evicted; the id space is small.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for id and returns its unlock function.
func (k *KeyedMutex) Lock(id string) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
