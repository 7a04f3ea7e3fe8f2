package service

import "sync"

// keyedMutex serializes work per string key. Entries are never evicted; the
// key space is bounded by owners times image kinds.
type keyedMutex struct {
	locks sync.Map
}

func (m *keyedMutex) Lock(key string) func() {
	v, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
