package pipeline

import "sync"

// keyedMutex serializes work per string key. The engine processes files
// concurrently, so two instances of a brand-new series can race through the
// hierarchy lookup at the same time; holding the series key across the
// lookup-then-create window keeps their proxy identifiers consistent.
type keyedMutex struct {
	mutex sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mutex sync.Mutex
	refs  int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: map[string]*keyedLock{},
	}
}

// Lock acquires the mutex for the key and returns its unlock function.
func (km *keyedMutex) Lock(key string) func() {
	km.mutex.Lock()
	lock, exists := km.locks[key]
	if !exists {
		lock = &keyedLock{}
		km.locks[key] = lock
	}
	lock.refs++
	km.mutex.Unlock()

	lock.mutex.Lock()

	return func() {
		lock.mutex.Unlock()

		km.mutex.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(km.locks, key)
		}
		km.mutex.Unlock()
	}
}
