package app

import "sync"

// RequestLocks serializes operations on the quotes of one lesson request.
// Quote generation and acceptance for the same request must be mutually
// exclusive; different requests proceed in parallel with no shared lock.
type RequestLocks struct {
	mu    sync.Mutex
	locks map[string]*requestLock
}

type requestLock struct {
	mu   sync.Mutex
	refs int
}

// NewRequestLocks creates an empty lock registry.
func NewRequestLocks() *RequestLocks {
	return &RequestLocks{locks: make(map[string]*requestLock)}
}

// Lock acquires the mutex for the given lesson request, creating it on first
// use. The returned function releases the mutex and drops the registry entry
// once no goroutine holds or awaits it.
func (l *RequestLocks) Lock(lessonRequestID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[lessonRequestID]
	if !ok {
		entry = &requestLock{}
		l.locks[lessonRequestID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, lessonRequestID)
		}
		l.mu.Unlock()
	}
}
