package feedback

import "sync"

// ideaLocks hands out one mutex per idea id. Entries are reference counted
// and removed once nobody holds or waits on them, so the table only grows
// with the number of ideas being written concurrently.
type ideaLocks struct {
	mu    sync.Mutex
	locks map[string]*ideaLock
}

type ideaLock struct {
	mu   sync.Mutex
	refs int
}

func newIdeaLocks() *ideaLocks {
	return &ideaLocks{locks: make(map[string]*ideaLock)}
}

// lock blocks until the caller owns id and returns the matching unlock.
func (l *ideaLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &ideaLock{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *ideaLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
