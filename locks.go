package shortener

import "sync"

// slugLocks hands out one mutex per slug. Entries are dropped when the last
// holder or waiter releases them, so the map only holds slugs in use.
type slugLocks struct {
	mu    sync.Mutex
	locks map[Slug]*slugLock
}

type slugLock struct {
	mu   sync.Mutex
	refs int
}

func newSlugLocks() *slugLocks {
	return &slugLocks{locks: make(map[Slug]*slugLock)}
}

// lock blocks until the slug is free and returns the function releasing it.
func (l *slugLocks) lock(slug Slug) (unlock func()) {
	l.mu.Lock()
	sl, ok := l.locks[slug]
	if !ok {
		sl = &slugLock{}
		l.locks[slug] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()

	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, slug)
		}
		l.mu.Unlock()
	}
}

// len returns the number of slugs currently locked or awaited.
func (l *slugLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
