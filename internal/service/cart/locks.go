package cart

import "sync"

// tokenLocks serializes cart mutations per session token. Unrelated shoppers
// never contend: the outer mutex only guards the map, each session gets its
// own entry, and entries are reclaimed when the last holder releases.
type tokenLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTokenLocks() *tokenLocks {
	return &tokenLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the token's critical section is free and returns the
// release function.
func (l *tokenLocks) acquire(token string) func() {
	l.mu.Lock()
	e, ok := l.entries[token]
	if !ok {
		e = &lockEntry{}
		l.entries[token] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, token)
		}
		l.mu.Unlock()
	}
}
