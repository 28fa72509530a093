package gateway

import (
	"context"
	"sync"
)

// keyedLocks provides per-record-id mutual exclusion. Entries are
// reference-counted and removed once the last waiter leaves, so the map
// stays proportional to in-flight writes.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{} // capacity 1: holding the token means holding the lock
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*lockEntry)}
}

// Acquire blocks until the lock for id is held or ctx is done.
func (l *keyedLocks) Acquire(ctx context.Context, id string) error {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(id, e, false)
		return ctx.Err()
	}
}

// Release frees the lock for id. Must pair with a successful Acquire.
func (l *keyedLocks) Release(id string) {
	l.mu.Lock()
	e := l.locks[id]
	l.mu.Unlock()
	l.release(id, e, true)
}

func (l *keyedLocks) release(id string, e *lockEntry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}
