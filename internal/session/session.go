// Package session persists per-session marketplace state between requests.
package session

import (
	"context"
	"errors"
	"sync"

	"ecoxchange/internal/marketplace"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// Repository stores marketplace state by session id.
type Repository interface {
	Load(ctx context.Context, id string) (marketplace.State, error)
	Save(ctx context.Context, id string, state marketplace.State) error
	Delete(ctx context.Context, id string) error
}

// Locker hands out one mutex per session so a load-reduce-save cycle is
// atomic within this process. A session's mutex is dropped once nobody
// holds or waits for it.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*sessionLock)}
}

// Lock acquires the session's mutex and returns its unlock function.
func (l *Locker) Lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of sessions currently holding or waiting on a lock.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
