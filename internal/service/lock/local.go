// Package lock provides per-key mutual exclusion for cache artifacts.
package lock

import (
	"context"
	"sync"
)

type slot struct {
	ch   chan struct{}
	refs int
}

// Local serializes holders of the same key inside one process.
// Waiting is cancellable; slots are released once no holder or waiter remains.
type Local struct {
	mu sync.Mutex
	m  map[string]*slot
}

func NewLocal() *Local { return &Local{m: make(map[string]*slot)} }

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.m[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.m[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.m, key)
	}
	l.mu.Unlock()
}

// held returns the number of keys with a holder or waiter.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
