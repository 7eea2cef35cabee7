package lock

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. It is enough for a single engine
// instance; use Redis when several instances share a database.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
	wait  time.Duration
}

func NewLocal(wait time.Duration) *Local {
	return &Local{locks: make(map[string]*localEntry), wait: wait}
}

func (l *Local) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)

	ctx, cancel := withWait(ctx, l.wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.releaseOne(held[i])
		}
	}

	for _, key := range keys {
		if err := l.acquireOne(ctx, key); err != nil {
			releaseAll()
			return nil, timeoutErr(key, err)
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}

func (l *Local) acquireOne(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key, e)
		return ctx.Err()
	}
}

func (l *Local) releaseOne(key string) {
	l.mu.Lock()
	e := l.locks[key]
	l.mu.Unlock()
	if e == nil {
		return
	}
	<-e.ch
	l.unref(key, e)
}

func (l *Local) unref(key string, e *localEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
