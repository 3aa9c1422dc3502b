package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

// Locker serializes claim attempts per contention key within one process.
type Locker struct {
	mu   sync.Mutex
	keys map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func NewLocker() *Locker {
	return &Locker{keys: make(map[string]*lockEntry)}
}

// Acquire waits at most wait for key. Exceeding the wait yields
// ErrClaimContended; cancellation of ctx is returned as is.
func (l *Locker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	entry := l.ref(key)

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := entry.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(key)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domainerrors.ErrClaimContended
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.unref(key)
		})
	}, nil
}

func (l *Locker) ref(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.keys[key]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.keys[key] = entry
	}
	entry.refs++
	return entry
}

func (l *Locker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.keys[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.keys, key)
	}
}
