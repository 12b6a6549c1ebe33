// Package lock serializes organizer actions on a single (hackathon, round).
//
// Shortlist, toggle and auto-distribute each read round state and write a
// batch derived from it; holding the round lock keeps two such actions from
// interleaving, across replicas when the Redis locker is configured.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/hackjudge/pkg/metrics"
)

// Locker acquires named exclusive locks.
type Locker interface {
	// Lock blocks until key is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RoundKey names the lock for one round of a hackathon.
func RoundKey(hackathonID string, round int) string {
	return fmt.Sprintf("round:%s:%d", hackathonID, round)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

var _ Locker = (*Local)(nil)

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// Lock acquires key, honouring ctx cancellation while waiting.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		metrics.RecordLockFailure()
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}
	metrics.RecordLockWait(float64(time.Since(start).Microseconds()) / 1000)

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
