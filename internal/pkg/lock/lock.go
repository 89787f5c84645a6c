// Package lock provides per-principal locking for trophy and spin mutations.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"kidzone/internal/model"
)

// ErrLockTimeout is returned when another request by the same principal
// holds the lock past the deadline.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// principalMutex wraps a mutex with a count of holders and waiters.
type principalMutex struct {
	mu   sync.Mutex
	refs int
}

// UserLock serialises balance-changing operations per principal.
// Entries are dropped once no goroutine holds or waits on them.
type UserLock struct {
	mu    sync.Mutex
	locks map[model.Principal]*principalMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[model.Principal]*principalMutex)}
}

func (ul *UserLock) acquireRef(p model.Principal) *principalMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m, ok := ul.locks[p]
	if !ok {
		m = &principalMutex{}
		ul.locks[p] = m
	}
	m.refs++
	return m
}

func (ul *UserLock) releaseRef(p model.Principal, m *principalMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(ul.locks, p)
	}
}

// Lock acquires the lock for a principal.
func (ul *UserLock) Lock(p model.Principal) {
	m := ul.acquireRef(p)
	m.mu.Lock()
}

// Unlock releases the lock for a principal.
func (ul *UserLock) Unlock(p model.Principal) {
	ul.mu.Lock()
	m, ok := ul.locks[p]
	ul.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Unlock()
	ul.releaseRef(p, m)
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(p model.Principal) bool {
	m := ul.acquireRef(p)
	if m.mu.TryLock() {
		return true
	}
	ul.releaseRef(p, m)
	return false
}

// LockContext acquires the lock, giving up when ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, p model.Principal) error {
	m := ul.acquireRef(p)

	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			m.mu.Unlock()
			ul.releaseRef(p, m)
		}()
		return ErrLockTimeout
	}
}

// WithLock executes fn while holding the principal's lock.
func (ul *UserLock) WithLock(p model.Principal, fn func() error) error {
	ul.Lock(p)
	defer ul.Unlock(p)
	return fn()
}

// WithLockTimeout executes fn while holding the principal's lock,
// waiting at most timeout to acquire it.
func (ul *UserLock) WithLockTimeout(ctx context.Context, p model.Principal, timeout time.Duration, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ul.LockContext(lockCtx, p); err != nil {
		return err
	}
	defer ul.Unlock(p)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// IsLocked reports whether the principal's lock is currently held.
// The answer may change immediately after returning.
func (ul *UserLock) IsLocked(p model.Principal) bool {
	ul.mu.Lock()
	m, ok := ul.locks[p]
	ul.mu.Unlock()
	if !ok {
		return false
	}
	if m.mu.TryLock() {
		m.mu.Unlock()
		return false
	}
	return true
}

// Len returns the number of tracked principals.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
