package qlock

import (
	"sync"
	"time"

	"github.com/qorerun/qcore/xthread"
)

// Mutex is the plain, non-recursive lock of §4.B: lock/unlock/trylock,
// plus the Wait hook that layers a Cond on top of it (the "condition
// variable: wait(mutex[, timeout])" contract). It is not a sync.Locker:
// every entry point takes the calling thread's *xthread.Context so it
// can publish ownership to, and be checked against, the deadlock graph.
type Mutex struct {
	name string

	mu    sync.Mutex
	cond  *sync.Cond
	owner *xthread.Context
}

// NewMutex returns an unlocked Mutex. name is used only for deadlock
// reports and logging.
func NewMutex(name string) *Mutex {
	m := &Mutex{name: name}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Name implements xthread.Primitive.
func (m *Mutex) Name() string { return m.name }

// Lock blocks until the mutex is free and grants it to tc. A thread that
// already holds the mutex calling Lock again is a LOCK-ERROR, not a
// recursive acquire. If granting this wait would complete a cycle in
// the deadlock graph, Lock returns *xthread.ErrDeadlock immediately
// without blocking.
func (m *Mutex) Lock(tc *xthread.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner == tc {
		return lockErrorf("thread %d tried to lock mutex %q twice", tc.ID(), m.name)
	}
	for m.owner != nil {
		if err := xthread.CheckAndMarkWaiting(tc, m); err != nil {
			return err
		}
		m.cond.Wait()
		xthread.ClearWaiting(tc)
	}
	m.owner = tc
	xthread.Track(m, tc)
	tc.PushLock(m.name)
	return nil
}

// LockTimeout behaves like Lock but gives up after timeoutMs
// milliseconds of waiting, reporting timedOut=true rather than an error
// in that case (deadlock detection still raises immediately regardless
// of the timeout, matching §5's "deadlock detection always raises,
// regardless of timeout presence"). timeoutMs<=0 means wait forever.
func (m *Mutex) LockTimeout(tc *xthread.Context, timeoutMs int64) (timedOut bool, err error) {
	if timeoutMs <= 0 {
		return false, m.Lock(tc)
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner == tc {
		return false, lockErrorf("thread %d tried to lock mutex %q twice", tc.ID(), m.name)
	}
	for m.owner != nil {
		if err := xthread.CheckAndMarkWaiting(tc, m); err != nil {
			return false, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			xthread.ClearWaiting(tc)
			return true, nil
		}
		waitOnCondWithTimeout(m.cond, remaining)
		xthread.ClearWaiting(tc)
		if time.Now().After(deadline) && m.owner != nil {
			return true, nil
		}
	}
	m.owner = tc
	xthread.Track(m, tc)
	tc.PushLock(m.name)
	return false, nil
}

// waitOnCondWithTimeout wakes cond.Wait() early if it doesn't return
// within d, by racing a timer goroutine's Broadcast against the real
// signal. sync.Cond has no native timeout, so this is the standard
// workaround (the broadcast is harmless noise if the real signal
// already arrived first).
func waitOnCondWithTimeout(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
}

// TryLock acquires the mutex only if it is immediately free.
func (m *Mutex) TryLock(tc *xthread.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != nil {
		return false
	}
	m.owner = tc
	xthread.Track(m, tc)
	tc.PushLock(m.name)
	return true
}

// Unlock releases the mutex. Unlocking from a thread that does not hold
// it is a LOCK-ERROR.
func (m *Mutex) Unlock(tc *xthread.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner != tc {
		return lockErrorf("thread %d tried to unlock mutex %q it does not own", tc.ID(), m.name)
	}
	m.owner = nil
	xthread.Track(m)
	tc.PopLock(m.name)
	m.cond.Broadcast()
	return nil
}

// Wait atomically releases the mutex, waits on cond (with an optional
// millisecond timeout), and reacquires the mutex before returning —
// the release-and-reacquire protocol of §4.L. tc must currently hold
// the mutex.
func (m *Mutex) Wait(tc *xthread.Context, cond *Cond, timeoutMs int64) (timedOut bool, err error) {
	m.mu.Lock()
	if m.owner != tc {
		m.mu.Unlock()
		return false, lockErrorf("thread %d waiting on mutex %q it does not own", tc.ID(), m.name)
	}
	m.owner = nil
	xthread.Track(m)
	tc.PopLock(m.name)
	m.cond.Broadcast()
	m.mu.Unlock()

	timedOut = cond.Wait(timeoutMs)

	if err := m.Lock(tc); err != nil {
		return timedOut, err
	}
	return timedOut, nil
}
