package qlock

import (
	"sync"

	"github.com/qorerun/qcore/xthread"
)

type rwMode int

const (
	modeNone rwMode = iota
	modeRead
	modeWrite
)

// RWLock implements §4.L's preferential read/write lock: either a
// single writer, or a set of readers (each possibly holding the read
// lock recursively), or free. A thread holding the write lock may not
// also take the read lock on the same RWLock, and vice versa — both are
// LOCK-ERROR, not a recursive grant, matching the spec exactly (this is
// the one place this runtime's RWLock is deliberately less permissive
// than a recursive-reader-friendly RWMutex would be).
type RWLock struct {
	name string

	mu            sync.Mutex
	cond          *sync.Cond
	preferWriters bool

	writer         *xthread.Context
	readers        map[*xthread.Context]int
	waitingReaders int
	waitingWriters int
	deleted        bool
}

// NewRWLock returns a free RWLock. preferWriters selects the queueing
// policy: when true, a waiting writer blocks new (non-recursive) reader
// acquisitions until it has run; the default (false) prefers readers.
func NewRWLock(name string, preferWriters bool) *RWLock {
	l := &RWLock{name: name, preferWriters: preferWriters, readers: map[*xthread.Context]int{}}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Name implements xthread.Primitive.
func (l *RWLock) Name() string { return l.name }

// NumReaders reports the number of distinct threads currently holding
// the read lock. Restored from original_source/lib/RWLock.cpp, which
// the distilled spec's prose omits but which is useful for diagnostics
// and tests.
func (l *RWLock) NumReaders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.readers)
}

func (l *RWLock) canAcquireRead(tc *xthread.Context) bool {
	if l.writer != nil {
		return false
	}
	if _, already := l.readers[tc]; already {
		return true
	}
	if l.preferWriters && l.waitingWriters > 0 {
		return false
	}
	return true
}

func (l *RWLock) canAcquireWrite() bool {
	return l.writer == nil && len(l.readers) == 0
}

func (l *RWLock) publishOwnersLocked() {
	if l.writer != nil {
		xthread.Track(l, l.writer)
		return
	}
	owners := make([]*xthread.Context, 0, len(l.readers))
	for tc := range l.readers {
		owners = append(owners, tc)
	}
	if len(owners) == 0 {
		xthread.Track(l)
		return
	}
	xthread.Track(l, owners...)
}

// RLock acquires the read lock, blocking if necessary. Recursive
// acquisition by the same thread is allowed and must be matched by an
// equal number of RUnlock calls.
func (l *RWLock) RLock(tc *xthread.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == tc {
		return lockErrorf("thread %d holds the write lock on %q, cannot also take the read lock", tc.ID(), l.name)
	}
	for {
		if l.deleted {
			return lockErrorf("%q deleted in another thread", l.name)
		}
		if l.canAcquireRead(tc) {
			break
		}
		l.waitingReaders++
		if err := xthread.CheckAndMarkWaiting(tc, l); err != nil {
			l.waitingReaders--
			return err
		}
		l.cond.Wait()
		xthread.ClearWaiting(tc)
		l.waitingReaders--
	}
	l.readers[tc]++
	l.publishOwnersLocked()
	tc.PushLock(l.name)
	return nil
}

// RUnlock releases one recursive read-lock acquisition.
func (l *RWLock) RUnlock(tc *xthread.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.readers[tc]
	if !ok {
		return lockErrorf("thread %d tried to release the read lock on %q it does not hold", tc.ID(), l.name)
	}
	if n == 1 {
		delete(l.readers, tc)
	} else {
		l.readers[tc] = n - 1
	}
	tc.PopLock(l.name)
	l.publishOwnersLocked()
	l.cond.Broadcast()
	return nil
}

// Lock acquires the write lock exclusively, blocking if necessary.
func (l *RWLock) Lock(tc *xthread.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == tc {
		return lockErrorf("thread %d tried to grab the write lock on %q twice", tc.ID(), l.name)
	}
	if _, reading := l.readers[tc]; reading {
		return lockErrorf("thread %d holds the read lock on %q, cannot also take the write lock", tc.ID(), l.name)
	}
	for {
		if l.deleted {
			return lockErrorf("%q deleted in another thread", l.name)
		}
		if l.canAcquireWrite() {
			break
		}
		l.waitingWriters++
		if err := xthread.CheckAndMarkWaiting(tc, l); err != nil {
			l.waitingWriters--
			return err
		}
		l.cond.Wait()
		xthread.ClearWaiting(tc)
		l.waitingWriters--
	}
	l.writer = tc
	l.publishOwnersLocked()
	tc.PushLock(l.name)
	return nil
}

// Unlock releases the write lock.
func (l *RWLock) Unlock(tc *xthread.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != tc {
		return lockErrorf("thread %d tried to unlock write lock on %q it does not own", tc.ID(), l.name)
	}
	l.writer = nil
	l.publishOwnersLocked()
	tc.PopLock(l.name)
	l.cond.Broadcast()
	return nil
}

// WaitOn implements the release-and-reacquire condvar protocol of §4.L:
// tc must currently hold either the read or write lock; WaitOn records
// which, and how many recursive acquisitions, releases it completely,
// waits on cond, then reacquires the same mode (restoring the recursive
// count directly rather than looping the acquire, since only one
// exclusion check is needed on the way back in).
func (l *RWLock) WaitOn(tc *xthread.Context, cond *Cond, timeoutMs int64) (timedOut bool, err error) {
	l.mu.Lock()
	mode, count := l.modeOfLocked(tc)
	if mode == modeNone {
		l.mu.Unlock()
		return false, lockErrorf("thread %d waiting on %q while not holding either the read or write lock", tc.ID(), l.name)
	}
	switch mode {
	case modeWrite:
		l.writer = nil
	case modeRead:
		delete(l.readers, tc)
	}
	l.publishOwnersLocked()
	tc.PopLock(l.name)
	l.cond.Broadcast()
	l.mu.Unlock()

	timedOut = cond.Wait(timeoutMs)

	switch mode {
	case modeWrite:
		if e := l.Lock(tc); e != nil {
			return timedOut, e
		}
	case modeRead:
		if e := l.RLock(tc); e != nil {
			return timedOut, e
		}
		l.mu.Lock()
		l.readers[tc] = count
		l.mu.Unlock()
	}
	return timedOut, nil
}

func (l *RWLock) modeOfLocked(tc *xthread.Context) (rwMode, int) {
	if l.writer == tc {
		return modeWrite, 1
	}
	if n, ok := l.readers[tc]; ok {
		return modeRead, n
	}
	return modeNone, 0
}

// Close marks the lock deleted: any thread waiting on it is woken with a
// LOCK-ERROR, and any subsequent acquire attempt also fails with
// LOCK-ERROR, matching "destructor of an RWLock with waiters broadcasts
// and marks the lock as deleted".
func (l *RWLock) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deleted = true
	l.writer = nil
	l.readers = map[*xthread.Context]int{}
	xthread.Track(l)
	l.cond.Broadcast()
}
