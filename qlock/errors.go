// Package qlock implements the primitive locks (B) and the RWLock/
// condition-variable protocol (L) the rest of the runtime is built on.
//
// It generalizes the teacher's bit-packed, CAS-driven ilock.Mutex (which
// implements a four-state {IS, IX, S, X} intention lock for a
// hierarchical-locking trie) down to the two states {read, write} this
// runtime's RWLock actually needs, while keeping the teacher's core
// idiom: a plain sync.Mutex guarding a small state struct, a sync.Cond
// (or, where a timeout is required, the channel-queue Cond in cond.go)
// as the wait barrier, and an acquire loop that rechecks the predicate
// after every wake.
//
// Every blocking acquire here threads an *xthread.Context through so it
// can publish ownership to, and consult, the deadlock graph (D) before
// it blocks, per spec §4.D: a cycle is rejected eagerly, never ridden
// out with a timeout.
package qlock

import "fmt"

// LockError reports misuse of a lock: double acquire by the same
// thread, unlock/wait by a non-owner, or use after the lock was marked
// deleted. It is the Go-level analogue of the embedding boundary's
// LOCK-ERROR exception tag; callers that surface it to Qore code wrap
// it as xsink.Sink.RaiseSystem("LOCK-ERROR", err.Error()).
type LockError struct {
	Msg string
}

func (e *LockError) Error() string { return e.Msg }

func lockErrorf(format string, args ...any) *LockError {
	return &LockError{Msg: fmt.Sprintf(format, args...)}
}
