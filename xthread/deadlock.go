package xthread

import (
	"fmt"
	"sync"
)

// graphMu is the one process-wide lock guarding the deadlock-detection
// graph: each Primitive's current owner set, and every Context's
// waitingOn back-pointer. Global state is minimized per the spec's
// concurrency model (§5): this is the single exception, and it is held
// only for the duration of an O(owners) graph walk, never across an
// actual blocking wait.
var (
	graphMu     sync.Mutex
	graphOwners = map[Primitive][]*Context{}
)

// ErrDeadlock is returned by CheckAndMarkWaiting when granting the
// requested wait would complete a cycle. The caller must not block.
// qlock's acquire methods return it unchanged as a Go error; raising the
// language-visible THREAD-DEADLOCK exception from it is left to their
// callers.
type ErrDeadlock struct {
	Self      *Context
	Other     *Context
	Primitive string
}

func (e *ErrDeadlock) Error() string {
	return fmt.Sprintf("thread %d and %d would deadlock on %s", e.Self.id, e.Other.id, e.Primitive)
}

// Track publishes p's current owner set to the deadlock graph. qlock
// primitives call this every time their ownership changes (acquired,
// released, upgraded) while still holding their own internal state
// lock; Track only takes the much coarser graphMu, briefly.
func Track(p Primitive, owners ...*Context) {
	graphMu.Lock()
	if len(owners) == 0 {
		delete(graphOwners, p)
	} else {
		cp := make([]*Context, len(owners))
		copy(cp, owners)
		graphOwners[p] = cp
	}
	graphMu.Unlock()
}

// CheckAndMarkWaiting is called by a qlock primitive immediately before
// it would block waiting for p. It walks the transitive "owner ->
// waiting_on" chain starting at p's current owners; if that walk
// revisits self, granting this wait would deadlock, and the primitive
// must raise THREAD-DEADLOCK instead of blocking — even under a
// timeout, since a deadlock is a programming bug regardless of whether
// the timeout would eventually unblock the caller.
//
// On success (no cycle), self.waitingOn is set to p so that other
// threads' checks can see through this thread while it blocks. The
// caller must call ClearWaiting(self) once it stops waiting (acquired
// or gave up), on every exit path.
func CheckAndMarkWaiting(self *Context, p Primitive) error {
	graphMu.Lock()
	defer graphMu.Unlock()

	visited := map[Primitive]bool{p: true}
	queue := []Primitive{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, owner := range graphOwners[cur] {
			if owner == self {
				return &ErrDeadlock{Self: self, Other: ownerOf(graphOwners[cur], self), Primitive: cur.Name()}
			}
			if owner.waitingOn == nil {
				continue
			}
			if !visited[owner.waitingOn] {
				visited[owner.waitingOn] = true
				queue = append(queue, owner.waitingOn)
			}
		}
	}

	self.waitingOn = p
	return nil
}

// ownerOf picks a representative "other" thread id for the deadlock
// message: any owner of cur that is not self (self is already known to
// be among owners when this is called).
func ownerOf(owners []*Context, self *Context) *Context {
	for _, o := range owners {
		if o != self {
			return o
		}
	}
	return self
}

// ClearWaiting removes self's waiting_on back-pointer. Call on every
// exit path after a successful CheckAndMarkWaiting: lock acquired, wait
// timed out, or the wait was abandoned.
func ClearWaiting(self *Context) {
	graphMu.Lock()
	self.waitingOn = nil
	graphMu.Unlock()
}
