package qlock

import (
	"sync"
	"time"
)

// Cond is a condition variable with a millisecond-grained timeout, the
// primitive the spec's §4.B describes as "wait(mutex[, timeout])...
// return value distinguishes success from timeout". Unlike sync.Cond it
// is not paired with a single Locker: Mutex.Wait and RWLock.WaitOn use
// it as the bare wait barrier and perform the release-before/reacquire-
// after themselves, since RWLock.WaitOn must release a lock that is not
// the one guarding Cond's own waiter queue.
type Cond struct {
	mu      sync.Mutex
	waiters []chan struct{}
}

// NewCond returns a ready-to-use Cond.
func NewCond() *Cond {
	return &Cond{}
}

// Wait blocks until Signal, Broadcast, or (if timeoutMs > 0) the timeout
// elapses, and reports whether it returned because of the timeout.
// timeoutMs <= 0 means wait forever.
func (c *Cond) Wait(timeoutMs int64) (timedOut bool) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	if timeoutMs <= 0 {
		<-ch
		return false
	}

	t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ch:
		return false
	case <-t.C:
		c.removeWaiter(ch)
		return true
	}
}

func (c *Cond) removeWaiter(ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// Signal wakes at most one waiter, if any is currently blocked.
func (c *Cond) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return
	}
	ch := c.waiters[0]
	c.waiters = c.waiters[1:]
	close(ch)
}

// Broadcast wakes every waiter currently blocked.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
}
