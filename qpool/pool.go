// Package qpool implements ResourcePool (component J): a pool of
// qresource.ManagedResource instances with per-thread transactional
// pinning, grounded on original_source/lib/DatasourcePool.h's free-list
// and thread-index-map design.
package qpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/qorerun/qcore/qresource"
	"github.com/qorerun/qcore/qruntime"
	"github.com/qorerun/qcore/xsink"
	"github.com/qorerun/qcore/xthread"
)

// Factory constructs one pool member. Called lazily, up to max times.
type Factory func() *qresource.ManagedResource

// ResourcePool is the fixed-min/max pool of §4.J. The "room to grow"
// check is implemented with golang.org/x/sync/semaphore rather than a
// hand-rolled counter: TryAcquire on the grow-budget semaphore is
// exactly "has the pool room to create one more member", and it composes
// cleanly with the free-list mutex/cond below.
type ResourcePool struct {
	mu   sync.Mutex
	cond *sync.Cond

	factory Factory
	members []*qresource.ManagedResource
	free    []int // indices into members, FIFO

	pinned map[uint64]int // thread id -> pinned index

	growBudget *semaphore.Weighted
	max        int
	waitCount  int
	valid      bool
}

// New constructs a pool that starts with min members open and can grow
// up to max. min and max must both be >= 1.
func New(min, max int, factory Factory) (*ResourcePool, error) {
	if min < 1 || max < min {
		return nil, fmt.Errorf("qpool: invalid min/max (%d, %d)", min, max)
	}
	p := &ResourcePool{
		factory:    factory,
		pinned:     map[uint64]int{},
		growBudget: semaphore.NewWeighted(int64(max)),
		max:        max,
		valid:      true,
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < min; i++ {
		p.growBudget.Acquire(context.Background(), 1)
		p.members = append(p.members, factory())
		p.free = append(p.free, i)
	}
	return p, nil
}

// Acquire implements the four-step allocation rule of §4.J. It blocks
// until a resource is available or the pool is invalidated.
func (p *ResourcePool) Acquire(tc *xthread.Context, sink *xsink.Sink) (*qresource.ManagedResource, error) {
	p.mu.Lock()
	for {
		if !p.valid {
			p.mu.Unlock()
			sink.RaiseSystem("DATASOURCEPOOL-ERROR", "pool destroyed while a thread was waiting for a resource")
			return nil, fmt.Errorf("qpool: pool destroyed")
		}
		if idx, ok := p.pinned[tc.ID()]; ok {
			p.mu.Unlock()
			return p.members[idx], nil
		}
		if len(p.free) > 0 {
			idx := p.free[0]
			p.free = p.free[1:]
			p.pinned[tc.ID()] = idx
			p.mu.Unlock()
			return p.members[idx], nil
		}
		if p.growBudget.TryAcquire(1) {
			idx := len(p.members)
			p.members = append(p.members, p.factory())
			p.pinned[tc.ID()] = idx
			p.mu.Unlock()
			qruntime.Log().WithFields(logrus.Fields{"index": idx}).Info("qpool: grew pool")
			return p.members[idx], nil
		}
		p.waitCount++
		p.cond.Wait()
		p.waitCount--
	}
}

// Release implements the release rule: a thread still in a transaction
// keeps its pin; otherwise the member is unpinned and returned to the
// free list, waking one waiter.
func (p *ResourcePool) Release(tc *xthread.Context, inTransaction bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.pinned[tc.ID()]
	if !ok || inTransaction {
		return
	}
	delete(p.pinned, tc.ID())
	p.free = append(p.free, idx)
	p.cond.Signal()
}

// Replace tears down the member at the pinned index for tc (a
// "connection aborted" resource, §4.J) and allocates a fresh one in its
// place, keeping tc's pin.
func (p *ResourcePool) Replace(tc *xthread.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.pinned[tc.ID()]
	if !ok {
		return
	}
	p.members[idx].Close()
	p.members[idx] = p.factory()
}

// WaitCount reports the number of threads currently blocked in Acquire,
// for diagnostics and tests.
func (p *ResourcePool) WaitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitCount
}

// Size reports the current member count (<= max).
func (p *ResourcePool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}

// Destroy invalidates the pool, waking every waiter so it observes
// DATASOURCEPOOL-ERROR, and closes every member.
func (p *ResourcePool) Destroy() {
	p.mu.Lock()
	p.valid = false
	members := p.members
	p.mu.Unlock()
	p.cond.Broadcast()
	for _, m := range members {
		m.Close()
	}
}

// ActionCommand selects what an ActionHelper does on release.
type ActionCommand int

const (
	CommandNone ActionCommand = iota
	CommandAcquire
	CommandRelease
)

// ActionHelper is the RAII-style helper of §4.J: it acquires (per
// Command) on construction and releases on Close according to the
// command plus the resource's current transaction state. Callers use
// it with `defer helper.Close()`.
type ActionHelper struct {
	pool     *ResourcePool
	tc       *xthread.Context
	cmd      ActionCommand
	resource *qresource.ManagedResource
}

// NewActionHelper acquires a resource from pool per cmd and returns a
// helper wrapping it. CommandNone performs no acquisition and Resource()
// returns nil — used when the caller already holds a pinned resource
// and just wants symmetric release bookkeeping.
func NewActionHelper(pool *ResourcePool, tc *xthread.Context, sink *xsink.Sink, cmd ActionCommand) (*ActionHelper, error) {
	h := &ActionHelper{pool: pool, tc: tc, cmd: cmd}
	if cmd == CommandAcquire || cmd == CommandRelease {
		r, err := pool.Acquire(tc, sink)
		if err != nil {
			return nil, err
		}
		h.resource = r
	}
	return h, nil
}

// Resource returns the acquired resource, or nil for CommandNone.
func (h *ActionHelper) Resource() *qresource.ManagedResource {
	return h.resource
}

// Close releases according to cmd and the resource's transaction state:
// CommandRelease hands the pin back to the pool unless the resource is
// still in a transaction (IdleInTxn or InActionInTxn), in which case the
// pin is kept; CommandAcquire leaves the pin in place (the caller intends to keep
// using it, e.g. across a still-open transaction); CommandNone is a
// no-op.
func (h *ActionHelper) Close() {
	if h.cmd != CommandRelease || h.resource == nil {
		return
	}
	inTxn := h.resource.State() == qresource.StateIdleInTxn || h.resource.State() == qresource.StateInActionInTxn
	h.pool.Release(h.tc, inTxn)
}
