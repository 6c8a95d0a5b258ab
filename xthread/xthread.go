// Package xthread implements the per-thread bookkeeping (C) and the
// deadlock-detection graph (D) that every blocking primitive in qlock
// consults before it blocks.
//
// Go has no stable, cheap notion of "the current OS thread" the way the
// original runtime does (one ThreadContext per OS thread, found via
// thread-local storage). Rather than fake a thread-local with a fragile
// goroutine-id parse (the technique the retrieved pack's own
// joeycumines/goroutineid uses, and explicitly only for diagnostics),
// this package makes the thread handle explicit: callers create one
// *Context per logical Qore thread with New() and thread it through
// every blocking call, typically stashed in a context.Context value via
// WithContext/FromContext at the embedding boundary.
package xthread

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/qorerun/qcore/xsink"
)

// Primitive is anything that can own a blocking wait: a qlock.Mutex
// write-hold, a qlock.RWLock read- or write-hold, a qpool wait slot, ...
// Implementations only need a stable identity and a human-readable name
// for deadlock reports.
type Primitive interface {
	Name() string
}

// Resource is an opaque per-thread cleanup registration: a handle plus a
// callback invoked when the owning Context exits, in LIFO order.
type Resource struct {
	Name    string
	Cleanup func(*xsink.Sink)
}

var nextID uint64

// Context is the per-thread state the spec calls ThreadContext: the
// stack of currently-held locks, the current program location (for
// exception enrichment), an optional call-stack trace, and the thread
// resources that must be released on exit.
type Context struct {
	id uint64

	mu        sync.Mutex
	location  xsink.Location
	callStack []xsink.Frame
	lockStack []string
	resources []Resource

	// waitingOn is read/written only under the package-level graphMu,
	// since deadlock detection must inspect other threads' Contexts.
	waitingOn Primitive
}

// New creates a fresh, empty Context for a logical Qore thread.
func New() *Context {
	return &Context{id: atomic.AddUint64(&nextID, 1)}
}

// ID returns the thread's stable identifier, used in exception messages
// exactly as the original uses a numeric "tid".
func (c *Context) ID() uint64 { return c.id }

// SetLocation updates the thread's current program location, consulted
// when an Exception is raised so it can be stamped with where the
// failing call happened.
func (c *Context) SetLocation(loc xsink.Location) {
	c.mu.Lock()
	c.location = loc
	c.mu.Unlock()
}

// Location returns the thread's current program location.
func (c *Context) Location() xsink.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// PushFrame/PopFrame maintain the debug-mode call-stack trace.
func (c *Context) PushFrame(f xsink.Frame) {
	c.mu.Lock()
	c.callStack = append(c.callStack, f)
	c.mu.Unlock()
}

func (c *Context) PopFrame() {
	c.mu.Lock()
	if n := len(c.callStack); n > 0 {
		c.callStack = c.callStack[:n-1]
	}
	c.mu.Unlock()
}

// CallStack returns a snapshot of the current call-stack trace, in
// outermost-to-innermost order, suitable for attaching to a raised
// Exception.
func (c *Context) CallStack() []xsink.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]xsink.Frame, len(c.callStack))
	copy(out, c.callStack)
	return out
}

// PushLock/PopLock maintain the stack of locks held in acquisition
// order. qlock primitives call these around a successful acquire and
// its matching release.
func (c *Context) PushLock(name string) {
	c.mu.Lock()
	c.lockStack = append(c.lockStack, name)
	c.mu.Unlock()
}

func (c *Context) PopLock(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.lockStack) - 1; i >= 0; i-- {
		if c.lockStack[i] == name {
			c.lockStack = append(c.lockStack[:i], c.lockStack[i+1:]...)
			return
		}
	}
}

// HeldLocks returns a snapshot of the locks currently held by this
// thread, in acquisition order.
func (c *Context) HeldLocks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lockStack))
	copy(out, c.lockStack)
	return out
}

// RegisterResource registers a cleanup callback to run when the thread
// exits (normally or via exception), LIFO. An unreleased ManagedResource
// (qresource) registers itself this way so a thread that forgets to
// commit/rollback still gets cleaned up.
func (c *Context) RegisterResource(name string, cleanup func(*xsink.Sink)) {
	c.mu.Lock()
	c.resources = append(c.resources, Resource{Name: name, Cleanup: cleanup})
	c.mu.Unlock()
}

// RemoveResource cancels a previously registered cleanup, e.g. because
// the resource was released through its normal API before thread exit.
// Reports whether a matching resource was found.
func (c *Context) RemoveResource(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.resources) - 1; i >= 0; i-- {
		if c.resources[i].Name == name {
			c.resources = append(c.resources[:i], c.resources[i+1:]...)
			return true
		}
	}
	return false
}

// Exit runs every remaining thread resource's cleanup in LIFO order.
// Each cleanup receives a fresh per-call sink; any exceptions it raises
// are assimilated into sink, matching "further exceptions ... appended
// to a late sink".
func (c *Context) Exit(sink *xsink.Sink) {
	c.mu.Lock()
	pending := c.resources
	c.resources = nil
	c.mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		late := xsink.New()
		pending[i].Cleanup(late)
		late.Handled() // the caller's sink is now responsible for reporting
		sink.Assimilate(late)
	}

	graphMu.Lock()
	c.waitingOn = nil
	graphMu.Unlock()
}

type ctxKeyType struct{}

var ctxKey ctxKeyType

// WithContext attaches a qore thread Context to a Go context.Context,
// for embedding APIs that want to thread it implicitly through a call
// tree the way the original threads an OS thread implicitly.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, ctxKey, tc)
}

// FromContext retrieves a previously attached Context, or nil.
func FromContext(ctx context.Context) *Context {
	tc, _ := ctx.Value(ctxKey).(*Context)
	return tc
}
