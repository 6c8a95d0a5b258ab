package qvalue

import (
	"sync/atomic"

	"github.com/qorerun/qcore/xsink"
)

// Node is the heap entity of §3/§4.F: a reference-counted payload
// carrying one variant of the type lattice, an is_value flag
// distinguishing evaluated values from parse-tree placeholders, and a
// needs_eval flag requesting a second evaluation pass.
//
// Deref may run a user-defined destructor (Object's) that can itself
// raise; that is why it takes a sink instead of being a plain Go
// destructor/finalizer. Deref returns whether the node was actually
// destroyed (the refcount reached zero), mirroring the virtual
// derefImpl(sink) -> bool contract: a base "decrement and check zero"
// wrapper calling into a per-variant destroy hook.
type Node interface {
	Kind() Kind
	IsValue() bool
	NeedsEval() bool
	Ref()
	Deref(sink *xsink.Sink) bool
	RealCopy() Node
	IsEqualSoft(other Node) bool
	IsEqualHard(other Node) bool
}

// Evaluable is implemented by Node variants with NeedsEval() == true:
// CallReference and ParseNode. Calling Eval on a non-parse-node variant
// is defined (§4.F) to return a ref-bumped self-reference; scalar/
// container variants therefore do not need to implement this interface
// at all — qvalue.Value.Eval handles the "not Evaluable" case directly.
type Evaluable interface {
	Eval(sink *xsink.Sink) Value
}

// refCounted is the embeddable base every concrete Node variant uses for
// its atomic refcount. destroy is called exactly once, when the count
// reaches zero, by the embedding variant's Deref override — it is not
// itself part of the Node interface because each variant's destroy
// logic differs (running an object destructor, dropping references to
// contained Values; the scalar variants and Binary have none).
type refCounted struct {
	count int64
}

func newRefCounted() refCounted {
	return refCounted{count: 1}
}

// Ref atomically increments the count. Legal on any live node.
func (r *refCounted) Ref() {
	atomic.AddInt64(&r.count, 1)
}

// derefCount atomically decrements the count and reports whether it
// reached zero (i.e. whether the caller's destroy hook should run now).
func (r *refCounted) derefCount() bool {
	return atomic.AddInt64(&r.count, -1) == 0
}

// RefCount returns the current reference count, for diagnostics and
// tests; it is not part of the exported Node contract.
func (r *refCounted) RefCount() int64 {
	return atomic.LoadInt64(&r.count)
}

// deref is the shared "decrement; if zero, destroy" template every
// concrete variant's Deref method calls, passing its own destroy
// callback. destroy may append exceptions to sink (e.g. an Object's
// destructor); it has no result, since the sink itself is the channel
// for those. deref reports whether the count reached zero.
func (r *refCounted) deref(sink *xsink.Sink, destroy func(*xsink.Sink)) bool {
	if !r.derefCount() {
		return false
	}
	if destroy != nil {
		destroy(sink)
	}
	return true
}
