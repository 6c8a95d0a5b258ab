// Package qholder implements scoped ownership helpers over qvalue.Value
// and qvalue.Node (component G): RAII-style wrappers that guarantee a
// held reference is released exactly once, even across an early return
// or a panic, by pairing construction with a deferred Release call —
// Go's nearest equivalent to the original's stack-allocated
// ValueHolder/ReferenceHolder destructors.
package qholder

import (
	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

// ValueHolder owns a qvalue.Value for the duration of a scope. Release
// (normally deferred immediately after New) derefs the held value
// unless it has been handed off via Take.
type ValueHolder struct {
	v        qvalue.Value
	sink     *xsink.Sink
	released bool
}

// New wraps v, to be released against sink.
func New(v qvalue.Value, sink *xsink.Sink) *ValueHolder {
	return &ValueHolder{v: v, sink: sink}
}

// Get returns the held value without transferring ownership.
func (h *ValueHolder) Get() qvalue.Value {
	return h.v
}

// Assign replaces the held value, releasing the previous one first.
func (h *ValueHolder) Assign(v qvalue.Value) {
	if !h.released {
		h.v.Deref(h.sink)
	}
	h.v = v
	h.released = false
}

// Take hands the held value to the caller and disarms Release: the
// caller now owns the reference and is responsible for its lifetime.
func (h *ValueHolder) Take() qvalue.Value {
	h.released = true
	return h.v
}

// Release derefs the held value against the holder's sink. Idempotent:
// calling it more than once, or after Take, is a no-op. Callers
// normally write `defer h.Release()` immediately after New.
func (h *ValueHolder) Release() {
	if h.released {
		return
	}
	h.released = true
	h.v.Deref(h.sink)
}

// NodeHolder is ValueHolder's counterpart for a bare qvalue.Node
// reference (used where the caller already knows it is not dealing
// with an unboxed scalar and doesn't want to round-trip through Value).
type NodeHolder struct {
	n        qvalue.Node
	sink     *xsink.Sink
	released bool
}

// NewNode wraps n, to be released against sink.
func NewNode(n qvalue.Node, sink *xsink.Sink) *NodeHolder {
	return &NodeHolder{n: n, sink: sink}
}

func (h *NodeHolder) Get() qvalue.Node {
	return h.n
}

func (h *NodeHolder) Take() qvalue.Node {
	h.released = true
	return h.n
}

func (h *NodeHolder) Release() {
	if h.released || h.n == nil {
		return
	}
	h.released = true
	h.n.Deref(h.sink)
}

// TempSink is a scoped ExceptionSink for internal operations (e.g. an
// Object destructor invoked during a larger call whose own sink should
// not directly see intermediate bookkeeping exceptions) that assimilates
// into a parent sink on release rather than ever reaching the default
// handler on its own.
type TempSink struct {
	inner  *xsink.Sink
	parent *xsink.Sink
}

// NewTempSink returns a fresh sink that will assimilate into parent when
// Release is called.
func NewTempSink(parent *xsink.Sink) *TempSink {
	return &TempSink{inner: xsink.New(), parent: parent}
}

// Sink returns the scoped sink to pass to the operation under it.
func (t *TempSink) Sink() *xsink.Sink {
	return t.inner
}

// Release assimilates any accumulated exceptions into the parent sink.
// Safe to call multiple times.
func (t *TempSink) Release() {
	if t.parent != nil {
		t.parent.Assimilate(t.inner)
	} else {
		t.inner.Handled()
	}
}
