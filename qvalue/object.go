package qvalue

import (
	"sync"

	"github.com/qorerun/qcore/xsink"
)

// Object is the heap variant for a class instance: a named member hash
// plus an optional user-defined destructor. Unlike the other container
// variants, Object carries its own mutex rather than relying on COW —
// object identity (pointer equality, §4.F hard-equality rule below)
// means every Value referencing the same Object must observe the same
// mutable state, the opposite of List/Hash's value semantics.
//
// Destructor may raise (a Qore-language `destructor { throw ... }`
// block), which is why Deref takes the sink that reaches it, not a
// bare Go finalizer.
type Object struct {
	refCounted
	mu         sync.Mutex
	ClassName  string
	members    *Hash
	destructor func(self *Object, sink *xsink.Sink)
	destroyed  bool
}

// NewObject returns a fresh, singly-referenced Object of the given
// class name with an empty member hash and no destructor.
func NewObject(className string) *Object {
	return &Object{refCounted: newRefCounted(), ClassName: className, members: NewHash()}
}

// SetDestructor installs the hook run exactly once, the moment the
// refcount reaches zero.
func (o *Object) SetDestructor(fn func(self *Object, sink *xsink.Sink)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destructor = fn
}

func (o *Object) Kind() Kind      { return KindObject }
func (o *Object) IsValue() bool   { return true }
func (o *Object) NeedsEval() bool { return false }

// RealCopy bumps the reference rather than deep-copying: object
// semantics are reference semantics (§4.F), so "copying" an Object
// Value means sharing the same identity, matching the original's
// QoreObject::realCopy behavior of returning `this, ref-bumped`.
func (o *Object) RealCopy() Node {
	o.Ref()
	return o
}

// Deref runs the destructor (if any and not already run) before the
// base refcount template reports destruction, then derefs every member
// value. A destructor that raises still allows member cleanup to
// proceed — the exception is recorded on sink, not propagated as a Go
// error.
func (o *Object) Deref(sink *xsink.Sink) bool {
	return o.deref(sink, func(s *xsink.Sink) {
		o.mu.Lock()
		destructor := o.destructor
		already := o.destroyed
		o.destroyed = true
		members := o.members
		o.mu.Unlock()
		if destructor != nil && !already {
			destructor(o, s)
		}
		if members != nil {
			members.Deref(s)
		}
	})
}

// Members returns the object's backing member hash, for callers (e.g.
// qops' Hash/Object merge rules) that need to enumerate every member
// rather than look one up by name. The returned Hash is still owned by
// this Object; callers must not mutate it directly.
func (o *Object) Members() *Hash {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.members
}

// GetMember returns the named member's value and whether it is set.
func (o *Object) GetMember(name string) (Value, bool) {
	o.mu.Lock()
	m := o.members
	o.mu.Unlock()
	return m.Get(name)
}

// SetMember assigns the named member. The member hash is normally
// referenced only by this Object, so EnsureUnique returns it unchanged
// and the write happens in place; if anything else holds a reference to
// it, the Object switches to a private copy before writing.
func (o *Object) SetMember(name string, v Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.members = o.members.EnsureUnique()
	o.members.Set(name, v)
}

// IsEqualSoft and IsEqualHard both use pointer identity: two Object
// Values are equal iff they name the exact same instance, never by
// structural member comparison (§4.F).
func (o *Object) IsEqualSoft(other Node) bool {
	return o.IsEqualHard(other)
}

func (o *Object) IsEqualHard(other Node) bool {
	p, ok := other.(*Object)
	return ok && p == o
}
