package qvalue

import (
	"sync"

	"github.com/qorerun/qcore/xsink"
)

// List is the heap variant for an ordered, 0-indexed sequence of Values.
// Mutating operators (append, splice, element assignment) follow the
// resolved Open Question of §9: before any in-place mutation, the
// caller must check RefCount() and, if it is greater than 1 (meaning
// some other Value still observes the pre-mutation contents), call
// RealCopy first and mutate the copy instead — copy-on-write-before-
// mutation rather than copy-on-every-read. EnsureUnique implements that
// check so qops call sites do not have to re-derive it.
type List struct {
	refCounted
	mu    sync.Mutex
	elems []Value
}

// NewList returns a fresh, singly-referenced, empty List node.
func NewList() *List {
	return &List{refCounted: newRefCounted()}
}

func (l *List) Kind() Kind      { return KindList }
func (l *List) IsValue() bool   { return true }
func (l *List) NeedsEval() bool { return false }

// RealCopy deep-copies the element slice (bumping each element's Node
// reference via Value.Copy) so the result is independently mutable.
func (l *List) RealCopy() Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := NewList()
	cp.elems = make([]Value, len(l.elems))
	for i, v := range l.elems {
		cp.elems[i] = v.Copy()
	}
	return cp
}

// EnsureUnique returns a List safe to mutate in place: self if
// RefCount()==1, otherwise a RealCopy (the caller is then responsible
// for derefing the original reference it held and for swapping in the
// returned node).
func (l *List) EnsureUnique() *List {
	if l.RefCount() == 1 {
		return l
	}
	return l.RealCopy().(*List)
}

// Deref releases every element's reference before the base refcount
// template reports destruction.
func (l *List) Deref(sink *xsink.Sink) bool {
	return l.deref(sink, func(s *xsink.Sink) {
		l.mu.Lock()
		elems := l.elems
		l.elems = nil
		l.mu.Unlock()
		for _, v := range elems {
			v.Deref(s)
		}
	})
}

// Len reports the element count.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.elems)
}

// Get returns the element at i, or Nothing() if i is out of range —
// list indexing never raises (§4.F).
func (l *List) Get(i int) Value {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.elems) {
		return Nothing()
	}
	return l.elems[i]
}

// Set assigns index i, growing the list with Nothing() padding as
// needed (matching the original's auto-extend-on-assign semantics).
// Callers must have already established uniqueness via EnsureUnique.
func (l *List) Set(i int, v Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 {
		return
	}
	for i >= len(l.elems) {
		l.elems = append(l.elems, Nothing())
	}
	l.elems[i] = v
}

// Append adds v to the end. Callers must have already established
// uniqueness via EnsureUnique.
func (l *List) Append(v Value) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.elems = append(l.elems, v)
}

// Elements returns a snapshot copy of the current element slice; the
// caller may read it freely but must not assume later mutations are
// reflected in it.
func (l *List) Elements() []Value {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Value, len(l.elems))
	copy(out, l.elems)
	return out
}

func (l *List) IsEqualSoft(other Node) bool {
	return l.isEqual(other, valuesEqualSoft)
}

func (l *List) IsEqualHard(other Node) bool {
	return l.isEqual(other, valuesEqualHard)
}

func (l *List) isEqual(other Node, cmp func(a, b Value) bool) bool {
	o, ok := other.(*List)
	if !ok {
		return false
	}
	a, b := l.Elements(), o.Elements()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !cmp(a[i], b[i]) {
			return false
		}
	}
	return true
}
