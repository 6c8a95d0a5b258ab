package qvalue

import "github.com/qorerun/qcore/xsink"

// Boolean boxes a bool as a heap Node, analogous to Integer and Float.
type Boolean struct {
	refCounted
	V bool
}

func NewBoolean(v bool) *Boolean {
	return &Boolean{refCounted: newRefCounted(), V: v}
}

func (b *Boolean) Kind() Kind      { return KindBoolean }
func (b *Boolean) IsValue() bool   { return true }
func (b *Boolean) NeedsEval() bool { return false }
func (b *Boolean) RealCopy() Node  { return NewBoolean(b.V) }

func (b *Boolean) Deref(sink *xsink.Sink) bool {
	return b.deref(sink, nil)
}

func (b *Boolean) IsEqualSoft(other Node) bool {
	o, ok := other.(*Boolean)
	return ok && o.V == b.V
}

func (b *Boolean) IsEqualHard(other Node) bool {
	return b.IsEqualSoft(other)
}
