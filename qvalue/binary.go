package qvalue

import (
	"bytes"

	"github.com/qorerun/qcore/xsink"
)

// Binary is the heap variant for an opaque byte buffer. Like Str its
// payload is immutable from the outside: append-style operators copy
// rather than mutate V in place, since V may be shared across Values.
type Binary struct {
	refCounted
	V []byte
}

func NewBinary(v []byte) *Binary {
	cp := make([]byte, len(v))
	copy(cp, v)
	return &Binary{refCounted: newRefCounted(), V: cp}
}

func (b *Binary) Kind() Kind      { return KindBinary }
func (b *Binary) IsValue() bool   { return true }
func (b *Binary) NeedsEval() bool { return false }
func (b *Binary) RealCopy() Node  { return NewBinary(b.V) }

func (b *Binary) Deref(sink *xsink.Sink) bool {
	return b.deref(sink, nil)
}

func (b *Binary) IsEqualSoft(other Node) bool {
	return b.IsEqualHard(other)
}

func (b *Binary) IsEqualHard(other Node) bool {
	o, ok := other.(*Binary)
	return ok && bytes.Equal(o.V, b.V)
}
