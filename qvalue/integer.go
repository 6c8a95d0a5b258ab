package qvalue

import "github.com/qorerun/qcore/xsink"

// Integer boxes an int64 as a heap Node. Value construction (NewInt)
// normally keeps integers unboxed (Value.tag==TagInt64); this variant
// exists for contexts that require a Node handle regardless of kind —
// list/hash elements, CallReference arguments, and so on.
type Integer struct {
	refCounted
	V int64
}

func NewInteger(v int64) *Integer {
	return &Integer{refCounted: newRefCounted(), V: v}
}

func (i *Integer) Kind() Kind      { return KindInteger }
func (i *Integer) IsValue() bool   { return true }
func (i *Integer) NeedsEval() bool { return false }
func (i *Integer) RealCopy() Node  { return NewInteger(i.V) }

func (i *Integer) Deref(sink *xsink.Sink) bool {
	return i.deref(sink, nil)
}

func (i *Integer) IsEqualSoft(other Node) bool {
	switch o := other.(type) {
	case *Integer:
		return o.V == i.V
	case *Float:
		return o.V == float64(i.V)
	case *Number:
		return o.V.Equal(NewDecimalFromInt64(i.V))
	default:
		return false
	}
}

func (i *Integer) IsEqualHard(other Node) bool {
	o, ok := other.(*Integer)
	return ok && o.V == i.V
}
