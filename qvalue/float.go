package qvalue

import "github.com/qorerun/qcore/xsink"

// Float boxes a float64 as a heap Node, analogous to Integer.
type Float struct {
	refCounted
	V float64
}

func NewFloat(v float64) *Float {
	return &Float{refCounted: newRefCounted(), V: v}
}

func (f *Float) Kind() Kind      { return KindFloat }
func (f *Float) IsValue() bool   { return true }
func (f *Float) NeedsEval() bool { return false }
func (f *Float) RealCopy() Node  { return NewFloat(f.V) }

func (f *Float) Deref(sink *xsink.Sink) bool {
	return f.deref(sink, nil)
}

func (f *Float) IsEqualSoft(other Node) bool {
	switch o := other.(type) {
	case *Float:
		return o.V == f.V
	case *Integer:
		return float64(o.V) == f.V
	case *Number:
		return o.V.Equal(NewDecimalFromFloat64(f.V))
	default:
		return false
	}
}

func (f *Float) IsEqualHard(other Node) bool {
	o, ok := other.(*Float)
	return ok && o.V == f.V
}
