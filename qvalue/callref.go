package qvalue

import "github.com/qorerun/qcore/xsink"

// CallReference is the heap variant for a deferred call target (a
// function pointer, a bound method closure, a closure over captured
// local variables). It is one of the two NeedsEval()==true variants:
// evaluating it invokes Target and hands back whatever the call
// produced, rather than the reference itself.
type CallReference struct {
	refCounted
	Name   string
	Target func(args []Value, sink *xsink.Sink) Value
}

// NewCallReference wraps target under the given diagnostic name (used
// in stack frames, not for dispatch).
func NewCallReference(name string, target func(args []Value, sink *xsink.Sink) Value) *CallReference {
	return &CallReference{refCounted: newRefCounted(), Name: name, Target: target}
}

func (c *CallReference) Kind() Kind      { return KindCallReference }
func (c *CallReference) IsValue() bool   { return true }
func (c *CallReference) NeedsEval() bool { return true }
func (c *CallReference) RealCopy() Node  { c.Ref(); return c }

func (c *CallReference) Deref(sink *xsink.Sink) bool {
	return c.deref(sink, nil)
}

// Eval invokes Target with no arguments. Call sites that need to pass
// arguments go through Invoke instead; Eval exists to satisfy the
// Evaluable contract used by Value.Eval's generic dispatch.
func (c *CallReference) Eval(sink *xsink.Sink) Value {
	return c.Invoke(nil, sink)
}

// Invoke calls Target with args, or returns Nothing() if the reference
// was constructed without a target (a resolved-at-parse-time
// placeholder whose binding failed and was already reported).
func (c *CallReference) Invoke(args []Value, sink *xsink.Sink) Value {
	if c.Target == nil {
		return Nothing()
	}
	return c.Target(args, sink)
}

func (c *CallReference) IsEqualSoft(other Node) bool {
	return c.IsEqualHard(other)
}

func (c *CallReference) IsEqualHard(other Node) bool {
	o, ok := other.(*CallReference)
	return ok && o == c
}
