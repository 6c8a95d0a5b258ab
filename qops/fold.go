package qops

import (
	"github.com/qorerun/qcore/qruntime"
	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

// CanFold reports whether a and b are pure, compile-time-known operands
// — neither needs a further evaluation pass — making them eligible for
// constant folding per §4.H ("if both operands' static types are known
// and both are pure ... the operator must fold at parse time").
func CanFold(a, b qvalue.Value) bool {
	return !needsEval(a) && !needsEval(b)
}

func needsEval(v qvalue.Value) bool {
	n := v.NodeValue()
	return n != nil && n.NeedsEval()
}

// FoldConstant replaces a parse-tree operator application with its
// literal result when both operands are foldable, honoring
// OptLockWarnings-style parser gates: folding is skipped under
// OptNoModules since module-scoped constant expressions may depend on
// a module's own load-time initialization the folder cannot see.
// ok is false when folding does not apply (an operand needs eval, the
// fold itself raised, or parsing has disabled it), in which case the
// caller must leave the operator node in the parse tree for runtime
// dispatch instead.
func FoldConstant(op string, a, b qvalue.Value, opts qruntime.ParseOptions) (result qvalue.Value, ok bool) {
	if opts.Has(qruntime.OptNoModules) {
		return qvalue.Nothing(), false
	}
	if !CanFold(a, b) {
		return qvalue.Nothing(), false
	}
	parseSink := xsink.New()
	defer parseSink.Clear()
	var folded qvalue.Value
	if op == AddOp {
		folded = Add(a, b, parseSink)
	} else {
		folded = Dispatch(op, a, b, parseSink)
	}
	if parseSink.IsException() {
		return qvalue.Nothing(), false
	}
	return folded, true
}
