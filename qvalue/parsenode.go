package qvalue

import "github.com/qorerun/qcore/xsink"

// ParseNode is the heap variant for an unevaluated parse-tree fragment
// (an operator expression, a variable reference, a parsed-but-not-yet-
// folded constant). It is the second NeedsEval()==true variant:
// IsValue() is false because a ParseNode is a placeholder, not a
// result, matching the original AbstractQoreNode's is_value bit.
type ParseNode struct {
	refCounted
	Evaluator func(sink *xsink.Sink) Value
}

// NewParseNode wraps evaluator as a deferred parse-tree fragment.
func NewParseNode(evaluator func(sink *xsink.Sink) Value) *ParseNode {
	return &ParseNode{refCounted: newRefCounted(), Evaluator: evaluator}
}

func (p *ParseNode) Kind() Kind      { return KindParseNode }
func (p *ParseNode) IsValue() bool   { return false }
func (p *ParseNode) NeedsEval() bool { return true }
func (p *ParseNode) RealCopy() Node  { p.Ref(); return p }

func (p *ParseNode) Deref(sink *xsink.Sink) bool {
	return p.deref(sink, nil)
}

// Eval runs Evaluator, producing the actual value this fragment
// denotes. A ParseNode with a nil Evaluator (never resolved, e.g. a
// parse error already reported elsewhere) evaluates to Nothing().
func (p *ParseNode) Eval(sink *xsink.Sink) Value {
	if p.Evaluator == nil {
		return Nothing()
	}
	return p.Evaluator(sink)
}

func (p *ParseNode) IsEqualSoft(other Node) bool {
	return p.IsEqualHard(other)
}

func (p *ParseNode) IsEqualHard(other Node) bool {
	o, ok := other.(*ParseNode)
	return ok && o == p
}
