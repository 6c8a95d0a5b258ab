package qvalue

import (
	"strconv"
	"strings"

	"github.com/qorerun/qcore/xsink"
)

// Tag is the Value discriminant of §3: Bool, Int64, Float64, or Node.
type Tag int

const (
	TagBool Tag = iota
	TagInt64
	TagFloat64
	TagNode
)

// Value is the tagged carrier of §3/§4.E: either an unboxed primitive
// (Bool/Int64/Float64) or an owning-or-borrowed handle to a heap Node.
//
// For tag==TagNode with a non-nil n and needsDeref==true, the Value
// uniquely accounts for one reference on n. Go's assignment operator
// copies this struct for free, but a bare `v2 := v1` does NOT bump n's
// refcount — it produces a second *struct* holding the same logical
// reference, which is exactly the "borrowed" (needs_deref=false) shape
// the eval contract wants for read-only paths. Call Copy() when you
// need a second Value that independently owns a bumped reference.
type Value struct {
	tag        Tag
	b          bool
	i          int64
	f          float64
	n          Node
	needsDeref bool
}

// NewBool, NewInt, NewFloat are allocation-free constructors for the
// unboxed tags — the embedding-API shapes of §6.
func NewBool(b bool) Value    { return Value{tag: TagBool, b: b} }
func NewInt(i int64) Value    { return Value{tag: TagInt64, i: i} }
func NewFloat(f float64) Value { return Value{tag: TagFloat64, f: f} }

// NewNode wraps an already-referenced Node. needsDeref must be true iff
// this Value is the reference's sole owner.
func NewNode(n Node, needsDeref bool) Value {
	return Value{tag: TagNode, n: n, needsDeref: needsDeref}
}

// Nothing returns the Value representing "no value" (a nil Node
// payload), the zero value of this runtime's value space.
func Nothing() Value { return Value{tag: TagNode} }

// Tag reports the discriminant.
func (v Value) Tag() Tag { return v.tag }

// IsNode reports whether the tag is TagNode (regardless of nil payload).
func (v Value) IsNode() bool { return v.tag == TagNode }

// IsNothing reports whether this Value carries no Node payload.
func (v Value) IsNothing() bool { return v.tag == TagNode && v.n == nil }

// NodeValue returns the held Node, or nil if the tag is not TagNode or
// the payload is nil.
func (v Value) NodeValue() Node {
	if v.tag != TagNode {
		return nil
	}
	return v.n
}

// NeedsDeref reports whether this Value uniquely owns its Node
// reference (irrelevant for non-Node tags).
func (v Value) NeedsDeref() bool { return v.tag == TagNode && v.needsDeref }

// Kind returns the effective Kind: the corresponding scalar Kind for
// Bool/Int64/Float64, the payload's Kind for a non-nil Node, or
// KindNothing for an empty Node payload.
func (v Value) Kind() Kind {
	switch v.tag {
	case TagBool:
		return KindBoolean
	case TagInt64:
		return KindInteger
	case TagFloat64:
		return KindFloat
	default:
		if v.n == nil {
			return KindNothing
		}
		return v.n.Kind()
	}
}

// Copy returns an independently owning Value: for the Node tag it bumps
// the refcount (realCopy for immutable scalars is "this, ref-bumped";
// for the Go Value wrapper that distinction is invisible — bumping the
// held Node's count is always correct here). Scalar tags return
// themselves unchanged (no refcount to bump).
func (v Value) Copy() Value {
	if v.tag == TagNode && v.n != nil {
		v.n.Ref()
		v.needsDeref = true
	}
	return v
}

// Deref releases the held Node reference, if any, with sink. No-op for
// non-Node tags or a borrowed (needsDeref==false) Node tag.
func (v Value) Deref(sink *xsink.Sink) {
	if v.tag == TagNode && v.n != nil && v.needsDeref {
		v.n.Deref(sink)
	}
}

// Assign discards no state itself (Go has no in-place destructors) but
// returns the value being displaced so the caller can Deref it with the
// sink appropriate to the call site — the caller, not Assign, knows
// whether that destructor could throw.
func (v *Value) Assign(x Value) Value {
	old := *v
	*v = x
	return old
}

// Sanitize unpacks a Value tagged Node whose payload is in fact a
// primitive-valued node (*Integer, *Float, *Boolean) into the
// corresponding primitive tag, dropping the Node reference. Idempotent:
// calling it on an already-scalar-tagged or non-primitive-node Value is
// a no-op.
func (v *Value) Sanitize() {
	if v.tag != TagNode || v.n == nil {
		return
	}
	switch n := v.n.(type) {
	case *Integer:
		i := n.V
		if v.needsDeref {
			n.Deref(nil)
		}
		*v = Value{tag: TagInt64, i: i}
	case *Float:
		f := n.V
		if v.needsDeref {
			n.Deref(nil)
		}
		*v = Value{tag: TagFloat64, f: f}
	case *Boolean:
		b := n.V
		if v.needsDeref {
			n.Deref(nil)
		}
		*v = Value{tag: TagBool, b: b}
	}
}

// GetAsBool, GetAsInt64, GetAsFloat, GetAsString implement the total,
// never-raising coercions of §4.E: every Value has a defined bool/int/
// float/string reading, recoverable inputs (e.g. an unparseable string)
// yield a zero value rather than an exception.
func (v Value) GetAsBool() bool {
	switch v.tag {
	case TagBool:
		return v.b
	case TagInt64:
		return v.i != 0
	case TagFloat64:
		return v.f != 0
	default:
		if v.n == nil {
			return false
		}
		switch n := v.n.(type) {
		case *Str:
			return len(n.V) > 0
		case *Integer:
			return n.V != 0
		case *Float:
			return n.V != 0
		case *Number:
			return !n.V.IsZero()
		case *Boolean:
			return n.V
		case *Binary:
			return len(n.V) > 0
		case *List:
			return len(n.elems) > 0
		case *Hash:
			return len(n.keys) > 0
		default:
			// Date, Object, CallReference, ParseNode: a non-nil
			// handle is truthy regardless of payload.
			return true
		}
	}
}

func (v Value) GetAsInt64() int64 {
	switch v.tag {
	case TagBool:
		if v.b {
			return 1
		}
		return 0
	case TagInt64:
		return v.i
	case TagFloat64:
		return int64(v.f)
	default:
		if v.n == nil {
			return 0
		}
		switch n := v.n.(type) {
		case *Str:
			return parseLeadingInt(n.V)
		case *Integer:
			return n.V
		case *Float:
			return int64(n.V)
		case *Number:
			return n.V.Int64()
		case *Boolean:
			if n.V {
				return 1
			}
			return 0
		case *Date:
			return n.epochSeconds()
		default:
			return 0
		}
	}
}

func (v Value) GetAsFloat() float64 {
	switch v.tag {
	case TagBool:
		if v.b {
			return 1
		}
		return 0
	case TagInt64:
		return float64(v.i)
	case TagFloat64:
		return v.f
	default:
		if v.n == nil {
			return 0
		}
		switch n := v.n.(type) {
		case *Str:
			return parseLeadingFloat(n.V)
		case *Integer:
			return float64(n.V)
		case *Float:
			return n.V
		case *Number:
			return n.V.Float64()
		case *Boolean:
			if n.V {
				return 1
			}
			return 0
		case *Date:
			return float64(n.epochSeconds())
		default:
			return 0
		}
	}
}

func (v Value) GetAsString() string {
	switch v.tag {
	case TagBool:
		if v.b {
			return "true"
		}
		return "false"
	case TagInt64:
		return strconv.FormatInt(v.i, 10)
	case TagFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		if v.n == nil {
			return ""
		}
		switch n := v.n.(type) {
		case *Str:
			return n.V
		case *Integer:
			return strconv.FormatInt(n.V, 10)
		case *Float:
			return strconv.FormatFloat(n.V, 'g', -1, 64)
		case *Number:
			return n.V.String()
		case *Boolean:
			if n.V {
				return "true"
			}
			return "false"
		case *Date:
			return n.String()
		default:
			return ""
		}
	}
}

// GetAsNumber coerces to a Decimal, used by the promotion ladder when
// either operand is already a Number.
func (v Value) GetAsNumber() Decimal {
	switch v.tag {
	case TagBool:
		return NewDecimalFromInt64(v.GetAsInt64())
	case TagInt64:
		return NewDecimalFromInt64(v.i)
	case TagFloat64:
		return NewDecimalFromFloat64(v.f)
	default:
		if v.n == nil {
			return NewDecimalFromInt64(0)
		}
		if num, ok := v.n.(*Number); ok {
			return num.V
		}
		return NewDecimalFromString(v.GetAsString())
	}
}

// Eval implements §4.E's eager evaluation contract: a Value whose Node
// implements Evaluable (CallReference, ParseNode) is replaced by the
// result of calling its Eval method; every other Value (scalar tags,
// or a Node with NeedsEval()==false) evaluates to an independently
// owned copy of itself.
func (v Value) Eval(sink *xsink.Sink) Value {
	if v.tag == TagNode && v.n != nil {
		if ev, ok := v.n.(Evaluable); ok && v.n.NeedsEval() {
			return ev.Eval(sink)
		}
	}
	return v.Copy()
}

// EvalOptionalDeref is the optional-deref evaluation contract: it
// behaves like Eval, but signals via needsDeref whether the returned
// Value actually owns a fresh reference. Call sites that only read the
// result (never store or deref it) can use this to skip the Copy/Deref
// round trip Eval always pays for non-evaluable nodes.
func (v Value) EvalOptionalDeref(sink *xsink.Sink) (result Value, needsDeref bool) {
	if v.tag == TagNode && v.n != nil {
		if ev, ok := v.n.(Evaluable); ok && v.n.NeedsEval() {
			r := ev.Eval(sink)
			return r, true
		}
	}
	return v, false
}

func parseLeadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	sawDigitOrDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			sawDigitOrDot = true
			end++
			continue
		}
		if c == '.' {
			end++
			continue
		}
		if (c == 'e' || c == 'E') && sawDigitOrDot {
			end++
			if end < len(s) && (s[end] == '+' || s[end] == '-') {
				end++
			}
			continue
		}
		break
	}
	if !sawDigitOrDot {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}
