package qops

import (
	"time"

	"github.com/qorerun/qcore/qruntime"
	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

// AddOp is the operator symbol for "+", registered against the dispatch
// order §4.H spells out as the worked example: List, then String, then
// Date, then Number, then Float, then Int64, with Hash/Object/Binary
// handled alongside as peers of the container rules.
const AddOp = "+"

// Add implements the full priority chain directly, rather than relying
// only on per-Kind registry entries, because several of its rules (List
// absorbs anything, String absorbs anything, Hash/Object merge into
// each other) are not expressible as a single (Kind, Kind) lookup — the
// right-hand Kind varies freely. Per-exact-Kind entries are still
// registered in init() for operands neither rule reaches (e.g. two
// Booleans), so Dispatch("+", ...) and Add produce identical results;
// callers should prefer Add directly when they know they want "+".
func Add(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
	switch {
	case a.Kind() == qvalue.KindList || b.Kind() == qvalue.KindList:
		return addList(a, b)
	case a.Kind() == qvalue.KindString || b.Kind() == qvalue.KindString:
		return addString(a, b, sink)
	case a.Kind() == qvalue.KindDate || b.Kind() == qvalue.KindDate:
		return addDate(a, b)
	case a.Kind() == qvalue.KindNumber || b.Kind() == qvalue.KindNumber:
		return qvalue.NewNode(qvalue.NewNumber(a.GetAsNumber().Add(b.GetAsNumber())), true)
	case isHashOrObject(a) && isHashOrObject(b):
		return addHashObject(a, b)
	case a.Kind() == qvalue.KindBinary && b.Kind() == qvalue.KindBinary:
		return addBinary(a, b)
	case a.Kind() == qvalue.KindFloat || b.Kind() == qvalue.KindFloat:
		return qvalue.NewFloat(a.GetAsFloat() + b.GetAsFloat())
	default:
		return qvalue.NewInt(a.GetAsInt64() + b.GetAsInt64())
	}
}

func isHashOrObject(v qvalue.Value) bool {
	return v.Kind() == qvalue.KindHash || v.Kind() == qvalue.KindObject
}

// addList appends R to a copy of L's elements: a single element if R is
// not itself a List, or R's elements if it is — result length is
// L.size + (R is List ? R.size : 1), exactly as §4.H specifies.
func addList(a, b qvalue.Value) qvalue.Value {
	result := qvalue.NewList()
	if al, ok := a.NodeValue().(*qvalue.List); ok {
		for _, e := range al.Elements() {
			result.Append(e.Copy())
		}
	} else if a.Kind() != qvalue.KindNothing {
		result.Append(a.Copy())
	}
	if bl, ok := b.NodeValue().(*qvalue.List); ok {
		for _, e := range bl.Elements() {
			result.Append(e.Copy())
		}
	} else {
		result.Append(b.Copy())
	}
	return qvalue.NewNode(result, true)
}

// addString concatenates, coercing the non-string side via GetAsString,
// and tags the result with the left operand's encoding if it is a
// String, else the right operand's encoding (§4.H). If the right side
// is itself a String in a different, incompatible encoding, converting
// it into the result's encoding raises ENCODING-CONVERSION-ERROR and
// returns Nothing.
func addString(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
	resultEnc := stringEncoding(a)
	if a.Kind() != qvalue.KindString {
		resultEnc = stringEncoding(b)
	}
	right := b.GetAsString()
	if b.Kind() == qvalue.KindString {
		converted, ok := qruntime.Convert(right, stringEncoding(b), resultEnc)
		if !ok {
			sink.RaiseSystem("ENCODING-CONVERSION-ERROR",
				"cannot convert string from %s to %s for operator \"+\"", stringEncoding(b), resultEnc)
			return qvalue.Nothing()
		}
		right = converted
	}
	return qvalue.NewNode(qvalue.NewStrWithEncoding(a.GetAsString()+right, resultEnc), true)
}

// stringEncoding returns v's tagged encoding if it is a String, else the
// process-wide default (matching how a non-string operand's GetAsString
// coercion has no encoding of its own to contribute).
func stringEncoding(v qvalue.Value) *qruntime.Encoding {
	if s, ok := v.NodeValue().(*qvalue.Str); ok {
		return s.Encoding()
	}
	return qruntime.DefaultEncoding()
}

// addDate reduces both operands to Date, then adds per the relative/
// absolute rule: absolute+relative -> absolute, relative+relative ->
// relative. absolute+absolute is degenerate (two fixed instants don't
// sum meaningfully); the result keeps the left's instant and ignores
// the right.
func addDate(a, b qvalue.Value) qvalue.Value {
	ad := asDate(a)
	bd := asDate(b)
	switch {
	case ad.Relative && bd.Relative:
		return qvalue.NewNode(qvalue.NewRelativeDate(ad.Dur+bd.Dur), true)
	case ad.Relative && !bd.Relative:
		return qvalue.NewNode(qvalue.NewAbsoluteDate(bd.T.Add(ad.Dur)), true)
	case !ad.Relative && bd.Relative:
		return qvalue.NewNode(qvalue.NewAbsoluteDate(ad.T.Add(bd.Dur)), true)
	default:
		return qvalue.NewNode(qvalue.NewAbsoluteDate(ad.T), true)
	}
}

func asDate(v qvalue.Value) *qvalue.Date {
	if d, ok := v.NodeValue().(*qvalue.Date); ok {
		return d
	}
	return qvalue.NewRelativeDate(time.Duration(v.GetAsInt64()) * time.Second)
}

// addHashObject merges right into a copy of left's members, right
// winning on key collisions, covering all three combinations §4.H
// names: Hash+Hash, Hash+Object, Object+Hash.
func addHashObject(a, b qvalue.Value) qvalue.Value {
	result := qvalue.NewHash()
	copyMembersInto(result, a)
	copyMembersInto(result, b)
	return qvalue.NewNode(result, true)
}

func copyMembersInto(dst *qvalue.Hash, v qvalue.Value) {
	switch n := v.NodeValue().(type) {
	case *qvalue.Hash:
		for _, k := range n.Keys() {
			val, _ := n.Get(k)
			dst.Set(k, val.Copy())
		}
	case *qvalue.Object:
		members := n.Members()
		for _, k := range members.Keys() {
			val, _ := members.Get(k)
			dst.Set(k, val.Copy())
		}
	}
}

func addBinary(a, b qvalue.Value) qvalue.Value {
	ab, _ := a.NodeValue().(*qvalue.Binary)
	bb, _ := b.NodeValue().(*qvalue.Binary)
	var av, bv []byte
	if ab != nil {
		av = ab.V
	}
	if bb != nil {
		bv = bb.V
	}
	out := make([]byte, 0, len(av)+len(bv))
	out = append(out, av...)
	out = append(out, bv...)
	return qvalue.NewNode(qvalue.NewBinary(out), true)
}

func init() {
	Register(AddOp, qvalue.KindBoolean, qvalue.KindBoolean, func(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
		return qvalue.NewInt(a.GetAsInt64() + b.GetAsInt64())
	})
	Register(AddOp, qvalue.KindInteger, qvalue.KindInteger, func(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
		return qvalue.NewInt(a.GetAsInt64() + b.GetAsInt64())
	})
	Register(AddOp, qvalue.KindFloat, qvalue.KindFloat, func(a, b qvalue.Value, sink *xsink.Sink) qvalue.Value {
		return qvalue.NewFloat(a.GetAsFloat() + b.GetAsFloat())
	})
}
