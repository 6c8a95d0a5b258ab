package qvalue

import (
	"github.com/qorerun/qcore/qruntime"
	"github.com/qorerun/qcore/xsink"
)

// Str is the heap String variant: bytes plus an encoding tag (§3). V
// holds the Go-native UTF-8 representation regardless of Enc — Enc
// records what encoding the string is *tagged* as for the purposes of
// Encoding()/the `+` operator's encoding rule and explicit
// conversions, not a different in-memory byte layout. Immutable
// payload: every mutating string operator (e.g. `+=`) produces a new
// Str rather than editing V in place, since V may be aliased by other
// Values sharing this Node.
type Str struct {
	refCounted
	V   string
	Enc *qruntime.Encoding
}

// NewStr returns a fresh, singly-referenced Str node tagged with the
// process-wide default encoding.
func NewStr(v string) *Str {
	return NewStrWithEncoding(v, qruntime.DefaultEncoding())
}

// NewStrWithEncoding returns a fresh Str explicitly tagged with enc.
func NewStrWithEncoding(v string, enc *qruntime.Encoding) *Str {
	if enc == nil {
		enc = qruntime.DefaultEncoding()
	}
	return &Str{refCounted: newRefCounted(), V: v, Enc: enc}
}

// Encoding returns the tag this Str carries.
func (s *Str) Encoding() *qruntime.Encoding { return s.Enc }

func (s *Str) Kind() Kind      { return KindString }
func (s *Str) IsValue() bool   { return true }
func (s *Str) NeedsEval() bool { return false }
func (s *Str) RealCopy() Node  { return NewStrWithEncoding(s.V, s.Enc) }

func (s *Str) Deref(sink *xsink.Sink) bool {
	return s.deref(sink, nil)
}

// IsEqualSoft compares content only; two Strs tagged with different
// encodings but equal content are soft-equal, matching the rest of the
// soft-equality lattice's "compare values, not representations" rule.
func (s *Str) IsEqualSoft(other Node) bool {
	o, ok := other.(*Str)
	return ok && o.V == s.V
}

// IsEqualHard additionally requires the same encoding tag.
func (s *Str) IsEqualHard(other Node) bool {
	o, ok := other.(*Str)
	return ok && o.V == s.V && o.Enc == s.Enc
}
