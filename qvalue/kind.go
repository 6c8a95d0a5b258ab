// Package qvalue implements the two tightly coupled halves of THE CORE
// value model (spec §3, components E and F): the tagged-union Value
// carrier and the reference-counted heap Node it can hold.
//
// Value and Node are deliberately kept in one package. The original
// runtime forward-declares QoreValue and AbstractQoreNode across a pair
// of headers that include each other; Go has no equivalent of a forward
// declaration across packages; a Value needs Node's Deref/RealCopy and
// a Node's Eval needs to build a Value, so the two live together here
// rather than pretending they are independently importable.
package qvalue

// Kind identifies a Node's concrete variant. It is the runtime-variant
// tag operator dispatch (qops) keys promotion decisions on.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindFloat
	KindNumber
	KindBoolean
	KindDate
	KindBinary
	KindList
	KindHash
	KindObject
	KindCallReference
	KindParseNode

	// KindNothing is not a Node variant; it is the effective kind of a
	// Value whose tag is TagNode with a nil payload ("no value"),
	// used by equality and coercion so Nothing compares only equal to
	// itself instead of aliasing onto some other kind's zero value.
	KindNothing
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "bool"
	case KindDate:
		return "date"
	case KindBinary:
		return "binary"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindObject:
		return "object"
	case KindCallReference:
		return "callref"
	case KindParseNode:
		return "parsenode"
	case KindNothing:
		return "NOTHING"
	default:
		return "<unknown>"
	}
}

// rank is the promotion lattice of §4.H: Bool < Int64 < Float < Number < String.
// Only scalar-ish kinds participate; containers/objects/dates are
// handled by dedicated rules in qops rather than the linear lattice.
func (k Kind) rank() int {
	switch k {
	case KindBoolean:
		return 0
	case KindInteger:
		return 1
	case KindFloat:
		return 2
	case KindNumber:
		return 3
	case KindString:
		return 4
	default:
		return -1
	}
}

// Promote returns the higher of two scalar kinds per the lattice, or
// ok=false if either kind does not participate in the linear lattice.
func Promote(a, b Kind) (Kind, bool) {
	ra, rb := a.rank(), b.rank()
	if ra < 0 || rb < 0 {
		return 0, false
	}
	if ra >= rb {
		return a, true
	}
	return b, true
}
