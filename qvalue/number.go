package qvalue

import (
	"math/big"

	"github.com/qorerun/qcore/xsink"
)

// Decimal is the arbitrary-precision rational backing the Number
// variant. No decimal/bignum library appears anywhere in the retrieved
// example pack, so this wraps the standard library's math/big.Rat
// rather than reaching for an unverified third-party dependency — see
// DESIGN.md for the justification entry.
type Decimal struct {
	r *big.Rat
}

func NewDecimalFromInt64(v int64) Decimal {
	return Decimal{r: new(big.Rat).SetInt64(v)}
}

func NewDecimalFromFloat64(v float64) Decimal {
	r := new(big.Rat)
	r.SetFloat64(v)
	if r == nil {
		return Decimal{r: new(big.Rat)}
	}
	return Decimal{r: r}
}

func NewDecimalFromString(s string) Decimal {
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return Decimal{r: new(big.Rat)}
	}
	return Decimal{r: r}
}

func (d Decimal) IsZero() bool {
	return d.r == nil || d.r.Sign() == 0
}

func (d Decimal) Int64() int64 {
	if d.r == nil {
		return 0
	}
	f, _ := new(big.Float).SetRat(d.r).Int64()
	return f
}

func (d Decimal) Float64() float64 {
	if d.r == nil {
		return 0
	}
	f, _ := d.r.Float64()
	return f
}

func (d Decimal) String() string {
	if d.r == nil {
		return "0"
	}
	if d.r.IsInt() {
		return d.r.Num().String()
	}
	f := new(big.Float).SetPrec(128).SetRat(d.r)
	return f.Text('g', 30)
}

func (d Decimal) Equal(other Decimal) bool {
	if d.r == nil || other.r == nil {
		return d.IsZero() && other.IsZero()
	}
	return d.r.Cmp(other.r) == 0
}

func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{r: new(big.Rat).Add(d.ratOrZero(), other.ratOrZero())}
}

func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{r: new(big.Rat).Sub(d.ratOrZero(), other.ratOrZero())}
}

func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{r: new(big.Rat).Mul(d.ratOrZero(), other.ratOrZero())}
}

// Div divides, returning ok=false on division by zero rather than
// panicking — matching the total-coercion ethos of this value model.
func (d Decimal) Div(other Decimal) (Decimal, bool) {
	if other.IsZero() {
		return Decimal{}, false
	}
	return Decimal{r: new(big.Rat).Quo(d.ratOrZero(), other.ratOrZero())}, true
}

func (d Decimal) ratOrZero() *big.Rat {
	if d.r == nil {
		return new(big.Rat)
	}
	return d.r
}

// Number is the heap Node wrapping Decimal, giving arbitrary-precision
// arithmetic a place in the Kind lattice above Float (§4.H promotion
// order).
type Number struct {
	refCounted
	V Decimal
}

func NewNumber(v Decimal) *Number {
	return &Number{refCounted: newRefCounted(), V: v}
}

func (n *Number) Kind() Kind      { return KindNumber }
func (n *Number) IsValue() bool   { return true }
func (n *Number) NeedsEval() bool { return false }
func (n *Number) RealCopy() Node  { return NewNumber(n.V) }

func (n *Number) Deref(sink *xsink.Sink) bool {
	return n.deref(sink, nil)
}

func (n *Number) IsEqualSoft(other Node) bool {
	switch o := other.(type) {
	case *Number:
		return o.V.Equal(n.V)
	case *Integer:
		return n.V.Equal(NewDecimalFromInt64(o.V))
	case *Float:
		return n.V.Equal(NewDecimalFromFloat64(o.V))
	default:
		return false
	}
}

func (n *Number) IsEqualHard(other Node) bool {
	o, ok := other.(*Number)
	return ok && o.V.Equal(n.V)
}
