package qvalue

// valuesEqualHard and valuesEqualSoft implement Value-level equality
// (§4.E): hard equality requires identical Kind and, for boxed Nodes,
// delegates to Node.IsEqualHard; soft equality promotes scalar kinds
// through the Kind lattice before comparing, and otherwise also
// delegates to the Node's own soft comparison.

func valuesEqualHard(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if a.tag != TagNode || b.tag != TagNode {
		return primitiveEqual(a, b)
	}
	if a.n == nil || b.n == nil {
		return a.n == nil && b.n == nil
	}
	return a.n.IsEqualHard(b.n)
}

func valuesEqualSoft(a, b Value) bool {
	ka, kb := a.Kind(), b.Kind()
	if ka == KindNothing || kb == KindNothing {
		return ka == kb
	}
	if isComplexKind(ka) || isComplexKind(kb) {
		if ka != kb {
			return false
		}
		if a.tag == TagNode && b.tag == TagNode && a.n != nil && b.n != nil {
			return a.n.IsEqualSoft(b.n)
		}
		return valuesEqualHard(a, b)
	}
	// Both scalar-ish (Boolean/Integer/Float/Number/String): promote
	// through the lattice and compare the promoted representation.
	promoted, ok := Promote(ka, kb)
	if !ok {
		return false
	}
	switch promoted {
	case KindString:
		return a.GetAsString() == b.GetAsString()
	case KindNumber:
		return a.GetAsNumber().Equal(b.GetAsNumber())
	case KindFloat:
		return a.GetAsFloat() == b.GetAsFloat()
	case KindInteger:
		return a.GetAsInt64() == b.GetAsInt64()
	default: // KindBoolean
		return a.GetAsBool() == b.GetAsBool()
	}
}

func isComplexKind(k Kind) bool {
	switch k {
	case KindList, KindHash, KindObject, KindBinary, KindCallReference, KindParseNode, KindDate:
		return true
	default:
		return false
	}
}

func primitiveEqual(a, b Value) bool {
	switch a.tag {
	case TagBool:
		return b.tag == TagBool && a.b == b.b
	case TagInt64:
		return b.tag == TagInt64 && a.i == b.i
	case TagFloat64:
		return b.tag == TagFloat64 && a.f == b.f
	default:
		return false
	}
}

// IsEqualSoft and IsEqualHard expose the Value-level comparisons used by
// the `==`/`===` operators (qops) and by tests.
func (v Value) IsEqualSoft(other Value) bool { return valuesEqualSoft(v, other) }
func (v Value) IsEqualHard(other Value) bool { return valuesEqualHard(v, other) }
