package qvalue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

func TestScalarCoercions(t *testing.T) {
	require.Equal(t, int64(1), qvalue.NewBool(true).GetAsInt64())
	require.Equal(t, "42", qvalue.NewInt(42).GetAsString())
	require.Equal(t, 3.5, qvalue.NewFloat(3.5).GetAsFloat())
	require.True(t, qvalue.NewInt(5).GetAsBool())
	require.False(t, qvalue.NewInt(0).GetAsBool())
}

func TestStringToIntCoercionIgnoresTrailingGarbage(t *testing.T) {
	v := qvalue.NewNode(qvalue.NewStr("42abc"), true)
	require.Equal(t, int64(42), v.GetAsInt64())
	v2 := qvalue.NewNode(qvalue.NewStr("notanumber"), true)
	require.Equal(t, int64(0), v2.GetAsInt64())
}

func TestNothingKindAndCoercions(t *testing.T) {
	v := qvalue.Nothing()
	require.Equal(t, qvalue.KindNothing, v.Kind())
	require.False(t, v.GetAsBool())
	require.Equal(t, int64(0), v.GetAsInt64())
	require.Equal(t, "", v.GetAsString())
}

func TestRefCountingStringNode(t *testing.T) {
	s := qvalue.NewStr("hi")
	require.Equal(t, int64(1), s.RefCount())
	s.Ref()
	require.Equal(t, int64(2), s.RefCount())
	sink := xsink.New()
	require.False(t, s.Deref(sink))
	require.True(t, s.Deref(sink))
}

func TestListAppendIsCopyOnWriteWhenShared(t *testing.T) {
	l := qvalue.NewList()
	l.Append(qvalue.NewInt(1))
	l.Ref() // simulate a second Value sharing this node
	require.Equal(t, int64(2), l.RefCount())

	unique := l.EnsureUnique()
	require.NotSame(t, l, unique)
	unique.Append(qvalue.NewInt(2))

	require.Equal(t, 1, l.Len())
	require.Equal(t, 2, unique.Len())
}

func TestListEnsureUniqueNoOpWhenSoleOwner(t *testing.T) {
	l := qvalue.NewList()
	unique := l.EnsureUnique()
	require.Same(t, l, unique)
}

func TestHashPreservesInsertionOrder(t *testing.T) {
	h := qvalue.NewHash()
	h.Set("b", qvalue.NewInt(2))
	h.Set("a", qvalue.NewInt(1))
	h.Set("c", qvalue.NewInt(3))
	require.Equal(t, []string{"b", "a", "c"}, h.Keys())
}

func TestHashGetMissingKey(t *testing.T) {
	h := qvalue.NewHash()
	v, ok := h.Get("missing")
	require.False(t, ok)
	require.True(t, v.IsNothing())
}

func TestHashIteratorSeesPreMutationSnapshotAcrossConcurrentSet(t *testing.T) {
	h := qvalue.NewHash()
	h.Set("a", qvalue.NewInt(1))
	h.Set("b", qvalue.NewInt(2))

	it := h.Iterator()
	h.Set("c", qvalue.NewInt(3))
	h.Delete("a")

	var seen []string
	for it.Next() {
		seen = append(seen, it.Key())
	}
	it.Close()
	require.Equal(t, []string{"a", "b"}, seen)

	// Once the iterator closes, a fresh read reflects the mutations.
	require.Equal(t, []string{"b", "c"}, h.Keys())
}

func TestHashSetDuringIterationDoesNotPanicOnConcurrentMapWrite(t *testing.T) {
	h := qvalue.NewHash()
	h.Set("a", qvalue.NewInt(1))

	it1 := h.Iterator()
	it2 := h.Iterator()
	h.Set("b", qvalue.NewInt(2))
	it1.Close()
	h.Set("c", qvalue.NewInt(3))
	it2.Close()

	require.Equal(t, []string{"a", "b", "c"}, h.Keys())
}

func TestObjectIdentityEquality(t *testing.T) {
	o1 := qvalue.NewObject("Foo")
	o2 := qvalue.NewObject("Foo")
	require.True(t, o1.IsEqualHard(o1))
	require.False(t, o1.IsEqualHard(o2))
}

func TestObjectDestructorRunsOnceAtZeroRefcount(t *testing.T) {
	o := qvalue.NewObject("Foo")
	ran := 0
	o.SetDestructor(func(self *qvalue.Object, sink *xsink.Sink) {
		ran++
	})
	o.Ref()
	sink := xsink.New()
	require.False(t, o.Deref(sink))
	require.Equal(t, 0, ran)
	require.True(t, o.Deref(sink))
	require.Equal(t, 1, ran)
}

func TestObjectDestructorCanRaiseOnSink(t *testing.T) {
	o := qvalue.NewObject("Foo")
	o.SetDestructor(func(self *qvalue.Object, sink *xsink.Sink) {
		sink.RaiseSystem("DESTRUCTOR-ERROR", "boom")
	})
	sink := xsink.New()
	o.Deref(sink)
	require.True(t, sink.IsException())
}

func TestCallReferenceEvalInvokesTarget(t *testing.T) {
	cr := qvalue.NewCallReference("doubler", func(args []qvalue.Value, sink *xsink.Sink) qvalue.Value {
		if len(args) == 0 {
			return qvalue.NewInt(0)
		}
		return qvalue.NewInt(args[0].GetAsInt64() * 2)
	})
	sink := xsink.New()
	result := cr.Invoke([]qvalue.Value{qvalue.NewInt(21)}, sink)
	require.Equal(t, int64(42), result.GetAsInt64())
}

func TestParseNodeEvalNeedsEval(t *testing.T) {
	pn := qvalue.NewParseNode(func(sink *xsink.Sink) qvalue.Value {
		return qvalue.NewInt(7)
	})
	require.True(t, pn.NeedsEval())
	require.False(t, pn.IsValue())
	v := qvalue.NewNode(pn, true)
	sink := xsink.New()
	result := v.Eval(sink)
	require.Equal(t, int64(7), result.GetAsInt64())
}

func TestValueEvalOfNonEvaluableReturnsIndependentCopy(t *testing.T) {
	s := qvalue.NewStr("hi")
	v := qvalue.NewNode(s, true)
	sink := xsink.New()
	result := v.Eval(sink)
	require.Equal(t, int64(2), s.RefCount())
	result.Deref(sink)
	v.Deref(sink)
}

func TestEqualitySoftPromotesAcrossScalarLattice(t *testing.T) {
	require.True(t, qvalue.NewInt(1).IsEqualSoft(qvalue.NewBool(true)))
	require.True(t, qvalue.NewInt(2).IsEqualSoft(qvalue.NewFloat(2.0)))
	require.False(t, qvalue.NewInt(1).IsEqualHard(qvalue.NewBool(true)))
}

func TestEqualityHardRequiresSameKind(t *testing.T) {
	a := qvalue.NewNode(qvalue.NewStr("x"), true)
	b := qvalue.NewNode(qvalue.NewStr("x"), true)
	require.True(t, a.IsEqualHard(b))
	defer a.Deref(xsink.New())
	defer b.Deref(xsink.New())
}

func TestNumberArithmeticIsExact(t *testing.T) {
	a := qvalue.NewDecimalFromString("0.1")
	b := qvalue.NewDecimalFromString("0.2")
	sum := a.Add(b)
	require.True(t, sum.Equal(qvalue.NewDecimalFromString("0.3")))
}

func TestNumberDivisionByZeroReturnsNotOK(t *testing.T) {
	a := qvalue.NewDecimalFromInt64(1)
	zero := qvalue.NewDecimalFromInt64(0)
	_, ok := a.Div(zero)
	require.False(t, ok)
}

func TestSanitizeUnpacksBoxedPrimitive(t *testing.T) {
	v := qvalue.NewNode(qvalue.NewInteger(9), true)
	v.Sanitize()
	require.Equal(t, qvalue.TagInt64, v.Tag())
	require.Equal(t, int64(9), v.GetAsInt64())
}
