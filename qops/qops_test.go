package qops_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/qops"
	"github.com/qorerun/qcore/qruntime"
	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

func TestAddIntegers(t *testing.T) {
	sink := xsink.New()
	r := qops.Add(qvalue.NewInt(2), qvalue.NewInt(3), sink)
	require.Equal(t, int64(5), r.GetAsInt64())
}

func TestAddFloatPromotesInt(t *testing.T) {
	sink := xsink.New()
	r := qops.Add(qvalue.NewFloat(1.5), qvalue.NewInt(2), sink)
	require.Equal(t, 3.5, r.GetAsFloat())
}

func TestAddStringConcatenatesCoercedRight(t *testing.T) {
	sink := xsink.New()
	left := qvalue.NewNode(qvalue.NewStr("n="), true)
	r := qops.Add(left, qvalue.NewInt(7), sink)
	require.Equal(t, "n=7", r.GetAsString())
}

func TestAddStringTakesLeftOperandEncodingWhenLeftIsString(t *testing.T) {
	sink := xsink.New()
	left := qvalue.NewNode(qvalue.NewStrWithEncoding("n=", qruntime.RegisterEncoding("ASCII")), true)
	right := qvalue.NewNode(qvalue.NewStr("7"), true)
	r := qops.Add(left, right, sink)
	rs := r.NodeValue().(*qvalue.Str)
	require.Equal(t, "n=7", rs.V)
	require.Equal(t, "ASCII", rs.Encoding().Name)
	require.False(t, sink.IsException())
}

func TestAddStringTakesRightOperandEncodingWhenLeftIsNotString(t *testing.T) {
	sink := xsink.New()
	right := qvalue.NewNode(qvalue.NewStrWithEncoding("x", qruntime.RegisterEncoding("ASCII")), true)
	r := qops.Add(qvalue.NewInt(7), right, sink)
	rs := r.NodeValue().(*qvalue.Str)
	require.Equal(t, "7x", rs.V)
	require.Equal(t, "ASCII", rs.Encoding().Name)
}

func TestAddStringRaisesEncodingConversionErrorOnIncompatibleEncoding(t *testing.T) {
	sink := xsink.New()
	left := qvalue.NewNode(qvalue.NewStrWithEncoding("caf", qruntime.RegisterEncoding("ASCII")), true)
	right := qvalue.NewNode(qvalue.NewStr("é"), true) // not representable in ASCII
	r := qops.Add(left, right, sink)
	require.True(t, r.IsNothing())
	require.True(t, sink.IsException())
}

func TestAddListAppendsSingleNonListElement(t *testing.T) {
	sink := xsink.New()
	l := qvalue.NewList()
	l.Append(qvalue.NewInt(1))
	left := qvalue.NewNode(l, true)
	r := qops.Add(left, qvalue.NewInt(2), sink)
	rl := r.NodeValue().(*qvalue.List)
	require.Equal(t, 2, rl.Len())
	require.Equal(t, int64(2), rl.Get(1).GetAsInt64())
}

func TestAddListConcatenatesTwoLists(t *testing.T) {
	sink := xsink.New()
	l1 := qvalue.NewList()
	l1.Append(qvalue.NewInt(1))
	l2 := qvalue.NewList()
	l2.Append(qvalue.NewInt(2))
	l2.Append(qvalue.NewInt(3))
	r := qops.Add(qvalue.NewNode(l1, true), qvalue.NewNode(l2, true), sink)
	rl := r.NodeValue().(*qvalue.List)
	require.Equal(t, 3, rl.Len())
}

func TestAddHashMergeRightWins(t *testing.T) {
	sink := xsink.New()
	h1 := qvalue.NewHash()
	h1.Set("a", qvalue.NewInt(1))
	h1.Set("b", qvalue.NewInt(2))
	h2 := qvalue.NewHash()
	h2.Set("b", qvalue.NewInt(99))
	h2.Set("c", qvalue.NewInt(3))
	r := qops.Add(qvalue.NewNode(h1, true), qvalue.NewNode(h2, true), sink)
	rh := r.NodeValue().(*qvalue.Hash)
	bv, _ := rh.Get("b")
	require.Equal(t, int64(99), bv.GetAsInt64())
	require.Equal(t, 3, rh.Len())
}

func TestAddDateRelativeAndAbsolute(t *testing.T) {
	sink := xsink.New()
	abs := qvalue.NewAbsoluteDate(time.Unix(1000, 0))
	rel := qvalue.NewRelativeDate(10 * time.Second)
	r := qops.Add(qvalue.NewNode(abs, true), qvalue.NewNode(rel, true), sink)
	rd := r.NodeValue().(*qvalue.Date)
	require.False(t, rd.Relative)
	require.Equal(t, int64(1010), rd.T.Unix())
}

func TestAddBinaryConcatenates(t *testing.T) {
	sink := xsink.New()
	b1 := qvalue.NewBinary([]byte("ab"))
	b2 := qvalue.NewBinary([]byte("cd"))
	r := qops.Add(qvalue.NewNode(b1, true), qvalue.NewNode(b2, true), sink)
	rb := r.NodeValue().(*qvalue.Binary)
	require.Equal(t, "abcd", string(rb.V))
}

func TestAddNumberExactArithmetic(t *testing.T) {
	sink := xsink.New()
	n1 := qvalue.NewNumber(qvalue.NewDecimalFromString("0.1"))
	n2 := qvalue.NewNumber(qvalue.NewDecimalFromString("0.2"))
	r := qops.Add(qvalue.NewNode(n1, true), qvalue.NewNode(n2, true), sink)
	rn := r.NodeValue().(*qvalue.Number)
	require.True(t, rn.V.Equal(qvalue.NewDecimalFromString("0.3")))
}

func TestEqualsSoftPromotesAcrossKinds(t *testing.T) {
	sink := xsink.New()
	r := qops.Equals(qvalue.NewInt(1), qvalue.NewBool(true), sink)
	require.True(t, r.GetAsBool())
}

func TestStrictEqualsRequiresSameKind(t *testing.T) {
	sink := xsink.New()
	r := qops.StrictEquals(qvalue.NewInt(1), qvalue.NewBool(true), sink)
	require.False(t, r.GetAsBool())
}

func TestDispatchRaisesOperatorErrorWhenUndefined(t *testing.T) {
	sink := xsink.New()
	r := qops.Dispatch("<=>", qvalue.NewInt(1), qvalue.NewInt(2), sink)
	require.True(t, r.IsNothing())
	require.True(t, sink.IsException())
}

func TestFoldConstantFoldsPureOperands(t *testing.T) {
	result, ok := qops.FoldConstant(qops.AddOp, qvalue.NewInt(2), qvalue.NewInt(3), qruntime.ParseOptions(0))
	require.True(t, ok)
	require.Equal(t, int64(5), result.GetAsInt64())
}

func TestFoldConstantRefusesCallReference(t *testing.T) {
	cr := qvalue.NewCallReference("f", func(args []qvalue.Value, sink *xsink.Sink) qvalue.Value {
		return qvalue.NewInt(1)
	})
	v := qvalue.NewNode(cr, true)
	_, ok := qops.FoldConstant(qops.AddOp, v, qvalue.NewInt(1), qruntime.ParseOptions(0))
	require.False(t, ok)
}

func TestFoldConstantDisabledUnderNoModules(t *testing.T) {
	_, ok := qops.FoldConstant(qops.AddOp, qvalue.NewInt(1), qvalue.NewInt(1), qruntime.OptNoModules)
	require.False(t, ok)
}
