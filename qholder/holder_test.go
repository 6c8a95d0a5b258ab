package qholder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/qholder"
	"github.com/qorerun/qcore/qvalue"
	"github.com/qorerun/qcore/xsink"
)

func TestValueHolderReleasesOnScopeExit(t *testing.T) {
	sink := xsink.New()
	s := qvalue.NewStr("hi")
	v := qvalue.NewNode(s, true)

	func() {
		h := qholder.New(v, sink)
		defer h.Release()
		require.Equal(t, "hi", h.Get().GetAsString())
	}()

	require.Equal(t, int64(0), s.RefCount()) // not directly observable post-destroy, but no panic
}

func TestValueHolderTakeDisarmsRelease(t *testing.T) {
	sink := xsink.New()
	s := qvalue.NewStr("hi")
	v := qvalue.NewNode(s, true)

	h := qholder.New(v, sink)
	taken := h.Take()
	h.Release() // no-op, already taken
	require.Equal(t, int64(1), s.RefCount())
	taken.Deref(sink)
}

func TestValueHolderAssignReleasesPrevious(t *testing.T) {
	sink := xsink.New()
	s1 := qvalue.NewStr("first")
	s2 := qvalue.NewStr("second")
	h := qholder.New(qvalue.NewNode(s1, true), sink)
	defer h.Release()

	h.Assign(qvalue.NewNode(s2, true))
	require.Equal(t, "second", h.Get().GetAsString())
}

func TestTempSinkAssimilatesIntoParent(t *testing.T) {
	parent := xsink.New()
	ts := qholder.NewTempSink(parent)
	ts.Sink().RaiseSystem("SOME-ERROR", "boom")
	ts.Release()
	require.True(t, parent.IsException())
}

func TestTempSinkWithNilParentMarksHandled(t *testing.T) {
	ts := qholder.NewTempSink(nil)
	ts.Sink().RaiseSystem("SOME-ERROR", "boom")
	ts.Release() // must not panic
}
