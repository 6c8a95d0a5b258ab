package xsink_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/xsink"
)

func TestRaiseAndIsException(t *testing.T) {
	s := xsink.New()
	require.False(t, s.IsException())
	require.False(t, s.IsEvent())

	s.RaiseSystem("LOCK-ERROR", "tid %d tried to grab the write lock twice", 7)
	require.True(t, s.IsException())
	require.True(t, s.IsEvent())
	require.Len(t, s.Exceptions(), 1)
	require.Equal(t, "LOCK-ERROR", s.Exceptions()[0].ErrorTag)
}

func TestAddStackInfoBuildsBottomUp(t *testing.T) {
	s := xsink.New()
	s.RaiseSystem("DIVISION-BY-ZERO", "cannot divide by zero")
	s.AddStackInfo(xsink.FrameBuiltin, "", "div", "math.q", 10, 10)
	s.AddStackInfo(xsink.FrameUser, "MyClass", "compute", "main.q", 42, 45)

	frames := s.Exceptions()[0].Stack
	require.Len(t, frames, 2)
	require.Equal(t, "div", frames[0].Function)
	require.Equal(t, "compute", frames[1].Function)
	require.Equal(t, "MyClass", frames[1].Class)
}

func TestAssimilateMovesExceptionsInOrder(t *testing.T) {
	parent := xsink.New()
	child := xsink.New()

	child.RaiseSystem("A", "first")
	child.RaiseSystem("B", "second")

	parent.Assimilate(child)

	require.False(t, child.IsException())
	require.Len(t, parent.Exceptions(), 2)
	require.Equal(t, "A", parent.Exceptions()[0].ErrorTag)
	require.Equal(t, "B", parent.Exceptions()[1].ErrorTag)
}

func TestAssimilateThenCloseDoesNotInvokeDefaultHandlerTwice(t *testing.T) {
	var invocations int
	xsink.SetDefaultHandler(func(s *xsink.Sink) {
		invocations++
	})
	defer xsink.SetDefaultHandler(nil)

	parent := xsink.New()
	child := xsink.New()
	child.RaiseSystem("X", "boom")

	parent.Assimilate(child)
	child.Close() // already handled via assimilate; must not fire

	require.Equal(t, 0, invocations)

	parent.Close()
	require.Equal(t, 1, invocations)
}

func TestChainedExceptionReportsWrapperFirstThenCause(t *testing.T) {
	var seen []string
	xsink.SetDefaultHandler(func(s *xsink.Sink) {
		for _, e := range s.Exceptions() {
			for cur := e; cur != nil; cur = cur.Next {
				seen = append(seen, cur.ErrorTag)
			}
		}
	})
	defer xsink.SetDefaultHandler(nil)

	s := xsink.New()
	// X is caught elsewhere (never lives in this sink's own list) and
	// re-raised as Y's chained cause, mirroring "catch X, raise Y(cause=X)".
	x := &xsink.Exception{Kind: xsink.KindUser, ErrorTag: "X", Description: "original failure", Location: xsink.Location{File: "a.q", StartLine: 1}}
	y := s.Raise(xsink.KindUser, "Y", "wrapped failure", xsink.Location{File: "b.q", StartLine: 2})
	y.Next = x
	s.AddStackInfo(xsink.FrameRethrow, "", "retry", "b.q", 2, 2)

	s.Close()
	require.Equal(t, []string{"Y", "X"}, seen)
}

func TestClearDiscardsWithoutHandling(t *testing.T) {
	var invocations int
	xsink.SetDefaultHandler(func(*xsink.Sink) { invocations++ })
	defer xsink.SetDefaultHandler(nil)

	s := xsink.New()
	s.RaiseSystem("X", "ignored")
	s.Clear()
	s.Close()
	require.Equal(t, 0, invocations)
	require.False(t, s.IsException())
}
