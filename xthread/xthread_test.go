package xthread_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/xsink"
	"github.com/qorerun/qcore/xthread"
)

type fakePrimitive string

func (f fakePrimitive) Name() string { return string(f) }

func TestCheckAndMarkWaitingDetectsTwoLockCycle(t *testing.T) {
	t1 := xthread.New()
	t2 := xthread.New()

	lockA := fakePrimitive("lockA")
	lockB := fakePrimitive("lockB")

	// T1 holds A, T2 holds B.
	xthread.Track(lockA, t1)
	xthread.Track(lockB, t2)

	// T1 wants B: no cycle yet, since B's owner (t2) isn't waiting on anything.
	require.NoError(t, xthread.CheckAndMarkWaiting(t1, lockB))

	// T2 wants A: A's owner is t1, which is now waiting on B, whose
	// owner is t2 itself -> cycle.
	err := xthread.CheckAndMarkWaiting(t2, lockA)
	require.Error(t, err)
	var dl *xthread.ErrDeadlock
	require.ErrorAs(t, err, &dl)

	xthread.ClearWaiting(t1)
}

func TestCheckAndMarkWaitingNoCycleSucceeds(t *testing.T) {
	t1 := xthread.New()
	t2 := xthread.New()
	lockA := fakePrimitive("lockA")

	xthread.Track(lockA, t1)
	require.NoError(t, xthread.CheckAndMarkWaiting(t2, lockA))
	xthread.ClearWaiting(t2)
}

func TestContextExitRunsResourcesLIFO(t *testing.T) {
	c := xthread.New()
	var order []string

	c.RegisterResource("first", func(*xsink.Sink) { order = append(order, "first") })
	c.RegisterResource("second", func(*xsink.Sink) { order = append(order, "second") })

	sink := xsink.New()
	c.Exit(sink)

	require.Equal(t, []string{"second", "first"}, order)
}

func TestContextExitAssimilatesResourceExceptions(t *testing.T) {
	c := xthread.New()
	c.RegisterResource("rollback", func(s *xsink.Sink) {
		s.RaiseSystem("TRANSACTION-TIMEOUT", "implicit rollback failed")
	})

	sink := xsink.New()
	sink.Handled() // test does not want the default handler to fire
	c.Exit(sink)

	require.True(t, sink.IsException())
	require.Equal(t, "TRANSACTION-TIMEOUT", sink.Exceptions()[0].ErrorTag)
}

func TestRemoveResourceCancelsCleanup(t *testing.T) {
	c := xthread.New()
	called := false
	c.RegisterResource("res", func(*xsink.Sink) { called = true })
	require.True(t, c.RemoveResource("res"))

	sink := xsink.New()
	c.Exit(sink)
	require.False(t, called)
}

func TestPushPopLockStack(t *testing.T) {
	c := xthread.New()
	c.PushLock("a")
	c.PushLock("b")
	require.Equal(t, []string{"a", "b"}, c.HeldLocks())
	c.PopLock("a")
	require.Equal(t, []string{"b"}, c.HeldLocks())
}
