package qresource_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/qresource"
	"github.com/qorerun/qcore/xsink"
	"github.com/qorerun/qcore/xthread"
)

func newTestResource(autoCommit bool) *qresource.ManagedResource {
	return qresource.New(func(sink *xsink.Sink) error { return nil }, func() {}, autoCommit)
}

func TestOpenMovesClosedToIdle(t *testing.T) {
	r := newTestResource(true)
	sink := xsink.New()
	require.Equal(t, qresource.StateClosed, r.State())
	require.NoError(t, r.Open(sink))
	require.Equal(t, qresource.StateIdle, r.State())
}

func TestStartEndActionCycleState(t *testing.T) {
	r := newTestResource(true)
	sink := xsink.New()
	require.NoError(t, r.StartAction(sink))
	require.Equal(t, qresource.StateInAction, r.State())
	r.EndAction()
	require.Equal(t, qresource.StateIdle, r.State())
}

func TestTransactionMovesThroughIdleInTxn(t *testing.T) {
	r := newTestResource(false)
	sink := xsink.New()
	tc := xthread.New()
	require.NoError(t, r.Open(sink))
	require.NoError(t, r.BeginTransaction(tc, sink))
	require.Equal(t, qresource.StateIdleInTxn, r.State())
	require.NoError(t, r.StartAction(sink))
	require.Equal(t, qresource.StateInActionInTxn, r.State())
	r.EndAction()
	require.Equal(t, qresource.StateIdleInTxn, r.State())
	require.NoError(t, r.Commit(tc, sink))
	require.Equal(t, qresource.StateIdle, r.State())
}

func TestTransactionTimeoutNamesHoldingThread(t *testing.T) {
	r := newTestResource(false)
	r.SetGateTimeout(20 * time.Millisecond)
	sink := xsink.New()
	t1 := xthread.New()
	t2 := xthread.New()

	require.NoError(t, r.Open(sink))
	require.NoError(t, r.BeginTransaction(t1, sink))

	sink2 := xsink.New()
	err := r.BeginTransaction(t2, sink2)
	require.Error(t, err)
	require.True(t, sink2.IsException())
	var te *qresource.TimeoutError
	require.ErrorAs(t, err, &te)
	require.Equal(t, int64(t1.ID()), te.HolderTID)

	require.NoError(t, r.Commit(t1, sink))
}

func TestCloseWaitsForActiveToDrain(t *testing.T) {
	r := newTestResource(true)
	sink := xsink.New()
	require.NoError(t, r.StartAction(sink))

	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Close returned before active drained to zero")
	default:
	}
	r.EndAction()
	<-done
	require.Equal(t, qresource.StateClosed, r.State())
}

func TestThreadExitWithoutCommitImplicitlyRollsBack(t *testing.T) {
	r := newTestResource(false)
	sink := xsink.New()
	tc := xthread.New()
	require.NoError(t, r.Open(sink))
	require.NoError(t, r.BeginTransaction(tc, sink))

	tc.Exit(sink)
	require.Equal(t, qresource.StateIdle, r.State())

	t2 := xthread.New()
	require.NoError(t, r.BeginTransaction(t2, sink))
}
