package qpool_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/qpool"
	"github.com/qorerun/qcore/qresource"
	"github.com/qorerun/qcore/xsink"
	"github.com/qorerun/qcore/xthread"
)

func factory() *qresource.ManagedResource {
	r := qresource.New(func(sink *xsink.Sink) error { return nil }, func() {}, true)
	r.Open(xsink.New())
	return r
}

func TestAcquireReturnsSamePinnedResourceToSameThread(t *testing.T) {
	pool, err := qpool.New(1, 2, factory)
	require.NoError(t, err)
	sink := xsink.New()
	tc := xthread.New()

	r1, err := pool.Acquire(tc, sink)
	require.NoError(t, err)
	r2, err := pool.Acquire(tc, sink)
	require.NoError(t, err)
	require.Same(t, r1, r2)
}

func TestAcquireGrowsPoolWhenRoom(t *testing.T) {
	pool, err := qpool.New(1, 2, factory)
	require.NoError(t, err)
	sink := xsink.New()
	t1, t2 := xthread.New(), xthread.New()

	_, err = pool.Acquire(t1, sink)
	require.NoError(t, err)
	require.Equal(t, 1, pool.Size())

	_, err = pool.Acquire(t2, sink)
	require.NoError(t, err)
	require.Equal(t, 2, pool.Size())
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	pool, err := qpool.New(1, 1, factory)
	require.NoError(t, err)
	sink := xsink.New()
	t1, t2 := xthread.New(), xthread.New()

	_, err = pool.Acquire(t1, sink)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := pool.Acquire(t2, sink)
		require.NoError(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, pool.WaitCount())
	pool.Release(t1, false)
	wg.Wait()
}

func TestReleaseKeepsPinWhileInTransaction(t *testing.T) {
	pool, err := qpool.New(1, 1, factory)
	require.NoError(t, err)
	sink := xsink.New()
	tc := xthread.New()

	_, err = pool.Acquire(tc, sink)
	require.NoError(t, err)
	pool.Release(tc, true)

	r2, err := pool.Acquire(tc, sink)
	require.NoError(t, err)
	require.NotNil(t, r2)
}

func TestDestroyWakesWaitersWithError(t *testing.T) {
	pool, err := qpool.New(1, 1, factory)
	require.NoError(t, err)
	sink := xsink.New()
	t1, t2 := xthread.New(), xthread.New()

	_, err = pool.Acquire(t1, sink)
	require.NoError(t, err)

	var gotErr error
	done := make(chan struct{})
	go func() {
		_, gotErr = pool.Acquire(t2, xsink.New())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	pool.Destroy()
	<-done
	require.Error(t, gotErr)
}

func TestActionHelperReleaseReturnsResourceToPool(t *testing.T) {
	pool, err := qpool.New(1, 1, factory)
	require.NoError(t, err)
	sink := xsink.New()
	tc := xthread.New()

	h, err := qpool.NewActionHelper(pool, tc, sink, qpool.CommandRelease)
	require.NoError(t, err)
	require.NotNil(t, h.Resource())
	h.Close()

	t2 := xthread.New()
	_, err = pool.Acquire(t2, sink)
	require.NoError(t, err)
}
