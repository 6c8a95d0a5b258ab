package qthreadpool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qorerun/qcore/qthreadpool"
	"github.com/qorerun/qcore/xsink"
)

func TestSubmitRunsTask(t *testing.T) {
	p := qthreadpool.New(4, 0, 2, 1000)
	var ran int32
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func(sink *xsink.Sink) {
		atomic.StoreInt32(&ran, 1)
		wg.Done()
	}, nil))
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&ran))
	p.Stop()
}

func TestSubmitAfterStopIsRejected(t *testing.T) {
	p := qthreadpool.New(2, 0, 1, 1000)
	p.Stop()
	err := p.Submit(func(sink *xsink.Sink) {}, nil)
	require.Error(t, err)
}

// TestStopCancelsPendingTasks implements spec §8 scenario 5: submit 10
// tasks (each sleeps), bound to a single worker so 9 stay queued; stop()
// must invoke each queued task's cancel exactly once and only return
// once the in-flight worker has exited.
func TestStopCancelsPendingTasks(t *testing.T) {
	p := qthreadpool.New(1, 0, 0, 1000)

	var cancelCount int32
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func(sink *xsink.Sink) {
		defer wg.Done()
		time.Sleep(100 * time.Millisecond)
	}, func() { atomic.AddInt32(&cancelCount, 1) }))

	for i := 0; i < 9; i++ {
		require.NoError(t, p.Submit(func(sink *xsink.Sink) {
			time.Sleep(time.Second)
		}, func() { atomic.AddInt32(&cancelCount, 1) }))
	}

	time.Sleep(20 * time.Millisecond)
	p.Stop()
	wg.Wait()
	require.Equal(t, int32(9), atomic.LoadInt32(&cancelCount))
}

func TestTaskPanicIsRecovered(t *testing.T) {
	p := qthreadpool.New(2, 0, 1, 1000)
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func(sink *xsink.Sink) {
		defer wg.Done()
		panic("boom")
	}, nil))
	wg.Wait()
	time.Sleep(20 * time.Millisecond)
	p.Stop()
}

func TestIdleWorkerIsReleasedAfterTimeout(t *testing.T) {
	p := qthreadpool.New(4, 0, 0, 20)
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func(sink *xsink.Sink) {
		wg.Done()
	}, nil))
	wg.Wait()
	require.Eventually(t, func() bool {
		return p.WorkerCount() == 0
	}, time.Second, 5*time.Millisecond)
	p.Stop()
}
