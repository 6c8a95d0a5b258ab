// Package qthreadpool implements ThreadPool (component K): a bounded
// worker pool with an idle-release policy and two-phase shutdown,
// grounded on original_source/lib/ThreadPool.h and styled after the
// teacher pack's worker-loop shape.
package qthreadpool

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qorerun/qcore/qruntime"
	"github.com/qorerun/qcore/xsink"
)

// Task is the callable submitted for execution. It receives a fresh
// ExceptionSink; if it raises, the sink is drained by the default
// handler rather than propagated as a Go error (§4.K: "the task
// callable is invoked with a fresh ExceptionSink").
type Task func(sink *xsink.Sink)

// Cancel is invoked, at most once, for a task that never started
// because the pool was stopped first.
type Cancel func()

type submission struct {
	task   Task
	cancel Cancel
}

// ThreadPool is the submit/cancel worker queue of §4.K.
type ThreadPool struct {
	mu   sync.Mutex
	cond *sync.Cond

	maxWorkers int // 0 = unlimited
	minIdle    int
	maxIdle    int
	releaseMs  int64

	queue       []submission
	workerCount int
	idleCount   int
	stopping    bool
	confirming  bool
	workers     errgroup.Group
}

// New constructs a pool. max=0 means unlimited worker count. New also
// calls qruntime.TuneGOMAXPROCS, whatever max is; the pool's own worker
// limit is max alone and does not depend on GOMAXPROCS.
func New(max, minIdle, maxIdle int, releaseMs int64) *ThreadPool {
	qruntime.TuneGOMAXPROCS()
	p := &ThreadPool{maxWorkers: max, minIdle: minIdle, maxIdle: maxIdle, releaseMs: releaseMs}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Submit schedules task for execution, spawning a new worker if none is
// idle and there is room to grow, otherwise enqueueing it. Returns an
// error (and does not schedule anything) if the pool is stopping.
func (p *ThreadPool) Submit(task Task, cancel Cancel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopping {
		return errStopping
	}
	if p.idleCount == 0 && (p.maxWorkers == 0 || p.workerCount < p.maxWorkers) {
		p.workerCount++
		first := submission{task: task, cancel: cancel}
		p.workers.Go(func() error {
			p.workerLoop(first)
			return nil
		})
		return nil
	}
	p.queue = append(p.queue, submission{task: task, cancel: cancel})
	p.cond.Signal()
	return nil
}

var errStopping = poolError("qthreadpool: pool is stopping")

type poolError string

func (e poolError) Error() string { return string(e) }

// workerLoop runs first, immediately executing the task it was spawned
// with, then repeatedly waits for queued work until idle for longer
// than releaseMs (once idleCount exceeds minIdle) or the pool stops.
func (p *ThreadPool) workerLoop(first submission) {
	qruntime.Log().WithFields(logrus.Fields{"event": "spawned"}).Debug("qthreadpool worker")
	current := first
	for {
		p.runTask(current)

		p.mu.Lock()
		if p.stopping {
			p.workerCount--
			p.mu.Unlock()
			qruntime.Log().WithFields(logrus.Fields{"event": "stopped"}).Debug("qthreadpool worker")
			return
		}
		if len(p.queue) > 0 {
			current = p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			continue
		}

		p.idleCount++
		releaseAt := time.Now().Add(time.Duration(p.releaseMs) * time.Millisecond)
		for len(p.queue) == 0 && !p.stopping {
			if p.idleCount > p.minIdle && p.releaseMs > 0 {
				remaining := time.Until(releaseAt)
				if remaining <= 0 {
					p.idleCount--
					p.workerCount--
					p.mu.Unlock()
					qruntime.Log().WithFields(logrus.Fields{"event": "idle-released"}).Debug("qthreadpool worker")
					return
				}
				waitTimeout(p.cond, remaining)
			} else {
				p.cond.Wait()
			}
		}
		p.idleCount--
		if p.stopping {
			p.workerCount--
			p.mu.Unlock()
			return
		}
		current = p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
	}
}

func waitTimeout(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
}

func (p *ThreadPool) runTask(s submission) {
	sink := xsink.New()
	defer func() {
		if r := recover(); r != nil {
			qruntime.Log().WithFields(logrus.Fields{"event": "panic", "recover": r}).Error("qthreadpool task panicked")
		}
		sink.Close()
	}()
	s.task(sink)
}

// stop is shared by Stop/StopWait: it sets the stopping flag, drains
// every still-queued submission through its cancel callable, and wakes
// every blocked worker so each observes p.stopping and exits.
func (p *ThreadPool) stop() {
	p.mu.Lock()
	p.stopping = true
	pending := p.queue
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, s := range pending {
		if s.cancel != nil {
			s.cancel()
		}
	}
}

// Stop empties the queue (running each pending task's cancel callable)
// and terminates every worker once its current task (if any) finishes.
// It does not return until every worker has exited.
func (p *ThreadPool) Stop() {
	p.stop()
	p.workers.Wait()
}

// StopWait behaves like Stop, waiting for in-flight tasks to complete
// before returning — which Stop already guarantees via the worker group, so
// this is here as a distinctly named entry point matching §4.K's API
// surface rather than a behavioral variant.
func (p *ThreadPool) StopWait() {
	p.Stop()
}

// Confirm waits for every worker to have acknowledged the stop signal
// (equivalent, in this implementation, to Stop's own wait) and marks
// the pool as having completed a confirmed shutdown, for callers that
// distinguish the two per §4.K's "confirm flag" field.
func (p *ThreadPool) Confirm() {
	p.mu.Lock()
	p.confirming = true
	p.mu.Unlock()
	p.workers.Wait()
}

// WorkerCount and QueueLen are diagnostics used by tests.
func (p *ThreadPool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workerCount
}

func (p *ThreadPool) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
