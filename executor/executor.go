// File: executor/executor.go
// Package executor implements api.EventExecutor: a single-threaded task
// queue with an affine worker identity, per spec.md §4.C. The external task
// queue is backed by github.com/eapache/queue, a growable (unbounded) ring
// buffer guarded by Core's mutex, already present in this codebase's dependency neighborhood but never
// wired to a concrete implementation until now.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package executor

import (
	"sync"
	"time"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
)

// SingleThreadEventExecutor owns exactly one worker goroutine. Task
// submission from outside the worker wakes it via Core.Wake; submission
// from inside enqueues without a wakeup, matching spec.md §4.C.
type SingleThreadEventExecutor struct {
	*Core
	started sync.Once
}

// New creates an executor named name, with batchSize bounding how many
// ready tasks are drained per loop iteration before yielding to timers
// (mirrors the pack's batched drain loop).
func New(name string, batchSize int) *SingleThreadEventExecutor {
	e := &SingleThreadEventExecutor{Core: NewCore(name, batchSize)}
	e.started.Do(func() {
		go e.run()
	})
	return e
}

func (e *SingleThreadEventExecutor) Execute(task api.Task) {
	if e.IsShutdown() {
		return
	}
	e.Enqueue(task)
}

func (e *SingleThreadEventExecutor) Schedule(task api.Task, delay time.Duration) api.Future {
	return e.ScheduleTimer(delay, task)
}

func (e *SingleThreadEventExecutor) ShutdownGracefully(quietPeriod, timeout time.Duration) api.Future {
	e.RequestShutdown()
	go e.DrainUntilQuiet(quietPeriod, timeout)
	return e.TerminationFuture()
}

// run is the worker loop: drain due timers, then drain up to BatchSize
// ready tasks, then sleep until woken or the next timer is due.
func (e *SingleThreadEventExecutor) run() {
	e.MarkWorker()
	for {
		e.RunDueTimers()
		ran := e.DrainBatch()
		if e.IsShutdown() && !ran && e.PendingEmpty() {
			e.MarkTerminated()
			return
		}
		if !ran {
			select {
			case <-e.WakeChan():
			case <-time.After(e.NextTimerDelay(50 * time.Millisecond)):
			}
		}
	}
}

var _ api.EventExecutor = (*SingleThreadEventExecutor)(nil)

// ErrExecutorClosed matches spec.md §7's IllegalState kind for submission
// after shutdown.
var ErrExecutorClosed = errs.New(errs.KindIllegalState, "executor is shut down")
