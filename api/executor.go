// File: api/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// Task is a unit of work executed by an EventExecutor.
type Task func()

// EventExecutor owns exactly one worker identity (a goroutine with a stable
// name) and serializes all task/event execution on it. Spec.md §4.C.
type EventExecutor interface {
	// InEventLoop reports whether the calling goroutine is this executor's
	// worker.
	InEventLoop() bool
	// Execute enqueues task FIFO; if called from within the worker it is
	// enqueued without a wakeup, matching spec.md §4.C.
	Execute(task Task)
	// Schedule enqueues task to run after delay elapses.
	Schedule(task Task, delay time.Duration) Future
	// ShutdownGracefully begins the quiet-period shutdown protocol.
	ShutdownGracefully(quietPeriod, timeout time.Duration) Future
	// TerminationFuture completes once this executor has fully stopped.
	TerminationFuture() Future
	// IsShuttingDown / IsShutdown / IsTerminated expose lifecycle state.
	IsShuttingDown() bool
	IsShutdown() bool
	IsTerminated() bool
}

// Chooser picks the next executor from a fixed set, e.g. round-robin.
type Chooser interface {
	Next() EventExecutor
}

// EventExecutorGroup holds N executors and a Chooser. Spec.md §4.C.
type EventExecutorGroup interface {
	// Next returns the next executor per the group's Chooser.
	Next() EventExecutor
	// All returns every executor owned by the group.
	All() []EventExecutor
	ShutdownGracefully(quietPeriod, timeout time.Duration) Future
	TerminationFuture() Future
}
