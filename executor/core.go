// File: executor/core.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core is the task-queue/timer/lifecycle plumbing shared by
// SingleThreadEventExecutor and reactor.EventLoop: both own exactly one
// worker goroutine and differ only in what that goroutine does on each
// iteration (plain task draining vs. select-then-dispatch-then-drain).
package executor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/promise"
)

type lifecycleState int32

const (
	lsRunning lifecycleState = iota
	lsShuttingDown
	lsShutdown
	lsTerminated
)

type timerTask struct {
	deadline time.Time
	fn       api.Task
	fired    bool
}

// Core provides: FIFO task queue, delay queue, wake signal, lifecycle
// state, and a termination promise. Embedders supply the run loop.
type Core struct {
	Name string

	mu     sync.Mutex
	tasks  *queue.Queue
	timers []*timerTask
	wake   chan struct{}

	workerID atomic.Value

	state       atomic.Int32
	termination *promise.DefaultPromise

	BatchSize int
	Logger    *zap.SugaredLogger
}

// NewCore initializes a Core ready to have its embedder start a worker
// goroutine against it.
func NewCore(name string, batchSize int) *Core {
	if batchSize <= 0 {
		batchSize = 256
	}
	return &Core{
		Name:        name,
		tasks:       queue.New(),
		wake:        make(chan struct{}, 1),
		termination: promise.New(nil),
		BatchSize:   batchSize,
		Logger:      zap.NewNop().Sugar(),
	}
}

// SetLogger points recovered-panic logging at logger instead of the no-op
// default; reactor.NewEventLoop and executor.New both expose this.
func (c *Core) SetLogger(logger *zap.SugaredLogger) { c.Logger = logger }

func (c *Core) MarkWorker() { c.workerID.Store(goroutineMarker()) }

func (c *Core) InEventLoop() bool {
	id, ok := c.workerID.Load().(int64)
	if !ok {
		return false
	}
	return id == goroutineMarker()
}

func (c *Core) Enqueue(task api.Task) {
	c.mu.Lock()
	c.tasks.Add(task)
	c.mu.Unlock()
	if !c.InEventLoop() {
		c.Wake()
	}
}

func (c *Core) ScheduleTimer(delay time.Duration, task api.Task) *promise.DefaultPromise {
	p := promise.New(nil)
	tt := &timerTask{
		deadline: time.Now().Add(delay),
		fn: func() {
			task()
			p.TrySuccess(nil)
		},
	}
	c.mu.Lock()
	c.timers = append(c.timers, tt)
	c.mu.Unlock()
	if !c.InEventLoop() {
		c.Wake()
	}
	return p
}

func (c *Core) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Core) WakeChan() <-chan struct{} { return c.wake }

// DrainBatch runs up to BatchSize ready tasks and reports whether any ran.
func (c *Core) DrainBatch() bool {
	ran := false
	for i := 0; i < c.BatchSize; i++ {
		c.mu.Lock()
		if c.tasks.Length() == 0 {
			c.mu.Unlock()
			break
		}
		v := c.tasks.Remove()
		c.mu.Unlock()
		if task, ok := v.(api.Task); ok && task != nil {
			c.safeRun(task)
			ran = true
		}
	}
	return ran
}

// DrainFor runs ready tasks until budget elapses or the queue empties,
// used by the reactor to honor its ioRatio task-time budget.
func (c *Core) DrainFor(budget time.Duration) bool {
	ran := false
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if c.tasks.Length() == 0 {
			c.mu.Unlock()
			break
		}
		v := c.tasks.Remove()
		c.mu.Unlock()
		if task, ok := v.(api.Task); ok && task != nil {
			c.safeRun(task)
			ran = true
		}
	}
	return ran
}

func (c *Core) RunDueTimers() {
	now := time.Now()
	c.mu.Lock()
	due := make([]*timerTask, 0, len(c.timers))
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.fired && !now.Before(t.deadline) {
			t.fired = true
			due = append(due, t)
		} else if !t.fired {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()
	for _, t := range due {
		c.safeRun(t.fn)
	}
}

func (c *Core) NextTimerDelay(fallback time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return fallback
	}
	min := c.timers[0].deadline
	for _, t := range c.timers[1:] {
		if t.deadline.Before(min) {
			min = t.deadline
		}
	}
	d := time.Until(min)
	if d < 0 {
		return 0
	}
	return d
}

func (c *Core) PendingEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks.Length() == 0 && len(c.timers) == 0
}

func (c *Core) RequestShutdown() {
	c.state.CompareAndSwap(int32(lsRunning), int32(lsShuttingDown))
	c.Enqueue(func() {})
}

func (c *Core) MarkShutdown() {
	c.state.Store(int32(lsShutdown))
	c.Wake()
}

func (c *Core) MarkTerminated() {
	c.state.Store(int32(lsTerminated))
	c.termination.TrySuccess(nil)
}

func (c *Core) TerminationFuture() api.Future { return c.termination }
func (c *Core) IsShuttingDown() bool          { return lifecycleState(c.state.Load()) >= lsShuttingDown }
func (c *Core) IsShutdown() bool              { return lifecycleState(c.state.Load()) >= lsShutdown }
func (c *Core) IsTerminated() bool            { return lifecycleState(c.state.Load()) == lsTerminated }

// DrainUntilQuiet runs in its own goroutine (spawned by ShutdownGracefully)
// and flips the Core to shutdown once no task/timer has arrived for
// quietPeriod, or timeout elapses — spec.md §4.C's quiet-period protocol.
func (c *Core) DrainUntilQuiet(quietPeriod, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	lastActivity := time.Now()
	for {
		if !c.PendingEmpty() {
			lastActivity = time.Now()
		}
		if time.Since(lastActivity) >= quietPeriod || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.MarkShutdown()
}

func (c *Core) safeRun(task api.Task) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Errorw("task panicked", "executor", c.Name, "panic", r)
		}
	}()
	task()
}
