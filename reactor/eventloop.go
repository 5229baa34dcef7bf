// File: reactor/eventloop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop specializes executor.Core with a readiness Selector and
// interleaves select/dispatch/task-drain per an ioRatio budget, per
// spec.md §4.D.
package reactor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/executor"
	"github.com/momentics/netcore/promise"
)

// channelUnsafeAcceptor is implemented by server-style unsafes whose
// OP_ACCEPT path spawns child channels; spec.md §1 scopes the concrete
// accept loop out of the core, so routing to it is a best-effort type
// assertion rather than part of api.ChannelUnsafe.
type channelUnsafeAcceptor interface {
	DoAccept()
}

// EventLoop implements api.EventLoop.
type EventLoop struct {
	*executor.Core
	started sync.Once

	selector Selector
	ioRatio  int // percent of wall time budgeted to I/O polling, spec.md §6
}

// NewEventLoop builds a reactor over sel with the given ioRatio (clamped to
// [1,100], defaulting to 50 per spec.md §6).
func NewEventLoop(name string, sel Selector, ioRatio int) *EventLoop {
	if ioRatio < 1 || ioRatio > 100 {
		ioRatio = 50
	}
	el := &EventLoop{
		Core:     executor.NewCore(name, 256),
		selector: sel,
		ioRatio:  ioRatio,
	}
	el.started.Do(func() {
		go el.run()
	})
	return el
}

// SetLogger points this loop's select-error and recovered-panic logging at
// logger instead of the no-op default.
func (el *EventLoop) SetLogger(logger *zap.SugaredLogger) { el.Core.SetLogger(logger) }

func (el *EventLoop) Execute(task api.Task) {
	if el.IsShutdown() {
		return
	}
	el.Enqueue(task)
	el.selector.Wakeup()
}

func (el *EventLoop) Schedule(task api.Task, delay time.Duration) api.Future {
	f := el.ScheduleTimer(delay, task)
	el.selector.Wakeup()
	return f
}

func (el *EventLoop) ShutdownGracefully(quietPeriod, timeout time.Duration) api.Future {
	el.RequestShutdown()
	el.selector.Wakeup()
	go el.Core.DrainUntilQuiet(quietPeriod, timeout)
	return el.TerminationFuture()
}

// Register schedules the channel's Unsafe().Register onto this loop, per
// the EventLoopGroup embedding API of spec.md §6.
func (el *EventLoop) Register(ch api.Channel) api.Future {
	p := promise.New(el)
	el.Execute(func() {
		ch.Unsafe().Register(el, p)
	})
	return p
}

// Selector exposes the underlying readiness primitive so channel unsafes
// can register/modify/cancel their own interest.
func (el *EventLoop) Selector() Selector { return el.selector }

func (el *EventLoop) run() {
	el.MarkWorker()
	events := make([]ReadyEvent, 0, 256)
	for {
		el.RunDueTimers()

		ioStart := time.Now()
		timeout := el.NextTimerDelay(5 * time.Millisecond)
		var err error
		events, err = el.selector.Select(timeout, events[:0])
		ioElapsed := time.Since(ioStart)
		if err == nil {
			el.dispatch(events)
		} else {
			el.Logger.Errorw("selector poll failed", "loop", el.Name, "cause", err)
		}

		// Task time budget derived from ioRatio: ioRatio% of wall time
		// goes to I/O, the remainder to tasks, per spec.md §4.D.
		taskBudget := ioElapsed * time.Duration(100-el.ioRatio) / time.Duration(el.ioRatio)
		if taskBudget <= 0 {
			taskBudget = time.Millisecond
		}
		ranTasks := el.DrainFor(taskBudget)

		if el.IsShutdown() && !ranTasks && len(events) == 0 && el.PendingEmpty() {
			el.selector.Close()
			el.MarkTerminated()
			return
		}
	}
}

func (el *EventLoop) dispatch(events []ReadyEvent) {
	for _, ev := range events {
		ch, ok := ev.Attachment.(api.Channel)
		if !ok {
			continue
		}
		el.dispatchOne(ch, ev)
	}
}

// dispatchOne runs the ready callbacks for a single channel behind a
// recover, so a panic that escapes the pipeline (an Ops implementation bug,
// say, rather than a handler one) can't take down the loop goroutine and
// every other channel it owns — the same continuity guarantee the teacher's
// own Poll() gives its callbacks.
func (el *EventLoop) dispatchOne(ch api.Channel, ev ReadyEvent) {
	defer func() {
		if r := recover(); r != nil {
			el.Logger.Errorw("recovered panic in event dispatch", "loop", el.Name, "panic", r)
		}
	}()

	u := ch.Unsafe()
	if ev.Ready&OpConnect != 0 {
		u.FinishConnect()
	}
	if ev.Ready&OpAccept != 0 {
		if acceptor, ok := u.(channelUnsafeAcceptor); ok {
			acceptor.DoAccept()
		}
	}
	if ev.Ready&OpRead != 0 {
		u.DoReadLoop()
	}
	if ev.Ready&OpWrite != 0 {
		u.ForceFlush()
	}
}

var _ api.EventLoop = (*EventLoop)(nil)
