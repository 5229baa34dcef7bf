// File: promise/promise.go
// Package promise implements api.Promise/api.Future: a write-once
// asynchronous result with listener fan-out, matching spec.md §3/§4.B.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package promise

import (
	"sync"
	"time"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
)

type state int32

const (
	statePending state = iota
	stateSuccess
	stateFailure
	stateCancelled
)

// DefaultPromise is the concrete api.Promise. Listener invocation is
// deferred to the promise's designated executor so pipeline-affine code
// observes completion on the expected goroutine; listeners registered
// after completion are invoked immediately on the caller's goroutine
// (documented choice, spec.md §3).
type DefaultPromise struct {
	mu       sync.Mutex
	st       state
	result   any
	cause    error
	executor api.EventExecutor
	waiters  chan struct{} // closed exactly once, on completion
	listeners []api.FutureListener
}

// New creates a pending promise whose listeners run on executor. executor
// may be nil, in which case listeners run on whatever goroutine completes
// the promise.
func New(executor api.EventExecutor) *DefaultPromise {
	return &DefaultPromise{
		executor: executor,
		waiters:  make(chan struct{}),
	}
}

func (p *DefaultPromise) IsDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st != statePending
}

func (p *DefaultPromise) IsSuccess() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st == stateSuccess
}

func (p *DefaultPromise) IsCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st == stateCancelled
}

func (p *DefaultPromise) Cause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}

func (p *DefaultPromise) Result() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// TrySuccess transitions pending->success. Racy no-op after completion.
func (p *DefaultPromise) TrySuccess(result any) bool {
	p.mu.Lock()
	if p.st != statePending {
		p.mu.Unlock()
		return false
	}
	p.st = stateSuccess
	p.result = result
	listeners := p.listeners
	p.listeners = nil
	close(p.waiters)
	p.mu.Unlock()
	p.notify(listeners)
	return true
}

// TryFailure transitions pending->failure. Racy no-op after completion.
func (p *DefaultPromise) TryFailure(cause error) bool {
	p.mu.Lock()
	if p.st != statePending {
		p.mu.Unlock()
		return false
	}
	p.st = stateFailure
	p.cause = cause
	listeners := p.listeners
	p.listeners = nil
	close(p.waiters)
	p.mu.Unlock()
	p.notify(listeners)
	return true
}

// Cancel transitions pending->cancelled. Racy no-op after completion.
func (p *DefaultPromise) Cancel() bool {
	p.mu.Lock()
	if p.st != statePending {
		p.mu.Unlock()
		return false
	}
	p.st = stateCancelled
	p.cause = errs.New(errs.KindCancellation, "future cancelled")
	listeners := p.listeners
	p.listeners = nil
	close(p.waiters)
	p.mu.Unlock()
	p.notify(listeners)
	return true
}

// AddListener registers l to fire once, in registration order, after
// completion.
func (p *DefaultPromise) AddListener(l api.FutureListener) api.Future {
	p.mu.Lock()
	if p.st == statePending {
		p.listeners = append(p.listeners, l)
		p.mu.Unlock()
		return p
	}
	p.mu.Unlock()
	// Already complete: fire immediately on caller's goroutine.
	l(p)
	return p
}

func (p *DefaultPromise) notify(listeners []api.FutureListener) {
	fire := func() {
		for _, l := range listeners {
			l(p)
		}
	}
	if p.executor != nil {
		p.executor.Execute(fire)
		return
	}
	fire()
}

// Sync blocks until completion and returns Cause() (nil on success).
func (p *DefaultPromise) Sync() error {
	<-p.waiters
	return p.Cause()
}

// Await blocks up to timeout for completion; returns false on timeout.
func (p *DefaultPromise) Await(timeout time.Duration) bool {
	select {
	case <-p.waiters:
		return true
	case <-time.After(timeout):
		return false
	}
}

var _ api.Promise = (*DefaultPromise)(nil)

// Succeeded returns an already-successful future, used for VoidPromise-like
// call sites that need a non-nil sink.
func Succeeded(result any) *DefaultPromise {
	p := New(nil)
	p.TrySuccess(result)
	return p
}

// Failed returns an already-failed future.
func Failed(cause error) *DefaultPromise {
	p := New(nil)
	p.TryFailure(cause)
	return p
}
