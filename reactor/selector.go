// File: reactor/selector.go
// Package reactor implements the I/O event loop (spec.md §4.D): a
// specialization of executor.Core that also owns a readiness selector and
// interleaves I/O polling with task execution according to an ioRatio
// budget.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package reactor

import "time"

// Interest is a bitmask of readiness conditions a channel registers for.
type Interest uint8

const (
	OpRead Interest = 1 << iota
	OpWrite
	OpConnect
	OpAccept
)

// ReadyEvent is one readiness notification returned by Selector.Select.
type ReadyEvent struct {
	FD         uintptr
	Ready      Interest
	Attachment any // the attachment passed to Register for this fd
}

// SelectionKey is the opaque reactor handle a registered channel stores
// (spec.md §3); reset whenever the channel is re-registered with a
// different reactor.
type SelectionKey struct {
	FD         uintptr
	Interest   Interest
	Attachment any
	cancelled  bool
}

func (k *SelectionKey) Cancelled() bool { return k.cancelled }

// Selector is the platform-neutral readiness-polling primitive of spec.md
// §4.D: register/modify/cancel interest, a blocking Select, a non-blocking
// SelectNow, and Wakeup to interrupt a blocked Select from another
// goroutine.
type Selector interface {
	Register(fd uintptr, interest Interest, attachment any) (*SelectionKey, error)
	Modify(key *SelectionKey, interest Interest) error
	Cancel(key *SelectionKey) error
	// Select blocks up to timeout (0 = return immediately once polled,
	// negative = block indefinitely) and appends ready events to out,
	// returning the extended slice.
	Select(timeout time.Duration, out []ReadyEvent) ([]ReadyEvent, error)
	SelectNow(out []ReadyEvent) ([]ReadyEvent, error)
	Wakeup()
	Close() error
}
