// File: channel/writebuffer.go
// Package channel implements api.Channel: the non-blocking client channel
// state machine, unsafe contract, and outbound write buffer of spec.md
// §3/§4.E.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package channel

import (
	"sync"

	"github.com/momentics/netcore/api"
)

type entry struct {
	msg     any
	size    int64
	promise api.Promise
}

// WriteBuffer is api.ChannelOutboundBuffer: an ordered queue of pending
// (message, promise) entries with a flush boundary and watermark-driven
// writability, per spec.md §3.
type WriteBuffer struct {
	mu sync.Mutex

	unflushed []entry
	flushed   []entry

	pending int64
	low     int64
	high    int64
	writable bool

	onWritabilityChanged func(writable bool)
}

// NewWriteBuffer builds a WriteBuffer with the given watermarks (bytes).
// onWritabilityChanged fires at most once per crossing, matching spec.md
// §8 scenario 4.
func NewWriteBuffer(low, high int, onWritabilityChanged func(writable bool)) *WriteBuffer {
	return &WriteBuffer{
		low:                  int64(low),
		high:                 int64(high),
		writable:             true,
		onWritabilityChanged: onWritabilityChanged,
	}
}

func (b *WriteBuffer) AddMessage(msg any, size int64, promise api.Promise) {
	b.mu.Lock()
	b.unflushed = append(b.unflushed, entry{msg: msg, size: size, promise: promise})
	b.pending += size
	b.checkWritability()
	b.mu.Unlock()
}

func (b *WriteBuffer) AddFlush() {
	b.mu.Lock()
	if len(b.unflushed) > 0 {
		b.flushed = append(b.flushed, b.unflushed...)
		b.unflushed = b.unflushed[:0]
	}
	b.mu.Unlock()
}

func (b *WriteBuffer) Current() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.flushed) == 0 {
		return nil, false
	}
	return b.flushed[0].msg, true
}

func (b *WriteBuffer) Remove() {
	b.mu.Lock()
	if len(b.flushed) == 0 {
		b.mu.Unlock()
		return
	}
	e := b.flushed[0]
	b.flushed = b.flushed[1:]
	b.pending -= e.size
	b.checkWritability()
	b.mu.Unlock()
	if e.promise != nil {
		e.promise.TrySuccess(nil)
	}
}

func (b *WriteBuffer) RemoveWithError(err error) {
	b.mu.Lock()
	if len(b.flushed) == 0 {
		b.mu.Unlock()
		return
	}
	e := b.flushed[0]
	b.flushed = b.flushed[1:]
	b.pending -= e.size
	b.checkWritability()
	b.mu.Unlock()
	if e.promise != nil {
		e.promise.TryFailure(err)
	}
}

// FailAll fails every remaining entry, flushed and unflushed, used on
// close (spec.md §4.E's close protocol).
func (b *WriteBuffer) FailAll(err error) {
	b.mu.Lock()
	all := append(b.flushed, b.unflushed...)
	b.flushed = nil
	b.unflushed = nil
	b.pending = 0
	b.mu.Unlock()
	for _, e := range all {
		if e.promise != nil {
			e.promise.TryFailure(err)
		}
	}
}

func (b *WriteBuffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.flushed) == 0 && len(b.unflushed) == 0
}

func (b *WriteBuffer) TotalPendingBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *WriteBuffer) IsWritable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writable
}

// checkWritability must be called with mu held; it fires the callback at
// most once per crossing, synchronously, with mu released around the call
// so the callback may use the buffer.
func (b *WriteBuffer) checkWritability() {
	changed := false
	if b.writable && b.high > 0 && b.pending >= b.high {
		b.writable = false
		changed = true
	} else if !b.writable && b.pending <= b.low {
		b.writable = true
		changed = true
	}
	if changed && b.onWritabilityChanged != nil {
		writable := b.writable
		b.mu.Unlock()
		b.onWritabilityChanged(writable)
		b.mu.Lock()
	}
}

var _ api.ChannelOutboundBuffer = (*WriteBuffer)(nil)
