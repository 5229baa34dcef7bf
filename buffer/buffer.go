// File: buffer/buffer.go
// Package buffer implements api.Buffer: a mutable byte region with an
// atomic refcount and independent reader/writer cursors, per spec.md §4.A.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package buffer

import (
	"sync/atomic"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
)

// defaultBuffer is the concrete api.Buffer. It may back pooled direct,
// pooled heap, or unpooled memory; the pool field, if non-nil, receives the
// buffer back on the release that drives refcount to 0.
type defaultBuffer struct {
	data   []byte
	rIdx   int
	wIdx   int
	refCnt int32
	pool   releaser
	parent *defaultBuffer // non-nil for Slice results; holds parent's retain
}

// releaser is implemented by pools that want their buffers back on release.
type releaser interface {
	reclaim(b *defaultBuffer)
}

// New wraps data as an unpooled buffer with refcount 1, writerIndex at
// len(data) (fully readable) as if freshly filled, matching the pack's
// "wrap a slice" convenience.
func New(data []byte) api.Buffer {
	return &defaultBuffer{data: data, wIdx: len(data), refCnt: 1}
}

// NewEmpty allocates a fresh buffer of capacity n, refcount 1, empty
// (readerIndex == writerIndex == 0), ready to WriteBytes into.
func NewEmpty(n int) api.Buffer {
	return &defaultBuffer{data: make([]byte, n), refCnt: 1}
}

func newPooled(data []byte, p releaser) *defaultBuffer {
	return &defaultBuffer{data: data, wIdx: 0, refCnt: 1, pool: p}
}

func (b *defaultBuffer) Capacity() int      { return len(b.data) }
func (b *defaultBuffer) ReaderIndex() int   { return b.rIdx }
func (b *defaultBuffer) WriterIndex() int   { return b.wIdx }
func (b *defaultBuffer) ReadableBytes() int { return b.wIdx - b.rIdx }
func (b *defaultBuffer) WritableBytes() int { return len(b.data) - b.wIdx }

func (b *defaultBuffer) Bytes() []byte {
	b.checkLive()
	return b.data[b.rIdx:b.wIdx]
}

func (b *defaultBuffer) WriteBytes(p []byte) (int, error) {
	b.checkLive()
	if len(p) > b.WritableBytes() {
		return 0, errs.New(errs.KindBufferTooLarge, "write exceeds buffer capacity")
	}
	n := copy(b.data[b.wIdx:], p)
	b.wIdx += n
	return n, nil
}

func (b *defaultBuffer) ReadBytes(p []byte) int {
	b.checkLive()
	n := copy(p, b.data[b.rIdx:b.wIdx])
	b.rIdx += n
	return n
}

// Slice returns a buffer sharing the same backing array over [from, to);
// it retains the parent so the parent cannot be freed while the slice
// lives (Release on the slice releases the parent, not a separate pool
// slot).
func (b *defaultBuffer) Slice(from, to int) api.Buffer {
	b.checkLive()
	b.Retain()
	return &defaultBuffer{
		data:   b.data[from:to],
		wIdx:   to - from,
		refCnt: 1,
		parent: b,
	}
}

func (b *defaultBuffer) RefCount() int32 {
	return atomic.LoadInt32(&b.refCnt)
}

func (b *defaultBuffer) Retain() api.Buffer  { return b.RetainN(1) }

func (b *defaultBuffer) RetainN(n int32) api.Buffer {
	if n <= 0 {
		panic(errs.New(errs.KindIllegalRefCount, "retain count must be positive"))
	}
	for {
		cur := atomic.LoadInt32(&b.refCnt)
		if cur <= 0 {
			panic(errs.New(errs.KindIllegalRefCount, "retain on released buffer"))
		}
		next := cur + n
		if next < cur {
			panic(errs.New(errs.KindIllegalRefCount, "refcount overflow"))
		}
		if atomic.CompareAndSwapInt32(&b.refCnt, cur, next) {
			return b
		}
	}
}

func (b *defaultBuffer) Release() bool { return b.ReleaseN(1) }

func (b *defaultBuffer) ReleaseN(n int32) bool {
	if n <= 0 {
		panic(errs.New(errs.KindIllegalRefCount, "release count must be positive"))
	}
	for {
		cur := atomic.LoadInt32(&b.refCnt)
		if cur <= 0 {
			panic(errs.New(errs.KindIllegalRefCount, "release on already-released buffer"))
		}
		next := cur - n
		if next < 0 {
			panic(errs.New(errs.KindIllegalRefCount, "release count exceeds refcount"))
		}
		if atomic.CompareAndSwapInt32(&b.refCnt, cur, next) {
			if next == 0 {
				b.deallocate()
				return true
			}
			return false
		}
	}
}

func (b *defaultBuffer) deallocate() {
	if b.parent != nil {
		b.parent.Release()
		return
	}
	if b.pool != nil {
		b.pool.reclaim(b)
	}
}

// Touch is a leak-detector breadcrumb; a no-op unless leak reporting is
// enabled (out of scope per spec.md §1 — external collaborator).
func (b *defaultBuffer) Touch(hint string) api.Buffer { return b }

func (b *defaultBuffer) checkLive() {
	if atomic.LoadInt32(&b.refCnt) <= 0 {
		panic(errs.New(errs.KindBufferReleased, "use of released buffer"))
	}
}

var _ api.Buffer = (*defaultBuffer)(nil)

// Concat copies the readable bytes of every buffer in bufs into one new,
// contiguous, unpooled buffer and releases each input. A full zero-copy
// composite buffer (Netty's CompositeByteBuf) is judged out of proportion
// to this engine's scope; see SPEC_FULL.md's Open Question resolutions.
func Concat(bufs ...api.Buffer) api.Buffer {
	total := 0
	for _, b := range bufs {
		total += b.ReadableBytes()
	}
	out := NewEmpty(total)
	for _, b := range bufs {
		out.WriteBytes(b.Bytes())
		b.Release()
	}
	return out
}
