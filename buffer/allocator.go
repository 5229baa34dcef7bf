// File: buffer/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package buffer

import "github.com/momentics/netcore/api"

// PooledAllocator backs api.BufferAllocator with the size-classed free
// lists of pool.go. direct reports whether DirectBuffer draws from the
// pool (true) versus falling through to an unpooled allocation (false) —
// selected once at construction, matching ChannelConfig's ALLOCATOR option.
type PooledAllocator struct {
	direct bool
	pool   *sizedPool
}

// NewPooledDirect returns an allocator whose DirectBuffer calls are pooled.
func NewPooledDirect() *PooledAllocator {
	return &PooledAllocator{direct: true, pool: newSizedPool()}
}

// NewPooledHeap returns an allocator whose HeapBuffer calls are pooled but
// DirectBuffer falls through to an unpooled allocation.
func NewPooledHeap() *PooledAllocator {
	return &PooledAllocator{direct: false, pool: newSizedPool()}
}

func (a *PooledAllocator) IsDirectBufferPooled() bool { return a.direct }

func (a *PooledAllocator) DirectBuffer(n int) api.Buffer {
	if !a.direct {
		return NewEmpty(n)
	}
	return newPooled(a.pool.get(n), a.pool)
}

func (a *PooledAllocator) HeapBuffer(n int) api.Buffer {
	if a.direct {
		return NewEmpty(n)
	}
	return newPooled(a.pool.get(n), a.pool)
}

func (a *PooledAllocator) IOBuffer(n int) api.Buffer {
	if a.direct {
		return a.DirectBuffer(n)
	}
	return a.HeapBuffer(n)
}

var _ api.BufferAllocator = (*PooledAllocator)(nil)

// UnpooledAllocator always allocates a fresh []byte; DirectBuffer and
// HeapBuffer are equivalent since there is no true off-heap concept in Go.
type UnpooledAllocator struct{}

func (UnpooledAllocator) IsDirectBufferPooled() bool { return false }
func (UnpooledAllocator) DirectBuffer(n int) api.Buffer { return NewEmpty(n) }
func (UnpooledAllocator) HeapBuffer(n int) api.Buffer   { return NewEmpty(n) }
func (UnpooledAllocator) IOBuffer(n int) api.Buffer     { return NewEmpty(n) }

var _ api.BufferAllocator = UnpooledAllocator{}

// NewDirectBuffer implements spec.md §4.A's newDirectBuffer cost-avoidance
// policy: if alloc pools direct buffers, allocate and copy the source's
// readable slice, releasing the source; otherwise return the source
// unchanged.
func NewDirectBuffer(alloc api.BufferAllocator, src api.Buffer) api.Buffer {
	if !alloc.IsDirectBufferPooled() {
		return src
	}
	out := alloc.DirectBuffer(src.ReadableBytes())
	out.WriteBytes(src.Bytes())
	src.Release()
	return out
}
