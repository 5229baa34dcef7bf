// File: buffer/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size-classed free-list pools backing the pooled direct/heap allocators,
// generalized from the pack's NUMA-segmented BufferPoolManager into a
// single-node free list since spec.md treats pooling as an allocator
// policy, not part of Buffer's observable contract (§4.A).
package buffer

import "sync"

// sizeClasses mirrors the pack's small/medium/large split.
var sizeClasses = [...]int{1024, 16 * 1024, 64 * 1024, 256 * 1024}

type sizedPool struct {
	mu    sync.Mutex
	free  [len(sizeClasses)]chan []byte
}

func newSizedPool() *sizedPool {
	p := &sizedPool{}
	for i := range p.free {
		p.free[i] = make(chan []byte, 256)
	}
	return p
}

func classFor(n int) (idx int, size int) {
	for i, sz := range sizeClasses {
		if n <= sz {
			return i, sz
		}
	}
	return -1, n
}

func (p *sizedPool) get(n int) []byte {
	idx, size := classFor(n)
	if idx < 0 {
		return make([]byte, size)
	}
	select {
	case buf := <-p.free[idx]:
		return buf[:size]
	default:
		return make([]byte, size)
	}
}

func (p *sizedPool) put(buf []byte) {
	idx, size := classFor(cap(buf))
	if idx < 0 || size != cap(buf) {
		return // odd-sized allocation, let GC reclaim it
	}
	select {
	case p.free[idx] <- buf:
	default:
	}
}

func (p *sizedPool) reclaim(b *defaultBuffer) {
	p.put(b.data)
}

var _ releaser = (*sizedPool)(nil)
