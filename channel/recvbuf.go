// File: channel/recvbuf.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package channel

import "github.com/momentics/netcore/api"

// maxMessagesPerRead bounds the read loop per spec.md §4.E's read
// protocol: a busy socket may never starve the task queue or timers.
const maxMessagesPerRead = 16

const (
	minGuess = 64
	maxGuess = 64 * 1024
)

// AdaptiveRecvByteBufAllocatorHandle grows/shrinks its next-buffer guess
// based on how full the previous read came back, and caps the number of
// messages read per DoReadLoop invocation, per spec.md §4.E.
type AdaptiveRecvByteBufAllocatorHandle struct {
	guess    int
	lastRead int
	msgs     int
}

func NewAdaptiveRecvByteBufAllocatorHandle() *AdaptiveRecvByteBufAllocatorHandle {
	return &AdaptiveRecvByteBufAllocatorHandle{guess: 2048}
}

func (h *AdaptiveRecvByteBufAllocatorHandle) Allocate(alloc api.BufferAllocator) api.Buffer {
	return alloc.IOBuffer(h.guess)
}

func (h *AdaptiveRecvByteBufAllocatorHandle) LastBytesRead(n int) {
	h.lastRead = n
	h.msgs++
	if n >= h.guess && h.guess < maxGuess {
		h.guess *= 2
	} else if n > 0 && n < h.guess/2 && h.guess > minGuess {
		h.guess /= 2
	}
}

func (h *AdaptiveRecvByteBufAllocatorHandle) IncMessagesRead(n int) { h.msgs += n }

func (h *AdaptiveRecvByteBufAllocatorHandle) ContinueReading() bool {
	return h.lastRead > 0 && h.msgs < maxMessagesPerRead
}

func (h *AdaptiveRecvByteBufAllocatorHandle) Reset() {
	h.lastRead = 0
	h.msgs = 0
}

var _ api.RecvByteBufAllocatorHandle = (*AdaptiveRecvByteBufAllocatorHandle)(nil)
