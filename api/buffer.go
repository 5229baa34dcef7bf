// File: api/buffer.go
// Package api defines the interfaces every other package in netcore programs
// against. No behavior lives here.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Buffer is a mutable byte region with an atomic refcount and independent
// reader/writer cursors. Retain/Release follow spec.md §4.A exactly:
// deallocation happens exactly once, when a release drives the count to 0.
type Buffer interface {
	Capacity() int
	ReaderIndex() int
	WriterIndex() int
	ReadableBytes() int
	Bytes() []byte
	WritableBytes() int
	WriteBytes(p []byte) (int, error)
	ReadBytes(p []byte) int
	Slice(from, to int) Buffer

	RefCount() int32
	Retain() Buffer
	RetainN(n int32) Buffer
	Release() bool
	ReleaseN(n int32) bool
	Touch(hint string) Buffer
}

// BufferAllocator is the pooling policy contract: pooled direct, pooled
// heap, or unpooled. The choice is policy, not part of Buffer's contract.
type BufferAllocator interface {
	IsDirectBufferPooled() bool
	DirectBuffer(n int) Buffer
	HeapBuffer(n int) Buffer
	IOBuffer(n int) Buffer
}

// RecvByteBufAllocatorHandle decides, per read-loop iteration, how large the
// next receive buffer should be and whether the read loop should continue.
type RecvByteBufAllocatorHandle interface {
	Allocate(alloc BufferAllocator) Buffer
	LastBytesRead(n int)
	IncMessagesRead(n int)
	ContinueReading() bool
	Reset()
}
