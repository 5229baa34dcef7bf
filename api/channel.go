// File: api/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"net"
	"time"
)

// ChannelID uniquely identifies a Channel within this process.
type ChannelID uint64

// ChannelState is a bitset of the channel's open/registered/active flags
// (spec.md §3).
type ChannelState uint8

const (
	StateOpen ChannelState = 1 << iota
	StateRegistered
	StateActive
)

// ChannelOption identifies a per-channel configuration key. Concrete keys
// live in the config package; this indirection lets api stay dependency
// free while config.Option[T] provides typed accessors.
type ChannelOption string

const (
	OptConnectTimeoutMillis     ChannelOption = "CONNECT_TIMEOUT_MILLIS"
	OptWriteBufferHighWaterMark ChannelOption = "WRITE_BUFFER_HIGH_WATER_MARK"
	OptWriteBufferLowWaterMark  ChannelOption = "WRITE_BUFFER_LOW_WATER_MARK"
	OptAutoRead                 ChannelOption = "AUTO_READ"
	OptRecvByteBufAllocator     ChannelOption = "RCVBUF_ALLOCATOR"
	OptAllocator                ChannelOption = "ALLOCATOR"
)

// ChannelConfig is the mutable option bag attached to a channel.
type ChannelConfig interface {
	Get(opt ChannelOption) (any, bool)
	Set(opt ChannelOption, value any)
	Allocator() BufferAllocator
	AutoRead() bool
	ConnectTimeout() time.Duration
	Watermarks() (low, high int)
}

// Channel is the public, always-asynchronous per-connection API of spec.md
// §4.E. Every operation returns/accepts a Future/Promise and is safe to
// call from any goroutine: calls from outside the owning reactor are
// trampolined onto it.
type Channel interface {
	ID() ChannelID
	Parent() Channel
	Config() ChannelConfig
	Pipeline() ChannelPipeline
	Allocator() BufferAllocator
	EventLoop() EventLoop
	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	IsOpen() bool
	IsRegistered() bool
	IsActive() bool
	IsWritable() bool

	Register(group EventLoopGroup) Future
	Bind(local net.Addr) Future
	Connect(remote, local net.Addr) Future
	Disconnect() Future
	Close() Future
	Deregister() Future
	Read() Channel
	Write(msg any) Future
	Flush() Channel
	WriteAndFlush(msg any) Future

	// Unsafe exposes the restricted contract callable only by the owning
	// reactor.
	Unsafe() ChannelUnsafe
}

// ChannelUnsafe is spec.md §4.E's unsafe contract: called only by the
// channel's owning reactor goroutine.
type ChannelUnsafe interface {
	Register(loop EventLoop, promise Promise)
	Bind(local net.Addr, promise Promise)
	Connect(remote, local net.Addr, promise Promise)
	FinishConnect()
	Disconnect(promise Promise)
	Close(promise Promise)
	CloseForcibly()
	Deregister(promise Promise)
	BeginRead()
	Write(msg any, promise Promise)
	Flush()
	ForceFlush()
	VoidPromise() Promise
	OutboundBuffer() ChannelOutboundBuffer

	// FD exposes the raw selectable descriptor for non-blocking channels.
	FD() uintptr
	// DoReadLoop drives the bounded read loop of spec.md §4.E and fires
	// channelRead/channelReadComplete on the pipeline.
	DoReadLoop()
}

// ChannelOutboundBuffer is the outbound write queue of spec.md §3/§4.E:
// ordered pending (message, promise) entries with a flush boundary and
// watermark-driven writability.
type ChannelOutboundBuffer interface {
	AddMessage(msg any, size int64, promise Promise)
	AddFlush()
	// Current returns the head entry, or ok=false if nothing is pending.
	Current() (msg any, ok bool)
	// Remove completes the head entry's promise successfully and pops it.
	Remove()
	// RemoveWithError completes the head entry's promise with err and
	// pops it.
	RemoveWithError(err error)
	// FailAll fails every remaining entry (flushed and unflushed) with
	// err, used on close.
	FailAll(err error)
	IsEmpty() bool
	TotalPendingBytes() int64
	IsWritable() bool
}
