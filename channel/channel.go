// File: channel/channel.go
// Package channel implements api.Channel/api.ChannelUnsafe: the
// non-blocking channel state machine, connect/read/write protocols, and
// idempotent close sequence of spec.md §3/§4.E. Concrete transports
// (transport/tcp) supply an Ops implementation; AbstractChannel supplies
// everything that is transport-independent.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package channel

import (
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
	"github.com/momentics/netcore/promise"
)

var nextID atomic.Uint64

// PipelineFactory builds the pipeline attached to a freshly constructed
// channel; bootstrap supplies this so the channel package stays free of
// a direct pipeline-package dependency.
type PipelineFactory func(ch api.Channel) api.ChannelPipeline

// AbstractChannel is the shared implementation behind every concrete
// channel type. It is never used directly; New wraps it with an Ops and
// returns the api.Channel.
type AbstractChannel struct {
	id     api.ChannelID
	parent api.Channel
	ops    Ops
	config *DefaultChannelConfig
	pipe   api.ChannelPipeline

	loop       api.EventLoop
	state      atomic.Int32
	readPending atomic.Bool

	mu             sync.Mutex
	connectPromise api.Promise
	closePromise   api.Promise

	outbound   *WriteBuffer
	recvHandle api.RecvByteBufAllocatorHandle

	voidPromise *promise.DefaultPromise
	unsafe      *channelUnsafe
}

// New builds a Channel over ops, wiring a pipeline via factory and an
// outbound write buffer sized from config's watermarks.
func New(parent api.Channel, ops Ops, alloc api.BufferAllocator, factory PipelineFactory) api.Channel {
	cfg := NewDefaultChannelConfig(alloc)
	low, high := cfg.Watermarks()
	c := &AbstractChannel{
		id:          api.ChannelID(nextID.Add(1)),
		parent:      parent,
		ops:         ops,
		config:      cfg,
		recvHandle:  NewAdaptiveRecvByteBufAllocatorHandle(),
		voidPromise: promise.Succeeded(nil),
	}
	c.outbound = NewWriteBuffer(low, high, func(writable bool) {
		c.pipe.FireChannelWritabilityChanged()
	})
	c.unsafe = &channelUnsafe{ch: c}
	c.pipe = factory(c)
	return c
}

func (c *AbstractChannel) ID() api.ChannelID          { return c.id }
func (c *AbstractChannel) Parent() api.Channel        { return c.parent }
func (c *AbstractChannel) Config() api.ChannelConfig  { return c.config }
func (c *AbstractChannel) Pipeline() api.ChannelPipeline { return c.pipe }
func (c *AbstractChannel) Allocator() api.BufferAllocator { return c.config.Allocator() }
func (c *AbstractChannel) EventLoop() api.EventLoop   { return c.loop }
func (c *AbstractChannel) LocalAddr() net.Addr        { return c.ops.LocalAddr() }
func (c *AbstractChannel) RemoteAddr() net.Addr       { return c.ops.RemoteAddr() }

func (c *AbstractChannel) lifecycle() lifecycleState { return lifecycleState(c.state.Load()) }

func (c *AbstractChannel) IsOpen() bool {
	s := c.lifecycle()
	return s != stateClosing && s != stateUnregistering
}
func (c *AbstractChannel) IsRegistered() bool {
	s := c.lifecycle()
	return s >= stateRegistered && s != stateUnregistering
}
func (c *AbstractChannel) IsActive() bool { return c.lifecycle() == stateActive }
func (c *AbstractChannel) IsWritable() bool { return c.outbound.IsWritable() }

func (c *AbstractChannel) Register(group api.EventLoopGroup) api.Future {
	loop := group.NextLoop()
	p := promise.New(loop)
	loop.Execute(func() { c.unsafe.Register(loop, p) })
	return p
}

func (c *AbstractChannel) Bind(local net.Addr) api.Future {
	p := promise.New(c.loop)
	c.runInLoop(func() { c.unsafe.Bind(local, p) })
	return p
}

func (c *AbstractChannel) Connect(remote, local net.Addr) api.Future {
	p := promise.New(c.loop)
	c.runInLoop(func() { c.unsafe.Connect(remote, local, p) })
	return p
}

func (c *AbstractChannel) Disconnect() api.Future {
	p := promise.New(c.loop)
	c.runInLoop(func() { c.unsafe.Disconnect(p) })
	return p
}

func (c *AbstractChannel) Close() api.Future {
	p := promise.New(c.loop)
	c.runInLoop(func() { c.unsafe.Close(p) })
	return p
}

func (c *AbstractChannel) Deregister() api.Future {
	p := promise.New(c.loop)
	c.runInLoop(func() { c.unsafe.Deregister(p) })
	return p
}

func (c *AbstractChannel) Read() api.Channel {
	c.readPending.Store(true)
	c.runInLoop(func() { c.unsafe.BeginRead() })
	return c
}

func (c *AbstractChannel) Write(msg any) api.Future {
	p := promise.New(c.loop)
	c.runInLoop(func() { c.unsafe.Write(msg, p) })
	return p
}

func (c *AbstractChannel) Flush() api.Channel {
	c.runInLoop(func() { c.unsafe.Flush() })
	return c
}

func (c *AbstractChannel) WriteAndFlush(msg any) api.Future {
	p := promise.New(c.loop)
	c.runInLoop(func() {
		c.unsafe.Write(msg, p)
		c.unsafe.Flush()
	})
	return p
}

func (c *AbstractChannel) Unsafe() api.ChannelUnsafe { return c.unsafe }

// runInLoop trampolines onto the owning loop per spec.md §4.E: calls from
// outside the reactor are enqueued; calls already on the reactor run
// inline to avoid deadlocking a single-threaded executor against itself.
func (c *AbstractChannel) runInLoop(task func()) {
	if c.loop == nil || c.loop.InEventLoop() {
		task()
		return
	}
	c.loop.Execute(task)
}

var _ api.Channel = (*AbstractChannel)(nil)

// channelUnsafe implements api.ChannelUnsafe and is only ever invoked on
// the owning reactor's goroutine.
type channelUnsafe struct{ ch *AbstractChannel }

func (u *channelUnsafe) Register(loop api.EventLoop, p api.Promise) {
	c := u.ch
	if !c.state.CompareAndSwap(int32(stateUnregistered), int32(stateRegistering)) {
		p.TryFailure(errs.ErrAlreadyRegistered)
		return
	}
	c.loop = loop
	if err := c.ops.DoRegister(); err != nil {
		c.state.Store(int32(stateUnregistered))
		c.loop = nil
		p.TryFailure(errs.Wrap(errs.KindIO, "register failed", err))
		return
	}
	// Watermarks set on the config after construction (bootstrap options,
	// per-channel overrides) take effect from registration on.
	low, high := c.config.Watermarks()
	c.outbound.mu.Lock()
	c.outbound.low, c.outbound.high = int64(low), int64(high)
	c.outbound.mu.Unlock()
	c.state.Store(int32(stateRegistered))
	p.TrySuccess(nil)
	c.pipe.FireChannelRegistered()
}

func (u *channelUnsafe) Bind(local net.Addr, p api.Promise) {
	c := u.ch
	if err := c.ops.DoBind(local); err != nil {
		p.TryFailure(errs.Wrap(errs.KindIO, "bind failed", err))
		return
	}
	p.TrySuccess(nil)
	if c.lifecycle() == stateRegistered {
		c.state.Store(int32(stateActive))
		c.pipe.FireChannelActive()
	}
}

func (u *channelUnsafe) Connect(remote, local net.Addr, p api.Promise) {
	c := u.ch
	c.mu.Lock()
	if c.connectPromise != nil {
		c.mu.Unlock()
		p.TryFailure(errs.ErrConnectionPending)
		return
	}
	if c.lifecycle() != stateRegistered {
		c.mu.Unlock()
		p.TryFailure(errs.New(errs.KindIllegalState, "connect requires a registered channel"))
		return
	}
	c.connectPromise = p
	c.mu.Unlock()
	c.state.Store(int32(stateConnecting))

	// A cancelled connect promise must suppress the timeout below and
	// tear the channel down; p's executor is c.loop, so this runs back
	// on the channel's own goroutine even when Cancel is called from
	// elsewhere.
	p.AddListener(func(f api.Future) {
		if !f.IsCancelled() {
			return
		}
		c.mu.Lock()
		if c.connectPromise == p {
			c.connectPromise = nil
		}
		c.mu.Unlock()
		u.Close(c.voidPromise)
	})

	finished, err := c.ops.DoConnect(remote, local)
	if err != nil {
		u.failConnect(err)
		return
	}
	if finished {
		u.finishConnect0()
		return
	}

	timeout := c.config.ConnectTimeout()
	c.loop.Schedule(func() {
		c.mu.Lock()
		pending := c.connectPromise == p
		c.mu.Unlock()
		if pending && !p.IsDone() {
			u.failConnect(errs.New(errs.KindConnectTimeout, "connect timed out"))
		}
	}, timeout)
}

func (u *channelUnsafe) FinishConnect() {
	c := u.ch
	if c.lifecycle() != stateConnecting {
		return
	}
	if err := c.ops.DoFinishConnect(); err != nil {
		u.failConnect(err)
		return
	}
	u.finishConnect0()
}

func (u *channelUnsafe) finishConnect0() {
	c := u.ch
	c.mu.Lock()
	p := c.connectPromise
	c.connectPromise = nil
	c.mu.Unlock()
	c.state.Store(int32(stateActive))
	if p != nil {
		p.TrySuccess(nil)
	}
	c.pipe.FireChannelActive()
	if c.config.AutoRead() {
		u.BeginRead()
	}
}

func (u *channelUnsafe) failConnect(cause error) {
	c := u.ch
	c.mu.Lock()
	p := c.connectPromise
	c.connectPromise = nil
	c.mu.Unlock()
	_ = c.ops.DoClose()
	c.state.Store(int32(stateClosing))
	if p != nil {
		p.TryFailure(cause)
	}
	c.pipe.FireChannelInactive()
	u.Deregister(c.voidPromise)
}

func (u *channelUnsafe) Disconnect(p api.Promise) { u.Close(p) }

func (u *channelUnsafe) Close(p api.Promise) {
	c := u.ch
	c.mu.Lock()
	if c.closePromise != nil {
		existing := c.closePromise
		c.mu.Unlock()
		existing.AddListener(func(api.Future) { p.TrySuccess(nil) })
		return
	}
	c.closePromise = p
	c.mu.Unlock()

	wasActive := c.IsActive()
	c.state.Store(int32(stateClosing))
	c.outbound.FailAll(errs.ErrChannelClosed)
	_ = c.ops.DoClose()
	p.TrySuccess(nil)
	if wasActive {
		c.pipe.FireChannelInactive()
	}
	u.Deregister(c.voidPromise)
}

func (u *channelUnsafe) CloseForcibly() {
	c := u.ch
	c.state.Store(int32(stateClosing))
	c.outbound.FailAll(errs.ErrChannelClosed)
	_ = c.ops.DoClose()
}

func (u *channelUnsafe) Deregister(p api.Promise) {
	c := u.ch
	closed := c.lifecycle() == stateClosing
	c.state.Store(int32(stateUnregistering))
	c.readPending.Store(false)
	c.loop = nil
	if !closed {
		// An explicit deregister leaves the channel open and registrable
		// again; after close it stays in Unregistering for good.
		c.state.Store(int32(stateUnregistered))
	}
	p.TrySuccess(nil)
	c.pipe.FireChannelUnregistered()
}

func (u *channelUnsafe) BeginRead() {
	c := u.ch
	c.readPending.Store(true)
	_ = c.ops.DoBeginRead()
}

func (u *channelUnsafe) Write(msg any, p api.Promise) {
	c := u.ch
	if !c.IsOpen() {
		p.TryFailure(errs.ErrChannelClosed)
		return
	}
	c.outbound.AddMessage(msg, estimateSize(msg), p)
}

func (u *channelUnsafe) Flush() {
	u.ch.outbound.AddFlush()
	u.ForceFlush()
}

func (u *channelUnsafe) ForceFlush() {
	c := u.ch
	for {
		msg, ok := c.outbound.Current()
		if !ok {
			_ = c.ops.DoClearWriteInterest()
			return
		}
		err := c.ops.DoWrite(msg)
		if err == nil {
			c.outbound.Remove()
			continue
		}
		if err == errs.ErrWouldBlock {
			_ = c.ops.DoRequestWriteInterest()
			return
		}
		c.outbound.RemoveWithError(err)
	}
}

func (u *channelUnsafe) VoidPromise() api.Promise                  { return u.ch.voidPromise }
func (u *channelUnsafe) OutboundBuffer() api.ChannelOutboundBuffer { return u.ch.outbound }
func (u *channelUnsafe) FD() uintptr                                { return u.ch.ops.FD() }

// acceptor is implemented by server-style Ops (transport/tcp.Listener)
// whose fd is OP_ACCEPT-only; DoAccept hands back the already-constructed
// child api.Channel (bootstrap.ServerBootstrap's factory has already started
// its registration on the child group), which is then fired through the
// listening channel's pipeline as a channelRead, per spec.md §6's
// listen/accept split.
type acceptor interface {
	DoAccept() (child api.Channel, err error)
}

// DoAccept is routed to by reactor.EventLoop's dispatch loop through the
// channelUnsafeAcceptor type assertion when this channel's Ops is
// accept-capable; a non-accepting Ops (a plain client Conn) never
// satisfies acceptor, so DoAccept is a no-op for it.
func (u *channelUnsafe) DoAccept() {
	a, ok := u.ch.ops.(acceptor)
	if !ok {
		return
	}
	for {
		child, err := a.DoAccept()
		if err != nil {
			if err == errs.ErrWouldBlock {
				return
			}
			u.ch.pipe.FireExceptionCaught(err)
			return
		}
		if child == nil {
			return
		}
		u.ch.pipe.FireChannelRead(child)
	}
}

// DoReadLoop drives the RecvByteBufAllocatorHandle-bounded read loop of
// spec.md §4.E: a handful of reads per OP_READ event, never starving the
// task queue on a busy socket.
func (u *channelUnsafe) DoReadLoop() {
	c := u.ch
	c.recvHandle.Reset()
	alloc := c.Allocator()
	for {
		buf := c.recvHandle.Allocate(alloc)
		scratch := make([]byte, buf.WritableBytes())
		n, err := c.ops.DoRead(scratch)
		if n > 0 {
			_, _ = buf.WriteBytes(scratch[:n])
			c.recvHandle.LastBytesRead(n)
			c.pipe.FireChannelRead(buf)
		} else {
			buf.Release()
			c.recvHandle.LastBytesRead(0)
		}
		if err == errs.ErrWouldBlock {
			break
		}
		if err != nil {
			c.pipe.FireChannelReadComplete()
			if err == io.EOF {
				u.Close(c.voidPromise)
			} else {
				c.pipe.FireExceptionCaught(err)
			}
			return
		}
		if !c.recvHandle.ContinueReading() {
			break
		}
	}
	c.pipe.FireChannelReadComplete()
}

func estimateSize(msg any) int64 {
	switch m := msg.(type) {
	case api.Buffer:
		return int64(m.ReadableBytes())
	case []byte:
		return int64(len(m))
	default:
		return 0
	}
}

var _ api.ChannelUnsafe = (*channelUnsafe)(nil)
