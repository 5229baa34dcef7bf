// File: pipeline/context.go
// Package pipeline implements api.ChannelPipeline/api.HandlerContext: the
// doubly-linked HEAD/TAIL handler chain with inbound (HEAD->TAIL) and
// outbound (TAIL->HEAD) propagation of spec.md §3/§4.F.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pipeline

import (
	"fmt"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/errs"
)

// handlerContext is api.HandlerContext. Capability bits are cached at
// construction so propagation can skip non-participants in O(1) without
// repeated interface assertions, per spec.md §9.
type handlerContext struct {
	name     string
	handler  api.Handler
	caps     api.HandlerCapability
	pipeline *DefaultChannelPipeline
	executor api.EventExecutor

	prev, next *handlerContext
}

func (ctx *handlerContext) Name() string               { return ctx.name }
func (ctx *handlerContext) Handler() api.Handler        { return ctx.handler }
func (ctx *handlerContext) Channel() api.Channel        { return ctx.pipeline.ch }
func (ctx *handlerContext) Pipeline() api.ChannelPipeline { return ctx.pipeline }

// Executor returns the context's pinned executor, or the channel's event
// loop if none was pinned (the common case: AddLast without
// AddLastWithExecutor).
func (ctx *handlerContext) Executor() api.EventExecutor {
	if ctx.executor != nil {
		return ctx.executor
	}
	return ctx.pipeline.ch.EventLoop()
}

// invoke runs fn on ctx's executor, inline if already on it, trampolined
// otherwise — the re-queueing half of spec.md §4.F's executor affinity.
// A panic out of fn is recovered and funneled into exceptionCaught at the
// next inbound context instead of killing the caller's goroutine, mirroring
// the teacher's own reactor/handler recovery boundaries.
func (ctx *handlerContext) invoke(fn func()) {
	ex := ctx.Executor()
	if ex == nil || ex.InEventLoop() {
		ctx.runRecovered(fn)
		return
	}
	ex.Execute(func() { ctx.runRecovered(fn) })
}

func (ctx *handlerContext) runRecovered(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			ctx.FireExceptionCaught(errs.New(errs.KindPanic, fmt.Sprintf("handler panic: %v", r)))
		}
	}()
	fn()
}

func (ctx *handlerContext) nextInbound() *handlerContext {
	ctx.pipeline.mu.RLock()
	defer ctx.pipeline.mu.RUnlock()
	n := ctx.next
	for n != nil && n.caps&api.CapInbound == 0 {
		n = n.next
	}
	return n
}

func (ctx *handlerContext) prevOutbound() *handlerContext {
	ctx.pipeline.mu.RLock()
	defer ctx.pipeline.mu.RUnlock()
	p := ctx.prev
	for p != nil && p.caps&api.CapOutbound == 0 {
		p = p.prev
	}
	return p
}

func (ctx *handlerContext) FireChannelRegistered() api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ChannelRegistered(n) })
	return ctx
}

func (ctx *handlerContext) FireChannelUnregistered() api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ChannelUnregistered(n) })
	return ctx
}

func (ctx *handlerContext) FireChannelActive() api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ChannelActive(n) })
	return ctx
}

func (ctx *handlerContext) FireChannelInactive() api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ChannelInactive(n) })
	return ctx
}

func (ctx *handlerContext) FireChannelRead(msg any) api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ChannelRead(n, msg) })
	return ctx
}

func (ctx *handlerContext) FireChannelReadComplete() api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ChannelReadComplete(n) })
	return ctx
}

func (ctx *handlerContext) FireChannelWritabilityChanged() api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ChannelWritabilityChanged(n) })
	return ctx
}

func (ctx *handlerContext) FireUserEventTriggered(evt any) api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).UserEventTriggered(n, evt) })
	return ctx
}

// FireExceptionCaught funnels cause to the next inbound handler; if none
// remains, the tail's default behavior (log and close) already ran as
// part of the tail being inbound-capable, matching spec.md §4.F's
// exception funnel.
func (ctx *handlerContext) FireExceptionCaught(cause error) api.HandlerContext {
	n := ctx.nextInbound()
	if n == nil {
		return ctx
	}
	n.invoke(func() { n.handler.(api.InboundHandler).ExceptionCaught(n, cause) })
	return ctx
}

func (ctx *handlerContext) Bind(local any) api.Future {
	p := ctx.pipeline.newPromise()
	ctx.outbound(func(o *handlerContext) { o.handler.(api.OutboundHandler).Bind(o, local, p) }, p)
	return p
}

func (ctx *handlerContext) Connect(remote, local any) api.Future {
	p := ctx.pipeline.newPromise()
	ctx.outbound(func(o *handlerContext) { o.handler.(api.OutboundHandler).Connect(o, remote, local, p) }, p)
	return p
}

func (ctx *handlerContext) Disconnect() api.Future {
	p := ctx.pipeline.newPromise()
	ctx.outbound(func(o *handlerContext) { o.handler.(api.OutboundHandler).Disconnect(o, p) }, p)
	return p
}

func (ctx *handlerContext) Close() api.Future {
	p := ctx.pipeline.newPromise()
	ctx.outbound(func(o *handlerContext) { o.handler.(api.OutboundHandler).Close(o, p) }, p)
	return p
}

func (ctx *handlerContext) Deregister() api.Future {
	p := ctx.pipeline.newPromise()
	ctx.outbound(func(o *handlerContext) { o.handler.(api.OutboundHandler).Deregister(o, p) }, p)
	return p
}

func (ctx *handlerContext) Read() api.HandlerContext {
	o := ctx.prevOutbound()
	if o == nil {
		return ctx
	}
	o.invoke(func() { o.handler.(api.OutboundHandler).Read(o) })
	return ctx
}

func (ctx *handlerContext) Write(msg any) api.Future {
	p := ctx.pipeline.newPromise()
	ctx.outbound(func(o *handlerContext) { o.handler.(api.OutboundHandler).Write(o, msg, p) }, p)
	return p
}

func (ctx *handlerContext) Flush() api.HandlerContext {
	o := ctx.prevOutbound()
	if o == nil {
		return ctx
	}
	o.invoke(func() { o.handler.(api.OutboundHandler).Flush(o) })
	return ctx
}

func (ctx *handlerContext) WriteAndFlush(msg any) api.Future {
	f := ctx.Write(msg)
	ctx.Flush()
	return f
}

// outbound runs fn on the nearest outbound-capable predecessor, or fails
// p immediately if the chain is exhausted (write past HEAD never
// happens in a correctly wired pipeline, since HEAD is always outbound).
func (ctx *handlerContext) outbound(fn func(*handlerContext), p api.Promise) {
	o := ctx.prevOutbound()
	if o == nil {
		p.TryFailure(errNoOutboundHandler)
		return
	}
	o.invoke(func() { fn(o) })
}

var _ api.HandlerContext = (*handlerContext)(nil)
