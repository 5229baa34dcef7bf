// File: pipeline/simple.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pipeline

import "github.com/momentics/netcore/api"

// SimpleInboundHandler matches inbound messages of type T without
// reflection, substituting for Netty's SimpleChannelInboundHandler type
// check: non-matching messages are passed along unchanged. AutoRelease
// releases a matched api.Buffer after Read returns, mirroring spec.md
// §4.A's "handlers own release" convention.
type SimpleInboundHandler[T any] struct {
	Read        func(ctx api.HandlerContext, msg T)
	AutoRelease bool
}

// NewSimpleInboundHandler builds a handler that dispatches only messages
// assignable to T to read, with buffer auto-release enabled.
func NewSimpleInboundHandler[T any](read func(api.HandlerContext, T)) *SimpleInboundHandler[T] {
	return &SimpleInboundHandler[T]{Read: read, AutoRelease: true}
}

func (*SimpleInboundHandler[T]) Capabilities() api.HandlerCapability { return api.CapInbound }
func (*SimpleInboundHandler[T]) HandlerAdded(api.HandlerContext)       {}
func (*SimpleInboundHandler[T]) HandlerRemoved(api.HandlerContext)     {}

func (h *SimpleInboundHandler[T]) ChannelRegistered(ctx api.HandlerContext)   { ctx.FireChannelRegistered() }
func (h *SimpleInboundHandler[T]) ChannelUnregistered(ctx api.HandlerContext) { ctx.FireChannelUnregistered() }
func (h *SimpleInboundHandler[T]) ChannelActive(ctx api.HandlerContext)      { ctx.FireChannelActive() }
func (h *SimpleInboundHandler[T]) ChannelInactive(ctx api.HandlerContext)    { ctx.FireChannelInactive() }

func (h *SimpleInboundHandler[T]) ChannelRead(ctx api.HandlerContext, msg any) {
	typed, ok := msg.(T)
	if !ok {
		ctx.FireChannelRead(msg)
		return
	}
	if h.Read != nil {
		h.Read(ctx, typed)
	}
	if h.AutoRelease {
		if buf, ok := any(typed).(api.Buffer); ok {
			buf.Release()
		}
	}
}

func (h *SimpleInboundHandler[T]) ChannelReadComplete(ctx api.HandlerContext) {
	ctx.FireChannelReadComplete()
}
func (h *SimpleInboundHandler[T]) ChannelWritabilityChanged(ctx api.HandlerContext) {
	ctx.FireChannelWritabilityChanged()
}
func (h *SimpleInboundHandler[T]) UserEventTriggered(ctx api.HandlerContext, evt any) {
	ctx.FireUserEventTriggered(evt)
}
func (h *SimpleInboundHandler[T]) ExceptionCaught(ctx api.HandlerContext, cause error) {
	ctx.FireExceptionCaught(cause)
}

var _ api.InboundHandler = (*SimpleInboundHandler[any])(nil)
